package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandRun は常駐スケジューラモードで起動することを示す。
	CommandRun Command = "run"
	// CommandPostNow はゲートを経由せず投稿サイクルを即時に1回実行することを示す。
	// コンテンツ・認証の動作確認用。
	CommandPostNow Command = "post-now"
	// CommandMigrate は投稿履歴データベースのマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandRunを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandRun
	}

	switch args[0] {
	case "run":
		return CommandRun
	case "post-now":
		return CommandPostNow
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandRun
	}
}
