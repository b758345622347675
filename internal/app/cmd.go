package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandWaitDB はデータベースが接続可能になるまで待機することを示す。
	// コンテナ起動順序の制御に使用する。
	CommandWaitDB Command = "waitdb"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandCreateAdmin は管理者ユーザーを作成することを示す。
	CommandCreateAdmin Command = "createadmin"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "waitdb":
		return CommandWaitDB
	case "healthcheck":
		return CommandHealthcheck
	case "createadmin":
		return CommandCreateAdmin
	default:
		return CommandServe
	}
}
