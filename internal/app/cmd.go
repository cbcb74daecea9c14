package app

import (
	"fmt"
	"strconv"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker は掃除ジョブを常駐実行する。
	CommandWorker Command = "worker"
	// CommandCleanup は掃除ジョブを1回だけ実行して終了する。cronからの実行用。
	CommandCleanup Command = "cleanup"
	// CommandMigrate はデータベースマイグレーションを実行する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandWorker, CommandCleanup, CommandMigrate, CommandHealthcheck:
		return Command(args[0])
	default:
		return CommandServe
	}
}

// MigrateAction はmigrateサブコマンドの動作。
type MigrateAction struct {
	// Down がtrueの場合はSteps件ロールバックする。falseの場合は全件適用する。
	Down  bool
	Steps int
}

// ParseMigrateArgs はmigrateに続く引数を解析する。
// 受け付ける形式は "" / "up" / "down" / "down N"。
func ParseMigrateArgs(args []string) (MigrateAction, error) {
	if len(args) == 0 || args[0] == "up" {
		return MigrateAction{}, nil
	}
	if args[0] != "down" {
		return MigrateAction{}, fmt.Errorf("unknown migrate action: %q", args[0])
	}

	action := MigrateAction{Down: true, Steps: 1}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return MigrateAction{}, fmt.Errorf("invalid rollback steps: %q", args[1])
		}
		action.Steps = n
	}
	return action, nil
}
