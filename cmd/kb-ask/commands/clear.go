package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// ClearAction はナレッジベースの全チャンクを削除する
// 誤操作を防ぐため --yes の指定を必須とする
func ClearAction(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("全データを削除するには --yes を指定してください")
	}

	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	deleted, err := app.Query.Clear(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("削除完了: %dチャンク\n", deleted)
	return nil
}
