package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// StatsAction は保存されているチャンク数を表示する
func StatsAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	count, err := app.Query.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("チャンク数: %d\n", count)
	return nil
}
