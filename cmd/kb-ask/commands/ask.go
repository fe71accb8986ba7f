package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// AskAction は質問に対する回答を表示する
func AskAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	question := cmd.String("question")
	if question == "" {
		if args := cmd.Args().Slice(); len(args) > 0 {
			question = args[0]
		}
	}

	result, err := app.Query.Ask(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	fmt.Printf("確信度: %d%%\n", result.Confidence)
	if best, ok := result.Best.Get(); ok {
		fmt.Printf("参照: %s (チャンク %d, スコア %.4f)\n",
			best.Chunk.DocumentID, best.Chunk.ChunkIndex, best.Score)
	}
	return nil
}
