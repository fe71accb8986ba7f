package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/kb-ask/internal/core/ingestion"
	"github.com/jinford/kb-ask/internal/infra/source"
)

// IngestTextAction は単一ドキュメントを引数・ファイル・標準入力から取り込む
func IngestTextAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	text, err := readText(cmd)
	if err != nil {
		return err
	}

	result, err := app.Ingestion.Ingest(ctx, ingestion.IngestParams{
		DocumentID: cmd.String("id"),
		Text:       text,
		Title:      cmd.String("title"),
		Category:   cmd.String("category"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("取り込み完了: %s (%dチャンク, %dトークン)\n",
		result.DocumentID, result.ChunkCount, result.TotalTokens)
	return nil
}

// IngestDirAction はディレクトリ配下のテキストファイルを一括で取り込む
func IngestDirAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	loader := source.NewDirLoader(cmd.String("path"),
		source.WithDirPrefix(cmd.String("prefix")),
		source.WithDirLogger(app.Logger),
	)
	documents, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	return ingestDocuments(ctx, app, documents)
}

// IngestGitAction はGitリポジトリをクローンして一括で取り込む
func IngestGitAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	loader := source.NewGitLoader(app.Config.GitCloneDir,
		source.WithGitLogger(app.Logger),
	)
	documents, err := loader.Load(ctx, cmd.String("url"), cmd.String("ref"))
	if err != nil {
		return err
	}

	return ingestDocuments(ctx, app, documents)
}

func ingestDocuments(ctx context.Context, app *AppContext, documents []source.Document) error {
	var totalChunks int
	var failed int
	for _, doc := range documents {
		result, err := app.Ingestion.Ingest(ctx, ingestion.IngestParams{
			DocumentID: doc.DocumentID,
			Text:       doc.Text,
			Title:      doc.Title,
			Category:   doc.Category,
		})
		if err != nil {
			app.Logger.Error("ドキュメントの取り込みに失敗",
				"documentID", doc.DocumentID, "error", err)
			failed++
			continue
		}
		totalChunks += result.ChunkCount
	}

	fmt.Printf("取り込み完了: %dドキュメント, %dチャンク (失敗: %d)\n",
		len(documents)-failed, totalChunks, failed)
	if failed > 0 {
		return fmt.Errorf("%d件のドキュメントの取り込みに失敗しました", failed)
	}
	return nil
}

// readText は --file、位置引数、標準入力の順で本文を読み込む
func readText(cmd *cli.Command) (string, error) {
	if path := cmd.String("file"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ファイルの読み込みに失敗: %w", err)
		}
		return string(content), nil
	}

	if args := cmd.Args().Slice(); len(args) > 0 {
		return args[0], nil
	}

	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("標準入力の読み込みに失敗: %w", err)
	}
	return string(content), nil
}
