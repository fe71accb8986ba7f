package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/kb-ask/cmd/kb-ask/commands"
)

// commonFlags は全コマンドで共有するフラグ
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "環境変数ファイルパス",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:  "memory",
			Usage: "PostgreSQLの代わりにインメモリストアを使う（検証用）",
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定（AppContext 初期化前のフォールバック）
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "kb-ask",
		Usage: "自然文で検索できる社内ナレッジベース",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "ドキュメント取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:  "text",
						Usage: "テキスト1件を取り込む（引数・--file・標準入力）",
						Flags: append(commonFlags(),
							&cli.StringFlag{
								Name:     "id",
								Usage:    "ドキュメントID",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "title",
								Usage: "ドキュメントのタイトル",
							},
							&cli.StringFlag{
								Name:  "category",
								Usage: "ドキュメントの分類",
							},
							&cli.StringFlag{
								Name:  "file",
								Usage: "本文を読み込むファイルパス",
							},
						),
						Action: commands.IngestTextAction,
					},
					{
						Name:  "dir",
						Usage: "ディレクトリ配下のテキストファイルを一括取り込み",
						Flags: append(commonFlags(),
							&cli.StringFlag{
								Name:     "path",
								Usage:    "取り込み対象のディレクトリ",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "prefix",
								Usage: "ドキュメントIDのプレフィックス",
							},
						),
						Action: commands.IngestDirAction,
					},
					{
						Name:  "git",
						Usage: "Gitリポジトリをクローンして一括取り込み",
						Flags: append(commonFlags(),
							&cli.StringFlag{
								Name:     "url",
								Usage:    "リポジトリURL",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "ref",
								Usage: "チェックアウトするブランチ",
							},
						),
						Action: commands.IngestGitAction,
					},
				},
			},
			{
				Name:  "ask",
				Usage: "質問に回答する",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "question",
						Usage: "質問文（位置引数でも指定可）",
					},
				),
				Action: commands.AskAction,
			},
			{
				Name:   "stats",
				Usage:  "保存されているチャンク数を表示",
				Flags:  commonFlags(),
				Action: commands.StatsAction,
			},
			{
				Name:  "clear",
				Usage: "ナレッジベースを全削除",
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "削除を確認する",
					},
				),
				Action: commands.ClearAction,
			},
			{
				Name:  "server",
				Usage: "HTTP APIサーバー管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTP APIサーバーを起動",
						Flags: append(commonFlags(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "リッスンポート（設定より優先）",
							},
						),
						Action: commands.ServerStartAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
