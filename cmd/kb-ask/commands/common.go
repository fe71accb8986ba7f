package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/kb-ask/internal/core/ingestion"
	"github.com/jinford/kb-ask/internal/core/knowledge"
	"github.com/jinford/kb-ask/internal/core/query"
	"github.com/jinford/kb-ask/internal/infra/memory"
	"github.com/jinford/kb-ask/internal/infra/openai"
	"github.com/jinford/kb-ask/internal/infra/postgres"
	"github.com/jinford/kb-ask/internal/infra/tokenizer"
	"github.com/jinford/kb-ask/internal/platform/config"
	"github.com/jinford/kb-ask/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     knowledge.Store
	Ingestion *ingestion.Service
	Query     *query.Service

	pool *pgxpool.Pool
}

// NewAppContext は設定を読み込み、ストアと各サービスを組み立てる
// useMemory が true の場合は PostgreSQL に接続せずインメモリストアを使う
func NewAppContext(ctx context.Context, envFile string, useMemory bool) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	var (
		store knowledge.Store
		pool  *pgxpool.Pool
	)
	if useMemory {
		store = memory.NewStore()
	} else {
		pool, err = postgres.Connect(ctx, postgres.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース接続に失敗: %w", err)
		}

		pgStore := postgres.NewStore(pool)
		if err := pgStore.EnsureSchema(ctx, cfg.OpenAI.EmbeddingDimension); err != nil {
			pool.Close()
			return nil, fmt.Errorf("スキーマの初期化に失敗: %w", err)
		}
		store = pgStore
	}

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	ingestOpts := []ingestion.ServiceOption{
		ingestion.WithLogger(appLogger),
		ingestion.WithChunkMaxLength(cfg.ChunkMaxLength),
	}
	if counter, err := tokenizer.NewTokenCounter(); err == nil {
		ingestOpts = append(ingestOpts, ingestion.WithTokenCounter(counter))
	} else {
		appLogger.Warn("トークンカウンタの初期化に失敗、トークン数は記録されません", "error", err)
	}

	return &AppContext{
		Config:    cfg,
		Logger:    appLogger,
		Store:     store,
		Ingestion: ingestion.NewService(store, embedder, ingestOpts...),
		Query:     query.NewService(store, embedder, query.WithLogger(appLogger)),
		pool:      pool,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.pool != nil {
		ac.pool.Close()
	}
}
