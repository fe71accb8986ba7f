package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// DirLoader はローカルディレクトリ配下のテキストファイルを
// ドキュメントとして収集する
type DirLoader struct {
	root   string
	prefix string
	logger *slog.Logger
}

// DirLoaderOption は DirLoader のオプション設定
type DirLoaderOption func(*DirLoader)

// WithDirPrefix は DocumentID の先頭に付与するプレフィックスを設定する
func WithDirPrefix(prefix string) DirLoaderOption {
	return func(l *DirLoader) {
		l.prefix = prefix
	}
}

// WithDirLogger は DirLoader にロガーを設定する
func WithDirLogger(logger *slog.Logger) DirLoaderOption {
	return func(l *DirLoader) {
		l.logger = logger
	}
}

// NewDirLoader は root を起点とするローダーを作成する
func NewDirLoader(root string, opts ...DirLoaderOption) *DirLoader {
	loader := &DirLoader{
		root:   root,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(loader)
	}
	return loader
}

// Load はディレクトリを走査してドキュメント一覧を返す
//
// .gitignore とデフォルトパターンに一致するパス、バイナリファイル、
// ベンダリングされたパスはスキップする。DocumentID は root からの
// 相対パス（プレフィックスがあればその下）になる。
func (l *DirLoader) Load(ctx context.Context) ([]Document, error) {
	filter, err := newIgnoreFilter(l.root)
	if err != nil {
		return nil, err
	}

	var documents []Document
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		if filter.ShouldIgnore(relPath) || enry.IsVendor(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", relPath, err)
		}
		if enry.IsBinary(content) {
			l.logger.Debug("バイナリファイルをスキップ", "path", relPath)
			return nil
		}
		if strings.TrimSpace(string(content)) == "" {
			return nil
		}

		documents = append(documents, Document{
			DocumentID: l.documentID(relPath),
			Text:       string(content),
			Title:      filepath.Base(relPath),
			Category:   topLevelDir(relPath),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", l.root, err)
	}

	l.logger.Info("ディレクトリを走査しました", "root", l.root, "documents", len(documents))
	return documents, nil
}

func (l *DirLoader) documentID(relPath string) string {
	id := filepath.ToSlash(relPath)
	if l.prefix != "" {
		id = l.prefix + "/" + id
	}
	return id
}

// topLevelDir は相対パスのトップレベルディレクトリ名を返す
// ルート直下のファイルであれば空文字を返す
func topLevelDir(relPath string) string {
	slashed := filepath.ToSlash(relPath)
	if idx := strings.Index(slashed, "/"); idx > 0 {
		return slashed[:idx]
	}
	return ""
}
