package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	giturls "github.com/whilp/git-urls"
)

// GitLoader はリモートの Git リポジトリをクローンし、
// 作業ツリーのファイルをドキュメントとして収集する
type GitLoader struct {
	cloneBaseDir string
	logger       *slog.Logger
}

// GitLoaderOption は GitLoader のオプション設定
type GitLoaderOption func(*GitLoader)

// WithGitLogger は GitLoader にロガーを設定する
func WithGitLogger(logger *slog.Logger) GitLoaderOption {
	return func(l *GitLoader) {
		l.logger = logger
	}
}

// NewGitLoader はクローン先のベースディレクトリを指定してローダーを作成する
func NewGitLoader(cloneBaseDir string, opts ...GitLoaderOption) *GitLoader {
	loader := &GitLoader{
		cloneBaseDir: cloneBaseDir,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(loader)
	}
	return loader
}

// Load は url のリポジトリをクローン（既存なら pull）して
// ドキュメント一覧を返す。ref が空の場合はリモートのデフォルトブランチを使う
//
// DocumentID は「ホスト名/パス/相対パス」形式になる
// 例: github.com/user/repo/docs/guide.md
func (l *GitLoader) Load(ctx context.Context, url, ref string) ([]Document, error) {
	repoName, err := repoNameFromURL(url)
	if err != nil {
		return nil, err
	}

	repoPath := filepath.Join(l.cloneBaseDir, filepath.FromSlash(repoName))
	if err := l.cloneOrPull(ctx, url, repoPath, ref); err != nil {
		return nil, err
	}

	dirLoader := NewDirLoader(repoPath,
		WithDirPrefix(repoName),
		WithDirLogger(l.logger),
	)
	return dirLoader.Load(ctx)
}

// cloneOrPull はリポジトリが存在しない場合はクローン、存在する場合は pull する
func (l *GitLoader) cloneOrPull(ctx context.Context, url, repoPath, ref string) error {
	cloneOpts := &git.CloneOptions{
		URL:   url,
		Depth: 1,
	}
	if ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}

	gitDir := filepath.Join(repoPath, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		l.logger.Info("リポジトリをクローン", "url", url, "path", repoPath, "ref", ref)

		if _, err := git.PlainCloneContext(ctx, repoPath, false, cloneOpts); err != nil {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
		return nil
	}

	l.logger.Info("既存リポジトリを更新", "path", repoPath)

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if ref != "" {
		err = worktree.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(ref),
			Force:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to checkout %s: %w", ref, err)
		}
	}

	err = worktree.PullContext(ctx, &git.PullOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to pull repository: %w", err)
	}

	return nil
}

// repoNameFromURL は Git URL を「ホスト名/パス」形式の名前に変換する
// 例: git@github.com:user/repo.git -> github.com/user/repo
func repoNameFromURL(url string) (string, error) {
	u, err := giturls.Parse(url)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	if hostname == "" || path == "" {
		return "", fmt.Errorf("invalid git URL: %s", url)
	}

	return hostname + "/" + path, nil
}
