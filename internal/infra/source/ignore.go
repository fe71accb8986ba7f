package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFilter は .gitignore のパターンマッチングを提供する
type ignoreFilter struct {
	patterns *gitignore.GitIgnore
}

// newIgnoreFilter は root 配下の .gitignore とデフォルトの
// 除外パターンを読み込んだフィルタを作成する
func newIgnoreFilter(root string) (*ignoreFilter, error) {
	var patterns []string

	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		filePatterns, err := readIgnoreFile(gitignorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read .gitignore: %w", err)
		}
		patterns = append(patterns, filePatterns...)
	}

	patterns = append(patterns, defaultIgnorePatterns()...)

	return &ignoreFilter{
		patterns: gitignore.CompileIgnoreLines(patterns...),
	}, nil
}

// ShouldIgnore はパスが除外対象かどうかを判定する
func (f *ignoreFilter) ShouldIgnore(path string) bool {
	if f.patterns == nil {
		return false
	}
	return f.patterns.MatchesPath(path)
}

func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		// 空行とコメント行をスキップ
		if line == "" || line[0] == '#' {
			continue
		}
		patterns = append(patterns, line)
	}

	return patterns, nil
}

func defaultIgnorePatterns() []string {
	return []string{
		// Git関連
		".git",
		".gitignore",
		".gitattributes",
		".gitmodules",

		// 依存関係・ビルド成果物
		"node_modules",
		"vendor",
		"dist",
		"build",
		"target",
		"out",
		"bin",
		"obj",

		// ロックファイル
		"*.lock",
		"go.sum",
		"package-lock.json",
		"yarn.lock",

		// バイナリ・アーカイブ
		"*.exe",
		"*.dll",
		"*.so",
		"*.dylib",
		"*.zip",
		"*.tar.gz",
		"*.png",
		"*.jpg",
		"*.jpeg",
		"*.gif",
		"*.pdf",
	}
}
