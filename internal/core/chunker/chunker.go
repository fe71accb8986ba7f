// Package chunker はドキュメント本文を文境界を優先しつつ
// 上限長以下の断片へ決定的に分割する
package chunker

import "strings"

const (
	// DefaultMaxLength はチャンクの最大長（文字数）のデフォルト値
	DefaultMaxLength = 400

	// boundaryRatio は文境界カットを採用する最小比率
	// ピリオドがチャンク先頭から maxLength のこの比率以上の位置に
	// ある場合のみ文境界でカットする（短すぎるチャンクの乱発を防ぐ）
	boundaryRatio = 0.6
)

// Split はテキストを maxLength 文字以下のチャンク列に分割する
//
// 空白の連続は単一スペースへ正規化され、前後の空白は除去される。
// 正規化後のテキストが空であれば nil を返す（有効なコンテンツなし）。
// 分割は貪欲に行い、提案境界から後方に最も近いピリオドが
// チャンク先頭から 0.6×maxLength 以上の位置にあれば文境界でカットし、
// なければ maxLength ちょうどでカットする。長さは rune 単位で数える。
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	normalized := normalize(text)
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) <= maxLength {
		return []string{normalized}
	}

	minBoundary := int(boundaryRatio * float64(maxLength))

	var chunks []string
	pos := 0
	for pos < len(runes) {
		end := pos + maxLength
		if end >= len(runes) {
			end = len(runes)
		} else {
			// 提案境界から後方へ最も近いピリオドを探す
			if cut := lastPeriod(runes, pos, end); cut >= 0 && cut-pos >= minBoundary {
				end = cut + 1 // ピリオドを含めてカット
			}
		}

		chunk := strings.TrimSpace(string(runes[pos:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		// トリム前のカット位置まで進める（再処理を避ける）
		pos = end
	}

	return chunks
}

// normalize は空白の連続を単一スペースに畳み込み、前後の空白を除去する
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// lastPeriod は runes[start:end) 内で最も後方にあるピリオドの位置を返す
// 見つからなければ -1 を返す
func lastPeriod(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == '.' {
			return i
		}
	}
	return -1
}
