// Package answer は類似度ランキングと確信度ティアに基づく
// 回答選択ロジックを提供する
package answer

import (
	"math"
	"sort"

	"github.com/samber/mo"

	"github.com/jinford/kb-ask/internal/core/knowledge"
	"github.com/jinford/kb-ask/internal/core/similarity"
)

const (
	// HighThreshold を超えるスコアは保存されたテキストをそのまま回答にする
	HighThreshold = 0.70
	// MediumThreshold を超え HighThreshold 以下のスコアはヘッジ付きで回答する
	// しきい値ちょうどのスコアは下位ティアに落ちる
	MediumThreshold = 0.60

	// hedgePrefix は中ティアの回答に付与する前置き
	hedgePrefix = "I'm not fully certain, but this may help: "

	// AnswerEmptyCorpus はコーパスが空のときの固定回答
	AnswerEmptyCorpus = "No information available in the knowledge base yet."
	// AnswerNoMatch は十分に関連するチャンクがないときの固定回答
	AnswerNoMatch = "The knowledge base has no relevant information for this question."
)

// topMatchCount は内省・ロギング用に保持する上位マッチ数
const topMatchCount = 3

// ScoredChunk はクエリ時にのみ存在する、スコア付きのチャンク
type ScoredChunk struct {
	Chunk *knowledge.Chunk
	Score float64
}

// Result はランキングと回答選択の結果を表す
type Result struct {
	Answer     string
	Confidence int // 0–100
	// Best は最上位マッチ（コーパスが空の場合は absent）
	Best mo.Option[ScoredChunk]
	// Top は上位3件のマッチ（ロギング・内省用。回答選択には使わない）
	Top []ScoredChunk
}

// Rank はコーパス全体をクエリベクトルとの類似度でランク付けし、
// 確信度ティアの判定ポリシーを適用して回答を選択する
//
// 純粋関数であり、整形式の入力に対して失敗しない。個々の保存ベクトルが
// 欠損・破損していてもスコア 0 として扱い、ランキング全体は中断しない。
func Rank(queryVector []float32, corpus []*knowledge.Chunk) Result {
	if len(corpus) == 0 {
		// 取り込み前の空コーパスは正常な終端状態
		return Result{
			Answer:     AnswerEmptyCorpus,
			Confidence: 0,
			Best:       mo.None[ScoredChunk](),
		}
	}

	scored := make([]ScoredChunk, len(corpus))
	for i, c := range corpus {
		scored[i] = ScoredChunk{
			Chunk: c,
			Score: similarity.Cosine(queryVector, c.Embedding),
		}
	}

	// 同点はコーパスの元の順序を保つ（決定的な挙動のため安定ソート）
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	top := scored
	if len(top) > topMatchCount {
		top = top[:topMatchCount]
	}

	best := scored[0]
	answer, confidence := decide(best)

	return Result{
		Answer:     answer,
		Confidence: confidence,
		Best:       mo.Some(best),
		Top:        top,
	}
}

// decide はベストスコアに三段階の確信度ティアを適用する
func decide(best ScoredChunk) (string, int) {
	switch {
	case best.Score > HighThreshold:
		return best.Chunk.Content, confidence(best.Score)
	case best.Score > MediumThreshold:
		return hedgePrefix + best.Chunk.Content, confidence(best.Score)
	default:
		// 負のスコアもここに落ちるため確信度が負になることはない
		return AnswerNoMatch, 0
	}
}

func confidence(score float64) int {
	return int(math.Round(score * 100))
}
