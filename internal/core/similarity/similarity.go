// Package similarity はベクトル間の正規化された類似度を計算する
package similarity

import "math"

// Cosine は2つのベクトルのコサイン類似度を返す
//
// 戻り値の範囲は [-1, 1] で、大きいほど類似している。
// どちらかが nil/空、または次元が一致しない場合は 0 を返す
// （クエリ時に異種・破損ベクトルと比較されるのは正常なケースであり、
// エラーにはしない）。ノルムが 0 のベクトルも 0 を返す。
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
