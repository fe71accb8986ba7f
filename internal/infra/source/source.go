// Package source はディレクトリや Git リポジトリから
// 取り込み対象ドキュメントを収集するローダーを提供する
package source

// Document は取り込み対象のドキュメント1件を表す
type Document struct {
	// DocumentID はナレッジベース内でドキュメントを識別するキー
	DocumentID string
	// Text はドキュメント本文
	Text string
	// Title は表示用タイトル（通常はファイル名）
	Title string
	// Category は分類（通常はトップレベルディレクトリ名）
	Category string
}
