package knowledge

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの分類を表す
// 呼び出し側がメッセージ文字列を検査せずにクライアント向けの結果へマッピングするために使う
type ErrorKind int

const (
	// KindValidation は入力不備によるエラー（4xx 相当）
	KindValidation ErrorKind = iota + 1
	// KindUpstream は Embedding プロバイダやストアの障害によるエラー（5xx 相当）
	KindUpstream
)

// KindedError は分類付きのエラー
type KindedError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindedError) Error() string {
	return e.Err.Error()
}

func (e *KindedError) Unwrap() error {
	return e.Err
}

// Validationf はバリデーションエラーを生成する
func Validationf(format string, args ...any) error {
	return &KindedError{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// Upstreamf は上流障害エラーを生成する
// 元のエラーメッセージは %w で保持される
func Upstreamf(format string, args ...any) error {
	return &KindedError{Kind: KindUpstream, Err: fmt.Errorf(format, args...)}
}

// IsValidation はバリデーションエラーかどうかを判定する
func IsValidation(err error) bool {
	return kindOf(err) == KindValidation
}

// IsUpstream は上流障害エラーかどうかを判定する
func IsUpstream(err error) bool {
	return kindOf(err) == KindUpstream
}

func kindOf(err error) ErrorKind {
	var kerr *KindedError
	if errors.As(err, &kerr) {
		return kerr.Kind
	}
	return 0
}
