package storage

import (
	"errors"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// ErrUnknownKind は未定義のアセット種別が指定されたことを表す。
var ErrUnknownKind = errors.New("unknown asset kind")

// ErrObjectNotFound はオブジェクトが存在しないことを表す。
var ErrObjectNotFound = errors.New("object not found")

// TooLargeError はアップロードサイズが上限を超えたことを表す。
type TooLargeError struct {
	MaxBytes int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("object exceeds %d bytes", e.MaxBytes)
}

// UnsupportedTypeError は許可されていないMIMEタイプがアップロードされたことを表す。
type UnsupportedTypeError struct {
	MIMEType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported content type: %s", e.MIMEType)
}

// APIErrorFor はアップロード検証エラーをAPIエラーに変換する。
// 検証エラーでない場合はfalseを返す。
func APIErrorFor(err error) (*model.APIError, bool) {
	var tooLarge *TooLargeError
	if errors.As(err, &tooLarge) {
		return model.NewPayloadTooLargeError(tooLarge.MaxBytes), true
	}
	var unsupported *UnsupportedTypeError
	if errors.As(err, &unsupported) {
		return model.NewUnsupportedMediaTypeError(unsupported.MIMEType), true
	}
	return nil, false
}
