// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, resource, upload, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidFilter        = "INVALID_FILTER"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeUserTypeAlreadySet   = "USER_TYPE_ALREADY_SET"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeJobNotFound          = "JOB_NOT_FOUND"
	ErrCodeApplicationNotFound  = "APPLICATION_NOT_FOUND"
	ErrCodeAlreadyApplied       = "ALREADY_APPLIED"
	ErrCodeEventNotFound        = "EVENT_NOT_FOUND"
	ErrCodeRegistrationNotFound = "REGISTRATION_NOT_FOUND"
	ErrCodeAlreadyRegistered    = "ALREADY_REGISTERED"
	ErrCodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// reasonには拒否理由（例: "スタートアップのみ求人を作成できます"）を渡す。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  reason,
		Category: "auth",
		Action:   "この操作を実行できるアカウントでログインしてください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationError は必須項目の欠落などの入力エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewMissingFieldsError は必須フィールドが欠けている場合のエラーを生成する。
func NewMissingFieldsError(fields []string) *APIError {
	return NewValidationError(fmt.Sprintf("必須項目が入力されていません: %v", fields))
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "フィルタには upcoming または past を指定してください。",
	}
}

// NewInvalidStatusError は無効な応募ステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには pending、accepted、rejected のいずれかを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserTypeAlreadySetError はアカウント種別が設定済みの場合のエラーを生成する。
func NewUserTypeAlreadySetError() *APIError {
	return &APIError{
		Code:     ErrCodeUserTypeAlreadySet,
		Message:  "アカウント種別は既に設定されています。",
		Category: "validation",
		Action:   "アカウント種別は変更できません。",
	}
}

// NewProfileNotFoundError はプロフィールが見つからない場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "resource",
		Action:   "アカウントの初期設定を完了してください。",
	}
}

// NewJobNotFoundError は求人が見つからない、または操作権限がない場合のエラーを生成する。
// 列挙攻撃を避けるため、存在しない場合と所有者でない場合を区別しない。
func NewJobNotFoundError(jobID string) *APIError {
	return &APIError{
		Code:     ErrCodeJobNotFound,
		Message:  fmt.Sprintf("指定された求人が見つかりません: %s", jobID),
		Category: "resource",
		Action:   "求人IDを確認してください。",
	}
}

// NewApplicationNotFoundError は応募が見つからない、または操作権限がない場合のエラーを生成する。
func NewApplicationNotFoundError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("指定された応募が見つかりません: %s", applicationID),
		Category: "resource",
		Action:   "応募IDを確認してください。",
	}
}

// NewAlreadyAppliedError は同じ求人への重複応募エラーを生成する。
func NewAlreadyAppliedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyApplied,
		Message:  "この求人には既に応募しています。",
		Category: "resource",
		Action:   "応募一覧から状況を確認してください。",
	}
}

// NewEventNotFoundError はイベントが見つからない、または操作権限がない場合のエラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "resource",
		Action:   "イベントIDを確認してください。",
	}
}

// NewRegistrationNotFoundError はイベント参加登録が見つからない場合のエラーを生成する。
func NewRegistrationNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRegistrationNotFound,
		Message:  "このイベントには登録していません。",
		Category: "resource",
		Action:   "参加登録一覧を確認してください。",
	}
}

// NewAlreadyRegisteredError は同じイベントへの重複登録エラーを生成する。
func NewAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyRegistered,
		Message:  "このイベントには既に登録しています。",
		Category: "resource",
		Action:   "参加登録一覧を確認してください。",
	}
}

// NewPayloadTooLargeError はアップロードサイズ超過エラーを生成する。
func NewPayloadTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodePayloadTooLarge,
		Message:  fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています。", maxBytes),
		Category: "upload",
		Action:   "より小さいファイルを選択してください。",
	}
}

// NewUnsupportedMediaTypeError は許可されていないファイル形式のエラーを生成する。
func NewUnsupportedMediaTypeError(mimeType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMediaType,
		Message:  fmt.Sprintf("このファイル形式はアップロードできません: %s", mimeType),
		Category: "upload",
		Action:   "画像はPNG/JPEG/GIF/WebP、履歴書はPDFを選択してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterで指定された秒数待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
