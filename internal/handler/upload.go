package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/model"
)

const (
	// uploadFormField はmultipartのファイルフィールド名。
	uploadFormField = "file"
	// multipartOverhead はmultipartの境界やヘッダー分の余裕。
	multipartOverhead = 64 << 10
	// multipartMemory はParseMultipartFormがメモリに保持する上限。超過分は一時ファイルに書き出される。
	multipartMemory = 8 << 20
)

// openUploadFile はmultipartリクエストからファイルを取り出す。
// ボディ全体をmaxBytes+オーバーヘッドで制限し、失敗時はエラーレスポンスを書き込みfalseを返す。
// 種別ごとの正確なサイズ・形式の検証は保存時に行う。
func openUploadFile(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewPayloadTooLargeError(maxBytes))
			return nil, false
		}
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("multipart/form-data 形式でファイルを送信してください。"))
		return nil, false
	}

	file, _, err := r.FormFile(uploadFormField)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError([]string{uploadFormField}))
		return nil, false
	}
	return file, true
}

// uploadOutcome はアップロード結果をメトリクスの区分に変換する。
func uploadOutcome(err error) string {
	if err != nil {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeCreated
}

// uploadKindLabel は未定義の種別をまとめ、メトリクスのラベル数を抑える。
func uploadKindLabel(kind model.AssetKind) string {
	if _, ok := kind.OwnerType(); !ok {
		return "unknown"
	}
	return string(kind)
}
