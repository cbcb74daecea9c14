package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/launchboard/internal/model"
)

// importTimeout は外部画像取得のタイムアウト。
const importTimeout = 5 * time.Second

// SSRFValidator はSSRF防止機能のインターフェース。
// security.SSRFGuardServiceと同じメソッドセットを持つ。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Importer は外部URLの画像を取得してバケットに取り込む。
type Importer interface {
	// Import はremoteURLの画像を取得してkindのバケットに保存し、公開URLを返す。
	// 取得や保存に失敗した場合は空文字を返す（エラーは返さない）。
	Import(ctx context.Context, kind model.AssetKind, remoteURL string) string
}

// RemoteImporter はIdPのアバター画像などをSSRF防止付きで取り込む。
type RemoteImporter struct {
	store     Store
	ssrfGuard SSRFValidator
	maxBytes  int64
}

// NewRemoteImporter はRemoteImporterを生成する。
func NewRemoteImporter(store Store, ssrfGuard SSRFValidator, limits Limits) *RemoteImporter {
	return &RemoteImporter{
		store:     store,
		ssrfGuard: ssrfGuard,
		maxBytes:  limits.MaxImageBytes,
	}
}

// Import はremoteURLの画像を取得してバケットに保存する。
// 取り込みは付随処理のため、失敗時は警告ログのみ出力して空文字を返す。
func (i *RemoteImporter) Import(ctx context.Context, kind model.AssetKind, remoteURL string) string {
	if remoteURL == "" {
		return ""
	}

	if i.ssrfGuard != nil {
		if err := i.ssrfGuard.ValidateURL(remoteURL); err != nil {
			slog.Warn("画像取り込み: SSRFブロック", "url", remoteURL, "error", err)
			return ""
		}
	}

	client := i.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		slog.Warn("画像取り込み: リクエスト作成失敗", "url", remoteURL, "error", err)
		return ""
	}
	req.Header.Set("User-Agent", "Launchboard/1.0")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("画像取り込み: HTTPリクエスト失敗", "url", remoteURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("画像取り込み: HTTPステータス異常", "url", remoteURL, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBytes+1))
	if err != nil {
		slog.Warn("画像取り込み: レスポンス読み取り失敗", "url", remoteURL, "error", err)
		return ""
	}

	// サイズ・形式の検証はStore.Saveに委ねる
	publicURL, err := i.store.Save(ctx, kind, bytes.NewReader(body))
	if err != nil {
		var tooLarge *TooLargeError
		var unsupported *UnsupportedTypeError
		switch {
		case errors.As(err, &tooLarge):
			slog.Warn("画像取り込み: サイズ超過", "url", remoteURL, "max_bytes", tooLarge.MaxBytes)
		case errors.As(err, &unsupported):
			slog.Warn("画像取り込み: 画像以外のコンテンツ", "url", remoteURL, "mime_type", unsupported.MIMEType)
		default:
			slog.Warn("画像取り込み: 保存失敗", "url", remoteURL, "error", err)
		}
		return ""
	}

	return publicURL
}

func (i *RemoteImporter) getHTTPClient() *http.Client {
	if i.ssrfGuard != nil {
		return i.ssrfGuard.NewSafeClient(importTimeout, i.maxBytes)
	}
	return &http.Client{Timeout: importTimeout}
}

// compile-time interface check
var _ Importer = (*RemoteImporter)(nil)
