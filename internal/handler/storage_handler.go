package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/launchboard/internal/storage"
)

// objectCacheControl は公開オブジェクトのキャッシュ指定。キーはUUIDで不変のため長期キャッシュできる。
const objectCacheControl = "public, max-age=86400, immutable"

// ObjectOpener は保存済みオブジェクトを開くインターフェース。
type ObjectOpener interface {
	Open(bucket storage.Bucket, key string) (*os.File, fs.FileInfo, error)
}

// StorageHandler は公開オブジェクトを配信するHTTPハンドラー。
type StorageHandler struct {
	objects ObjectOpener
}

// NewStorageHandler はStorageHandlerを生成する。
func NewStorageHandler(objects ObjectOpener) *StorageHandler {
	return &StorageHandler{objects: objects}
}

// Serve はオブジェクトを配信する。
// GET /storage/{bucket}/{key}
func (h *StorageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	bucket := storage.Bucket(chi.URLParam(r, "bucket"))
	key := chi.URLParam(r, "key")

	f, info, err := h.objects.Open(bucket, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to open object",
			slog.String("bucket", string(bucket)),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", objectCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
