package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/launchboard/internal/model"
)

// sniffLen はhttp.DetectContentTypeが参照する先頭バイト数。
const sniffLen = 512

// objectKeyPattern は保存時に生成するオブジェクトキーの形式（UUID + 拡張子）。
var objectKeyPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]{3,4}$`)

// Store はアセット保存のインターフェース。
type Store interface {
	// Save はアセット種別のバケットにオブジェクトを保存し、公開URLを返す。
	// サイズ超過は*TooLargeError、許可されていない形式は*UnsupportedTypeErrorを返す。
	Save(ctx context.Context, kind model.AssetKind, r io.Reader) (string, error)

	// Remove は公開URLが指すオブジェクトを削除する。
	// 管理外のURLや存在しないオブジェクトの場合は何もしない。
	Remove(ctx context.Context, publicURL string) error
}

// Object は保存済みオブジェクトの情報。
type Object struct {
	Bucket  Bucket
	Key     string
	ModTime time.Time
}

// FileStore はローカルファイルシステムを使用したStoreの実装。
// オブジェクトは {root}/{bucket}/{key} に保存される。
type FileStore struct {
	root          string
	publicBaseURL string
	limits        Limits
	logger        *slog.Logger
}

// NewFileStore はFileStoreを生成し、全バケットのディレクトリを作成する。
// publicBaseURLはオブジェクトURLの接頭辞（例: "http://localhost:8080"）。
func NewFileStore(root, publicBaseURL string, limits Limits, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, b := range AllBuckets {
		if err := os.MkdirAll(filepath.Join(root, string(b)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create bucket directory %s: %w", b, err)
		}
	}
	return &FileStore{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		limits:        limits,
		logger:        logger,
	}, nil
}

// Save はアセット種別のバケットにオブジェクトを保存し、公開URLを返す。
// MIMEタイプはクライアントの申告ではなく先頭バイトから判定する。
func (s *FileStore) Save(ctx context.Context, kind model.AssetKind, r io.Reader) (string, error) {
	policy, ok := s.limits.PolicyFor(kind)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	// 上限+1バイトまで読み、超過を検出する
	data, err := io.ReadAll(io.LimitReader(r, policy.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > policy.MaxBytes {
		return "", &TooLargeError{MaxBytes: policy.MaxBytes}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mimeType := DetectMIMEType(data)
	ext, ok := policy.Types[mimeType]
	if !ok {
		return "", &UnsupportedTypeError{MIMEType: mimeType}
	}

	key := uuid.New().String() + ext
	path := filepath.Join(s.root, string(policy.Bucket), key)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}

	s.logger.Info("object stored",
		slog.String("bucket", string(policy.Bucket)),
		slog.String("key", key),
		slog.String("mime_type", mimeType),
		slog.Int("size", len(data)),
	)

	return s.URLFor(policy.Bucket, key), nil
}

// Remove は公開URLが指すオブジェクトを削除する。
func (s *FileStore) Remove(ctx context.Context, publicURL string) error {
	bucket, key, ok := s.ParseURL(publicURL)
	if !ok {
		return nil
	}
	return s.Delete(ctx, bucket, key)
}

// Delete はバケットとキーで指定したオブジェクトを削除する。存在しない場合は何もしない。
func (s *FileStore) Delete(_ context.Context, bucket Bucket, key string) error {
	if !bucket.Valid() || !objectKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid object reference: %s/%s", bucket, key)
	}
	err := os.Remove(filepath.Join(s.root, string(bucket), key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// URLFor はオブジェクトの公開URLを返す。
func (s *FileStore) URLFor(bucket Bucket, key string) string {
	return fmt.Sprintf("%s/storage/%s/%s", s.publicBaseURL, bucket, key)
}

// ParseURL はこのストアが発行した公開URLからバケットとキーを取り出す。
func (s *FileStore) ParseURL(publicURL string) (Bucket, string, bool) {
	prefix := s.publicBaseURL + "/storage/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(publicURL, prefix)
	bucketName, key, found := strings.Cut(rest, "/")
	if !found {
		return "", "", false
	}
	bucket := Bucket(bucketName)
	if !bucket.Valid() || !objectKeyPattern.MatchString(key) {
		return "", "", false
	}
	return bucket, key, true
}

// Open は配信用にオブジェクトを開く。存在しない場合はErrObjectNotFoundを返す。
func (s *FileStore) Open(bucket Bucket, key string) (*os.File, fs.FileInfo, error) {
	if !bucket.Valid() || !objectKeyPattern.MatchString(key) {
		return nil, nil, ErrObjectNotFound
	}
	f, err := os.Open(filepath.Join(s.root, string(bucket), key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open object: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return f, info, nil
}

// List は全バケットのオブジェクトを列挙する。
func (s *FileStore) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	for _, b := range AllBuckets {
		entries, err := os.ReadDir(filepath.Join(s.root, string(b)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read bucket %s: %w", b, err)
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if e.IsDir() || !objectKeyPattern.MatchString(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			objects = append(objects, Object{Bucket: b, Key: e.Name(), ModTime: info.ModTime()})
		}
	}
	return objects, nil
}

// DetectMIMEType はデータの先頭バイトからMIMEタイプを判定する。
// パラメータ（charset等）は除去して返す。
func DetectMIMEType(data []byte) string {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return extractMIMEType(http.DetectContentType(head))
}

// extractMIMEType はContent-Type値からメディアタイプを抽出する。
func extractMIMEType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// writeFileAtomic は一時ファイルに書き込んでからリネームする。
// 配信中のリクエストが書き込み途中のファイルを読まないようにする。
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Chmod(path, 0o644)
}

// compile-time interface check
var _ Store = (*FileStore)(nil)
