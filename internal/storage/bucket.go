// Package storage はアップロードされた画像・履歴書の保存と配信を提供する。
// オブジェクトはバケット単位のディレクトリに保存され、公開URLで参照される。
package storage

import (
	"github.com/hitoshi/launchboard/internal/model"
)

// Bucket はオブジェクトの保存先バケット名。
type Bucket string

const (
	BucketProfilePictures Bucket = "profile-pictures"
	BucketCoverPictures   Bucket = "cover-pictures"
	BucketCVs             Bucket = "cvs"
	BucketLogos           Bucket = "logos"
	BucketBanners         Bucket = "banners"
	BucketEventImages     Bucket = "event-images"
)

// AllBuckets は定義済みの全バケット。
var AllBuckets = []Bucket{
	BucketProfilePictures,
	BucketCoverPictures,
	BucketCVs,
	BucketLogos,
	BucketBanners,
	BucketEventImages,
}

// Valid はバケット名が定義済みかどうかを返す。
func (b Bucket) Valid() bool {
	for _, known := range AllBuckets {
		if b == known {
			return true
		}
	}
	return false
}

// imageTypes は画像バケットで受け付けるMIMEタイプと拡張子。
var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// documentTypes は履歴書バケットで受け付けるMIMEタイプと拡張子。
var documentTypes = map[string]string{
	"application/pdf": ".pdf",
}

// Policy はバケットごとのアップロード制約。
type Policy struct {
	Bucket   Bucket
	MaxBytes int64
	// Types はMIMEタイプから保存時の拡張子への対応。
	Types map[string]string
}

// Limits は画像・文書のサイズ上限。
type Limits struct {
	MaxImageBytes int64
	MaxCVBytes    int64
}

// DefaultLimits はデフォルトのサイズ上限（画像5MiB、履歴書10MiB）。
var DefaultLimits = Limits{
	MaxImageBytes: 5 << 20,
	MaxCVBytes:    10 << 20,
}

// PolicyFor はアセット種別に対応するアップロード制約を返す。
func (l Limits) PolicyFor(kind model.AssetKind) (Policy, bool) {
	switch kind {
	case model.AssetProfilePicture:
		return Policy{Bucket: BucketProfilePictures, MaxBytes: l.MaxImageBytes, Types: imageTypes}, true
	case model.AssetCoverPicture:
		return Policy{Bucket: BucketCoverPictures, MaxBytes: l.MaxImageBytes, Types: imageTypes}, true
	case model.AssetCV:
		return Policy{Bucket: BucketCVs, MaxBytes: l.MaxCVBytes, Types: documentTypes}, true
	case model.AssetLogo:
		return Policy{Bucket: BucketLogos, MaxBytes: l.MaxImageBytes, Types: imageTypes}, true
	case model.AssetBanner:
		return Policy{Bucket: BucketBanners, MaxBytes: l.MaxImageBytes, Types: imageTypes}, true
	case model.AssetEventImage:
		return Policy{Bucket: BucketEventImages, MaxBytes: l.MaxImageBytes, Types: imageTypes}, true
	default:
		return Policy{}, false
	}
}
