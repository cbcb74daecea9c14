package model

import "time"

// StartupProfile はスタートアップのプロフィールを表す。
// 主キーはユーザーIDで、Userと1対1で対応する。
type StartupProfile struct {
	UserID      string
	Name        string
	Description string // サニタイズ済みHTML
	Industry    string
	Website     string
	Location    string
	FoundedYear *int
	TeamSize    string
	LogoURL     string
	BannerURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IndividualProfile は個人のプロフィールを表す。
// 主キーはユーザーIDで、Userと1対1で対応する。
type IndividualProfile struct {
	UserID            string
	FullName          string
	Headline          string
	Bio               string // サニタイズ済みHTML
	Location          string
	Skills            []string
	LinkedInURL       string
	GitHubURL         string
	WebsiteURL        string
	ProfilePictureURL string
	CoverPictureURL   string
	CVURL             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StartupSummary は一覧やカード表示用のスタートアップ概要。
type StartupSummary struct {
	UserID  string
	Name    string
	LogoURL string
}

// AssetKind はプロフィールに紐づくアップロード資産の種別を表す。
type AssetKind string

const (
	AssetProfilePicture AssetKind = "profile-picture"
	AssetCoverPicture   AssetKind = "cover-picture"
	AssetCV             AssetKind = "cv"
	AssetLogo           AssetKind = "logo"
	AssetBanner         AssetKind = "banner"
	AssetEventImage     AssetKind = "event-image"
)

// OwnerType は資産をアップロードできるアカウント種別を返す。
func (k AssetKind) OwnerType() (UserType, bool) {
	switch k {
	case AssetProfilePicture, AssetCoverPicture, AssetCV:
		return UserTypeIndividual, true
	case AssetLogo, AssetBanner, AssetEventImage:
		return UserTypeStartup, true
	default:
		return "", false
	}
}
