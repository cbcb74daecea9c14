// Package model はドメインモデルを定義する。
package model

import "time"

// UserType はアカウントの種別を表す。
// setupフローで一度だけ設定され、以後は変更されない。
type UserType string

const (
	// UserTypeStartup はスタートアップのアカウント。
	UserTypeStartup UserType = "startup"
	// UserTypeIndividual は個人のアカウント。
	UserTypeIndividual UserType = "individual"
)

// Valid はUserTypeが定義済みの値かどうかを返す。
func (t UserType) Valid() bool {
	return t == UserTypeStartup || t == UserTypeIndividual
}

// User はサービス利用ユーザーを表す。
// UserTypeが空の場合はsetup未完了。
type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string // IdPから取得したプロフィール画像URL
	UserType  UserType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsStartup はユーザーがスタートアップかどうかを返す。
func (u *User) IsStartup() bool {
	return u != nil && u.UserType == UserTypeStartup
}

// IsIndividual はユーザーが個人かどうかを返す。
func (u *User) IsIndividual() bool {
	return u != nil && u.UserType == UserTypeIndividual
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
