package model

import "time"

// Event はスタートアップが主催するイベントを表す。
// StartTime/EndTimeは "HH:MM" 形式で、未指定の場合は空文字。
type Event struct {
	ID          string
	StartupID   string
	Title       string
	Description string // サニタイズ済みHTML
	Location    string
	Type        string
	Date        time.Time
	StartTime   string
	EndTime     string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventWithStartup はイベントと主催スタートアップの概要、登録者数を結合したモデル。
type EventWithStartup struct {
	Event
	StartupName       string
	StartupLogoURL    string
	RegistrationCount int
}

// EventPeriod はイベント一覧の期間フィルタを表す。
type EventPeriod string

const (
	// EventPeriodAll は期間で絞り込まない。作成日時の降順。
	EventPeriodAll EventPeriod = ""
	// EventPeriodUpcoming は本日以降のイベント。開催日の昇順。
	EventPeriodUpcoming EventPeriod = "upcoming"
	// EventPeriodPast は本日より前のイベント。開催日の降順。
	EventPeriodPast EventPeriod = "past"
)

// Valid はEventPeriodが定義済みの値かどうかを返す。
func (p EventPeriod) Valid() bool {
	switch p {
	case EventPeriodAll, EventPeriodUpcoming, EventPeriodPast:
		return true
	default:
		return false
	}
}

// EventFilter はイベント一覧の絞り込み条件。
// Todayはupcoming/pastの境界日（呼び出し側のタイムゾーンで日付に切り詰めた値）。
type EventFilter struct {
	StartupID string
	Search    string
	Type      string
	Period    EventPeriod
	Today     time.Time
}

// EventRegistration は個人によるイベント参加登録を表す。状態は持たない。
type EventRegistration struct {
	ID           string
	EventID      string
	RegistrantID string
	CreatedAt    time.Time
}

// RegistrantInfo はイベント主催者向けの登録者一覧の行。
type RegistrantInfo struct {
	RegistrationID string
	RegistrantID   string
	FullName       string
	Email          string
	Headline       string
	PictureURL     string
	RegisteredAt   time.Time
}
