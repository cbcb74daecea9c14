package model

import "time"

// Job はスタートアップが掲載する求人を表す。
type Job struct {
	ID          string
	StartupID   string
	Title       string
	Location    string
	Type        string
	Description string // サニタイズ済みHTML
	Salary      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobWithStartup は求人と掲載元スタートアップの概要を結合したモデル。
type JobWithStartup struct {
	Job
	StartupName    string
	StartupLogoURL string
}

// JobFilter は求人一覧の絞り込み条件。空文字のフィールドは条件に含めない。
type JobFilter struct {
	StartupID string
	Search    string
	Type      string
}

// ApplicationStatus は応募の選考状態を表す。
// 遷移に制約はなく、スタートアップはいつでも任意の値に変更できる。
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Valid はApplicationStatusが定義済みの値かどうかを返す。
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected:
		return true
	default:
		return false
	}
}

// JobApplication は個人による求人への応募を表す。
type JobApplication struct {
	ID          string
	JobID       string
	ApplicantID string
	Status      ApplicationStatus
	CoverLetter string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplicationWithApplicant はスタートアップ向けの応募一覧の行。
// 応募者のプロフィール概要を含む。
type ApplicationWithApplicant struct {
	JobApplication
	ApplicantName     string
	ApplicantEmail    string
	ApplicantHeadline string
	ApplicantPicture  string
	ApplicantCVURL    string
}

// ApplicationWithJob は個人向けの応募一覧の行。
// 応募先の求人とスタートアップの概要を含む。
type ApplicationWithJob struct {
	JobApplication
	JobTitle    string
	JobLocation string
	JobType     string
	StartupID   string
	StartupName string
}
