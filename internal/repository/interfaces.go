// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/launchboard/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// AssignType はuser_typeが未設定のユーザーに種別を設定し、
	// 対応する空のプロフィール行を同一トランザクションで作成する。
	// 既に種別が設定済みの場合はfalseを返し、何も変更しない。
	AssignType(ctx context.Context, userID string, userType model.UserType, displayName string) (bool, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// identities、sessions、プロフィールとその配下の行はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindUser はproviderとprovider_user_idに紐づくユーザーを返す。
	// 見つからない場合はnilを返す。
	FindUser(ctx context.Context, provider, providerUserID string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired はbeforeより前に期限切れとなったセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ProfileRepository はスタートアップ・個人プロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindStartup はユーザーIDでスタートアッププロフィールを取得する。見つからない場合はnilを返す。
	FindStartup(ctx context.Context, userID string) (*model.StartupProfile, error)

	// UpdateStartup はスタートアッププロフィールのテキスト項目を更新する。
	// アセットURL（logo, banner）は更新しない。行が存在しない場合はErrNotFoundを返す。
	UpdateStartup(ctx context.Context, profile *model.StartupProfile) error

	// FindStartupSummary はスタートアップの概要（名前とロゴ）を取得する。見つからない場合はnilを返す。
	FindStartupSummary(ctx context.Context, userID string) (*model.StartupSummary, error)

	// ListStartupSummaries は全スタートアップの概要を名前順で返す。
	ListStartupSummaries(ctx context.Context) ([]model.StartupSummary, error)

	// FindIndividual はユーザーIDで個人プロフィールを取得する。見つからない場合はnilを返す。
	FindIndividual(ctx context.Context, userID string) (*model.IndividualProfile, error)

	// UpdateIndividual は個人プロフィールのテキスト項目を更新する。
	// アセットURL（profile picture, cover picture, cv）は更新しない。
	UpdateIndividual(ctx context.Context, profile *model.IndividualProfile) error

	// SetAssetURL はプロフィールのアセットURLを差し替え、差し替え前のURLを返す。
	// プロフィール行が存在しない場合はErrNotFoundを返す。
	SetAssetURL(ctx context.Context, userID string, kind model.AssetKind, url string) (string, error)
}

// JobRepository は求人データの永続化インターフェース。
type JobRepository interface {
	// Create は求人を作成する。掲載元スタートアップが存在しない場合はErrReferenceNotFoundを返す。
	Create(ctx context.Context, job *model.Job) error

	// FindByID は求人を掲載元の概要付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.JobWithStartup, error)

	// List はフィルタ条件をANDで結合して求人を作成日時の降順で返す。
	List(ctx context.Context, filter model.JobFilter) ([]model.JobWithStartup, error)

	// UpdateOwned はidとstartup_idの両方に一致する求人を更新し、更新後の行を返す。
	// 一致する行がない場合（存在しない、または所有者でない）はnilを返す。
	UpdateOwned(ctx context.Context, job *model.Job) (*model.Job, error)

	// DeleteOwned はidとstartup_idの両方に一致する求人を削除する。
	// 削除した場合はtrueを返す。
	DeleteOwned(ctx context.Context, id, startupID string) (bool, error)
}

// ApplicationRepository は求人応募データの永続化インターフェース。
type ApplicationRepository interface {
	// Create は応募を作成する。
	// 同一求人への重複応募はErrDuplicate、求人または応募者が存在しない場合はErrReferenceNotFoundを返す。
	Create(ctx context.Context, app *model.JobApplication) error

	// ListByJob は求人への応募を応募者の概要付きで作成日時の降順に返す。
	// statusが空でない場合はそのステータスのみ返す。
	ListByJob(ctx context.Context, jobID string, status model.ApplicationStatus) ([]model.ApplicationWithApplicant, error)

	// ListByApplicant は個人の応募を応募先の概要付きで作成日時の降順に返す。
	ListByApplicant(ctx context.Context, applicantID string, status model.ApplicationStatus) ([]model.ApplicationWithJob, error)

	// UpdateStatusForStartup は指定スタートアップが所有する求人への応募のステータスを更新する。
	// 一致する行がない場合はnilを返す。
	UpdateStatusForStartup(ctx context.Context, id, startupID string, status model.ApplicationStatus) (*model.JobApplication, error)

	// DeleteByApplicant は応募者本人の応募を取り下げる。削除した場合はtrueを返す。
	DeleteByApplicant(ctx context.Context, id, applicantID string) (bool, error)
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// Create はイベントを作成する。主催スタートアップが存在しない場合はErrReferenceNotFoundを返す。
	Create(ctx context.Context, event *model.Event) error

	// FindByID はイベントを主催者の概要と登録者数付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.EventWithStartup, error)

	// List はフィルタ条件をANDで結合してイベントを返す。
	// 並び順: upcomingは開催日昇順、pastは開催日降順、それ以外は作成日時降順。
	List(ctx context.Context, filter model.EventFilter) ([]model.EventWithStartup, error)

	// UpdateOwned はidとstartup_idの両方に一致するイベントを更新し、更新後の行を返す。
	// image_urlは更新しない。一致する行がない場合はnilを返す。
	UpdateOwned(ctx context.Context, event *model.Event) (*model.Event, error)

	// DeleteOwned はidとstartup_idの両方に一致するイベントを削除する。削除した場合はtrueを返す。
	DeleteOwned(ctx context.Context, id, startupID string) (bool, error)

	// SetImageOwned はイベント画像URLを差し替え、差し替え前のURLを返す。
	// 一致する行がない場合はErrNotFoundを返す。
	SetImageOwned(ctx context.Context, id, startupID, url string) (string, error)
}

// RegistrationRepository はイベント参加登録の永続化インターフェース。
type RegistrationRepository interface {
	// Create は参加登録を作成する。
	// 重複登録はErrDuplicate、イベントまたは登録者が存在しない場合はErrReferenceNotFoundを返す。
	Create(ctx context.Context, reg *model.EventRegistration) error

	// Delete はイベントIDと登録者IDで参加登録を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, eventID, registrantID string) (bool, error)

	// ListEventsByRegistrant は個人が登録しているイベントを開催日の昇順で返す。
	ListEventsByRegistrant(ctx context.Context, registrantID string) ([]model.EventWithStartup, error)

	// ListRegistrants はイベントの登録者一覧を登録日時の昇順で返す。
	ListRegistrants(ctx context.Context, eventID string) ([]model.RegistrantInfo, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// AssetReferenceRepository は保存済みオブジェクトへの参照を列挙するインターフェース。
// 孤立オブジェクトの掃除に使用する。
type AssetReferenceRepository interface {
	// ListAssetURLs はプロフィール・イベントの行が参照している全アセットURLを返す。
	ListAssetURLs(ctx context.Context) ([]string, error)
}
