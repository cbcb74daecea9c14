package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/launchboard/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	assignTypeFn func(ctx context.Context, userID string, userType model.UserType, displayName string) (bool, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return nil
}
func (m *mockUserRepo) AssignType(ctx context.Context, userID string, userType model.UserType, displayName string) (bool, error) {
	if m.assignTypeFn != nil {
		return m.assignTypeFn(ctx, userID, userType, displayName)
	}
	return true, nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}
func (m *mockSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type mockProfiles struct {
	findStartupFn    func(ctx context.Context, userID string) (*model.StartupProfile, error)
	findIndividualFn func(ctx context.Context, userID string) (*model.IndividualProfile, error)
	setAssetURLFn    func(ctx context.Context, userID string, kind model.AssetKind, url string) (string, error)
}

func (m *mockProfiles) FindStartup(ctx context.Context, userID string) (*model.StartupProfile, error) {
	if m.findStartupFn != nil {
		return m.findStartupFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockProfiles) FindIndividual(ctx context.Context, userID string) (*model.IndividualProfile, error) {
	if m.findIndividualFn != nil {
		return m.findIndividualFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockProfiles) SetAssetURL(ctx context.Context, userID string, kind model.AssetKind, url string) (string, error) {
	if m.setAssetURLFn != nil {
		return m.setAssetURLFn(ctx, userID, kind, url)
	}
	return "", nil
}

type mockImporter struct {
	importFn func(ctx context.Context, kind model.AssetKind, remoteURL string) string
}

func (m *mockImporter) Import(ctx context.Context, kind model.AssetKind, remoteURL string) string {
	return m.importFn(ctx, kind, remoteURL)
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- GetMe ---

func TestService_GetMe_ReportsProfilePresence(t *testing.T) {
	tests := []struct {
		name     string
		userType model.UserType
		profiles *mockProfiles
		want     bool
	}{
		{
			name:     "種別未設定",
			userType: "",
			profiles: &mockProfiles{},
			want:     false,
		},
		{
			name:     "スタートアップのプロフィールあり",
			userType: model.UserTypeStartup,
			profiles: &mockProfiles{findStartupFn: func(ctx context.Context, userID string) (*model.StartupProfile, error) {
				return &model.StartupProfile{UserID: userID}, nil
			}},
			want: true,
		},
		{
			name:     "個人のプロフィールなし",
			userType: model.UserTypeIndividual,
			profiles: &mockProfiles{},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
					return &model.User{ID: id, UserType: tt.userType}, nil
				},
			}
			svc := NewService(userRepo, nil, tt.profiles, nil)

			me, err := svc.GetMe(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("GetMe returned error: %v", err)
			}
			if me.HasProfile != tt.want {
				t.Errorf("HasProfile = %v, want %v", me.HasProfile, tt.want)
			}
		})
	}
}

func TestService_GetMe_UserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, nil, &mockProfiles{}, nil)

	_, err := svc.GetMe(context.Background(), "ghost")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// --- Setup ---

func TestService_Setup_Startup(t *testing.T) {
	var assignedType model.UserType
	var assignedName string
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Acme"}, nil
		},
		assignTypeFn: func(ctx context.Context, userID string, userType model.UserType, displayName string) (bool, error) {
			assignedType = userType
			assignedName = displayName
			return true, nil
		},
	}
	importer := &mockImporter{importFn: func(ctx context.Context, kind model.AssetKind, remoteURL string) string {
		t.Error("startup setup should not import avatar")
		return ""
	}}

	svc := NewService(userRepo, nil, &mockProfiles{}, importer)

	user, err := svc.Setup(context.Background(), "user-1", model.UserTypeStartup)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if user.UserType != model.UserTypeStartup {
		t.Errorf("UserType = %q, want startup", user.UserType)
	}
	if assignedType != model.UserTypeStartup {
		t.Errorf("AssignType called with %q, want startup", assignedType)
	}
	if assignedName != "Acme" {
		t.Errorf("profile display name = %q, want %q", assignedName, "Acme")
	}
}

func TestService_Setup_IndividualImportsAvatar(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Jane", AvatarURL: "https://lh3.googleusercontent.com/a/jane"}, nil
		},
	}
	var importedFrom string
	importer := &mockImporter{importFn: func(ctx context.Context, kind model.AssetKind, remoteURL string) string {
		if kind != model.AssetProfilePicture {
			t.Errorf("import kind = %q, want profile-picture", kind)
		}
		importedFrom = remoteURL
		return "http://localhost:8080/storage/profile-pictures/x.png"
	}}
	var setURL string
	profiles := &mockProfiles{setAssetURLFn: func(ctx context.Context, userID string, kind model.AssetKind, url string) (string, error) {
		setURL = url
		return "", nil
	}}

	svc := NewService(userRepo, nil, profiles, importer)

	if _, err := svc.Setup(context.Background(), "user-2", model.UserTypeIndividual); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if importedFrom != "https://lh3.googleusercontent.com/a/jane" {
		t.Errorf("imported from %q, want IdP avatar", importedFrom)
	}
	if setURL != "http://localhost:8080/storage/profile-pictures/x.png" {
		t.Errorf("profile picture = %q, want imported URL", setURL)
	}
}

func TestService_Setup_AvatarFailureDoesNotFail(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, AvatarURL: "https://example.com/a.png"}, nil
		},
	}
	importer := &mockImporter{importFn: func(ctx context.Context, kind model.AssetKind, remoteURL string) string {
		return ""
	}}
	profiles := &mockProfiles{setAssetURLFn: func(ctx context.Context, userID string, kind model.AssetKind, url string) (string, error) {
		t.Error("SetAssetURL should not be called when import fails")
		return "", nil
	}}

	svc := NewService(userRepo, nil, profiles, importer)

	if _, err := svc.Setup(context.Background(), "user-3", model.UserTypeIndividual); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
}

func TestService_Setup_Validation(t *testing.T) {
	svc := NewService(&mockUserRepo{}, nil, &mockProfiles{}, nil)

	_, err := svc.Setup(context.Background(), "user-1", "")
	assertAPIErrorCode(t, err, model.ErrCodeValidation)

	_, err = svc.Setup(context.Background(), "user-1", model.UserType("admin"))
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

func TestService_Setup_AlreadySet(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, UserType: model.UserTypeIndividual}, nil
		},
		assignTypeFn: func(ctx context.Context, userID string, userType model.UserType, displayName string) (bool, error) {
			t.Error("AssignType should not be called when type is already set")
			return false, nil
		},
	}
	svc := NewService(userRepo, nil, &mockProfiles{}, nil)

	_, err := svc.Setup(context.Background(), "user-1", model.UserTypeStartup)
	assertAPIErrorCode(t, err, model.ErrCodeUserTypeAlreadySet)
}

func TestService_Setup_ConcurrentAssignmentLoses(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		assignTypeFn: func(ctx context.Context, userID string, userType model.UserType, displayName string) (bool, error) {
			return false, nil
		},
	}
	svc := NewService(userRepo, nil, &mockProfiles{}, nil)

	_, err := svc.Setup(context.Background(), "user-1", model.UserTypeStartup)
	assertAPIErrorCode(t, err, model.ErrCodeUserTypeAlreadySet)
}

// --- Withdraw ---

// TestService_Withdraw は退会処理がセッションとユーザーを削除することを検証する。
func TestService_Withdraw(t *testing.T) {
	var order []string

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "test@example.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			order = append(order, "user")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			order = append(order, "sessions")
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, &mockProfiles{}, nil)

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if len(order) != 2 || order[0] != "sessions" || order[1] != "user" {
		t.Errorf("delete order = %v, want [sessions user]", order)
	}
}

// TestService_Withdraw_UserNotFound は存在しないユーザーの退会がエラーになることを検証する。
func TestService_Withdraw_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := NewService(userRepo, nil, &mockProfiles{}, nil)

	err := svc.Withdraw(context.Background(), "nonexistent-user")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

func TestService_Withdraw_SessionDeleteError(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Error("user should not be deleted when session deletion fails")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			return errors.New("db down")
		},
	}

	svc := NewService(userRepo, sessionRepo, &mockProfiles{}, nil)

	if err := svc.Withdraw(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
