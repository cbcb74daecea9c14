package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	googleProvider = "google"

	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

	// googleRequestTimeout はトークン交換・ユーザー情報取得それぞれの上限時間。
	googleRequestTimeout = 10 * time.Second
	// googleMaxResponseBytes はGoogleのレスポンスとして読み込む上限。
	googleMaxResponseBytes = 1 << 20
)

var (
	// ErrEmailNotVerified はIdP側でメールアドレスが未確認のアカウントによるログインを表す。
	// 応募者・登録者の連絡先としてメールアドレスを使うため、未確認のアカウントは受け付けない。
	ErrEmailNotVerified = errors.New("email address is not verified by the identity provider")
	// ErrInvalidGrant は認可コードが期限切れ・使用済み・不正であることを表す。
	ErrInvalidGrant = errors.New("authorization code is invalid or expired")
)

// GoogleAPIError はGoogleのエンドポイントが2xx以外を返したときのエラー。
type GoogleAPIError struct {
	Endpoint    string
	StatusCode  int
	Code        string // OAuthエラーコード (invalid_grant など)
	Description string
}

func (e *GoogleAPIError) Error() string {
	msg := fmt.Sprintf("google %s returned status %d", e.Endpoint, e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += " (" + e.Description + ")"
	}
	return msg
}

// Is はinvalid_grantをErrInvalidGrantとして扱う。
func (e *GoogleAPIError) Is(target error) bool {
	return target == ErrInvalidGrant && e.Code == "invalid_grant"
}

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// 空の場合はGoogleの本番エンドポイントを使う
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	HTTPClient  *http.Client
}

// GoogleOAuthProvider はGoogle OAuth 2.0の認可コードフローを実装する。
type GoogleOAuthProvider struct {
	config GoogleOAuthConfig
	client *http.Client
}

func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	config.AuthURL = firstNonEmpty(config.AuthURL, defaultGoogleAuthURL)
	config.TokenURL = firstNonEmpty(config.TokenURL, defaultGoogleTokenURL)
	config.UserInfoURL = firstNonEmpty(config.UserInfoURL, defaultGoogleUserInfoURL)

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: googleRequestTimeout}
	}
	return &GoogleOAuthProvider{config: config, client: client}
}

// GetLoginURL は同意画面へのURLを返す。
// 複数アカウントを持つ利用者のためにアカウント選択を毎回表示する。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.config.ClientID)
	q.Set("redirect_uri", p.config.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("prompt", "select_account")
	return p.config.AuthURL + "?" + q.Encode()
}

type googleToken struct {
	AccessToken string `json:"access_token"`
}

type googleProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、確認済みメールアドレスを持つアカウント情報を返す。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("redirect_uri", p.config.RedirectURL)

	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	tokenReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token googleToken
	if err := p.doJSON(tokenReq, "token endpoint", &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("google token endpoint returned no access token")
	}

	profileReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	profileReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var profile googleProfile
	if err := p.doJSON(profileReq, "userinfo endpoint", &profile); err != nil {
		return nil, err
	}
	if profile.Sub == "" {
		return nil, errors.New("google userinfo endpoint returned no subject")
	}
	if profile.Email == "" || !profile.EmailVerified {
		return nil, fmt.Errorf("google account %s: %w", profile.Sub, ErrEmailNotVerified)
	}

	return &OAuthUserInfo{
		ProviderUserID: profile.Sub,
		Email:          profile.Email,
		Name:           profile.Name,
		PictureURL:     profile.Picture,
		Provider:       googleProvider,
	}, nil
}

// doJSON はリクエストを送り、2xxならJSONボディをdstへ読み込む。
// 2xx以外の場合はOAuthエラーボディを解釈して*GoogleAPIErrorを返す。
func (p *GoogleOAuthProvider) doJSON(req *http.Request, endpoint string, dst any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("google %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, googleMaxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read google %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &GoogleAPIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var oauthErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &oauthErr) == nil {
			apiErr.Code = oauthErr.Error
			apiErr.Description = oauthErr.ErrorDescription
		}
		return apiErr
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode google %s response: %w", endpoint, err)
	}
	return nil
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
