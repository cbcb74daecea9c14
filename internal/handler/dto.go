package handler

import (
	"time"

	"github.com/hitoshi/launchboard/internal/model"
)

// excerptRunes は一覧レスポンスに含める説明文抜粋の最大文字数。
const excerptRunes = 160

// Excerpter は説明文HTMLからプレーンテキストの抜粋を作るインターフェース。
type Excerpter interface {
	Excerpt(rawHTML string, maxRunes int) string
}

// --- ユーザー ---

type userResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL string  `json:"avatarUrl,omitempty"`
	UserType  *string `json:"userType"` // setup未完了の場合はnull
}

type meResponse struct {
	User       userResponse `json:"user"`
	HasProfile bool         `json:"hasProfile"`
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
	if u.UserType != "" {
		t := string(u.UserType)
		resp.UserType = &t
	}
	return resp
}

// --- プロフィール ---

type startupProfileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Industry    string `json:"industry"`
	Website     string `json:"website"`
	Location    string `json:"location"`
	FoundedYear *int   `json:"foundedYear"`
	TeamSize    string `json:"teamSize"`
}

func (req startupProfileRequest) toModel() *model.StartupProfile {
	return &model.StartupProfile{
		Name:        req.Name,
		Description: req.Description,
		Industry:    req.Industry,
		Website:     req.Website,
		Location:    req.Location,
		FoundedYear: req.FoundedYear,
		TeamSize:    req.TeamSize,
	}
}

type startupProfileResponse struct {
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Industry    string    `json:"industry"`
	Website     string    `json:"website"`
	Location    string    `json:"location"`
	FoundedYear *int      `json:"foundedYear"`
	TeamSize    string    `json:"teamSize"`
	LogoURL     string    `json:"logoUrl"`
	BannerURL   string    `json:"bannerUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toStartupProfileResponse(p *model.StartupProfile) startupProfileResponse {
	return startupProfileResponse{
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		Industry:    p.Industry,
		Website:     p.Website,
		Location:    p.Location,
		FoundedYear: p.FoundedYear,
		TeamSize:    p.TeamSize,
		LogoURL:     p.LogoURL,
		BannerURL:   p.BannerURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type individualProfileRequest struct {
	FullName    string   `json:"fullName"`
	Headline    string   `json:"headline"`
	Bio         string   `json:"bio"`
	Location    string   `json:"location"`
	Skills      []string `json:"skills"`
	LinkedInURL string   `json:"linkedinUrl"`
	GitHubURL   string   `json:"githubUrl"`
	WebsiteURL  string   `json:"websiteUrl"`
}

func (req individualProfileRequest) toModel() *model.IndividualProfile {
	return &model.IndividualProfile{
		FullName:    req.FullName,
		Headline:    req.Headline,
		Bio:         req.Bio,
		Location:    req.Location,
		Skills:      req.Skills,
		LinkedInURL: req.LinkedInURL,
		GitHubURL:   req.GitHubURL,
		WebsiteURL:  req.WebsiteURL,
	}
}

type individualProfileResponse struct {
	UserID            string    `json:"userId"`
	FullName          string    `json:"fullName"`
	Headline          string    `json:"headline"`
	Bio               string    `json:"bio"`
	Location          string    `json:"location"`
	Skills            []string  `json:"skills"`
	LinkedInURL       string    `json:"linkedinUrl"`
	GitHubURL         string    `json:"githubUrl"`
	WebsiteURL        string    `json:"websiteUrl"`
	ProfilePictureURL string    `json:"profilePictureUrl"`
	CoverPictureURL   string    `json:"coverPictureUrl"`
	CVURL             string    `json:"cvUrl"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toIndividualProfileResponse(p *model.IndividualProfile) individualProfileResponse {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return individualProfileResponse{
		UserID:            p.UserID,
		FullName:          p.FullName,
		Headline:          p.Headline,
		Bio:               p.Bio,
		Location:          p.Location,
		Skills:            skills,
		LinkedInURL:       p.LinkedInURL,
		GitHubURL:         p.GitHubURL,
		WebsiteURL:        p.WebsiteURL,
		ProfilePictureURL: p.ProfilePictureURL,
		CoverPictureURL:   p.CoverPictureURL,
		CVURL:             p.CVURL,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type startupSummaryResponse struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl"`
}

func toStartupSummaryResponses(list []model.StartupSummary) []startupSummaryResponse {
	out := make([]startupSummaryResponse, len(list))
	for i, s := range list {
		out[i] = startupSummaryResponse{UserID: s.UserID, Name: s.Name, LogoURL: s.LogoURL}
	}
	return out
}

type uploadResponse struct {
	URL string `json:"url"`
}

// --- 求人 ---

type jobRequest struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Salary      string `json:"salary"`
}

func (req jobRequest) toModel() *model.Job {
	return &model.Job{
		Title:       req.Title,
		Location:    req.Location,
		Type:        req.Type,
		Description: req.Description,
		Salary:      req.Salary,
	}
}

type jobResponse struct {
	ID          string    `json:"id"`
	StartupID   string    `json:"startupId"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Salary      string    `json:"salary"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toJobResponse(j *model.Job) jobResponse {
	return jobResponse{
		ID:          j.ID,
		StartupID:   j.StartupID,
		Title:       j.Title,
		Location:    j.Location,
		Type:        j.Type,
		Description: j.Description,
		Salary:      j.Salary,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

type jobWithStartupResponse struct {
	jobResponse
	StartupName    string `json:"startupName"`
	StartupLogoURL string `json:"startupLogoUrl"`
	Excerpt        string `json:"excerpt,omitempty"`
}

func toJobWithStartupResponse(j *model.JobWithStartup) jobWithStartupResponse {
	return jobWithStartupResponse{
		jobResponse:    toJobResponse(&j.Job),
		StartupName:    j.StartupName,
		StartupLogoURL: j.StartupLogoURL,
	}
}

type applyRequest struct {
	CoverLetter string `json:"coverLetter"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type applicationResponse struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	ApplicantID string    `json:"applicantId"`
	Status      string    `json:"status"`
	CoverLetter string    `json:"coverLetter"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toApplicationResponse(a *model.JobApplication) applicationResponse {
	return applicationResponse{
		ID:          a.ID,
		JobID:       a.JobID,
		ApplicantID: a.ApplicantID,
		Status:      string(a.Status),
		CoverLetter: a.CoverLetter,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type applicantResponse struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Headline   string `json:"headline"`
	PictureURL string `json:"profilePictureUrl"`
	CVURL      string `json:"cvUrl"`
}

type applicationWithApplicantResponse struct {
	applicationResponse
	Applicant applicantResponse `json:"applicant"`
}

type appliedJobResponse struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Type        string `json:"type"`
	StartupID   string `json:"startupId"`
	StartupName string `json:"startupName"`
}

type applicationWithJobResponse struct {
	applicationResponse
	Job appliedJobResponse `json:"job"`
}

// --- イベント ---

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

type eventResponse struct {
	ID          string    `json:"id"`
	StartupID   string    `json:"startupId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	Date        string    `json:"date"`
	StartTime   *string   `json:"startTime"`
	EndTime     *string   `json:"endTime"`
	ImageURL    *string   `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		StartupID:   e.StartupID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Type:        e.Type,
		Date:        e.Date.Format("2006-01-02"),
		StartTime:   optional(e.StartTime),
		EndTime:     optional(e.EndTime),
		ImageURL:    optional(e.ImageURL),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type eventWithStartupResponse struct {
	eventResponse
	StartupName       string `json:"startupName"`
	StartupLogoURL    string `json:"startupLogoUrl"`
	RegistrationCount int    `json:"registrationCount"`
	Excerpt           string `json:"excerpt,omitempty"`
}

func toEventWithStartupResponse(e *model.EventWithStartup) eventWithStartupResponse {
	return eventWithStartupResponse{
		eventResponse:     toEventResponse(&e.Event),
		StartupName:       e.StartupName,
		StartupLogoURL:    e.StartupLogoURL,
		RegistrationCount: e.RegistrationCount,
	}
}

type eventIDRequest struct {
	EventID string `json:"eventId"`
}

type registrationResponse struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	RegistrantID string    `json:"registrantId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type registrantResponse struct {
	RegistrationID string    `json:"registrationId"`
	RegistrantID   string    `json:"registrantId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Headline       string    `json:"headline"`
	PictureURL     string    `json:"profilePictureUrl"`
	RegisteredAt   time.Time `json:"registeredAt"`
}
