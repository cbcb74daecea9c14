package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/launchboard/internal/model"
)

// JobServiceInterface は求人ハンドラーが必要とするサービスインターフェース。
type JobServiceInterface interface {
	List(ctx context.Context, filter model.JobFilter) ([]model.JobWithStartup, error)
	Get(ctx context.Context, jobID string) (*model.JobWithStartup, error)
	Create(ctx context.Context, userID string, in *model.Job) (*model.Job, error)
	Update(ctx context.Context, userID, jobID string, in *model.Job) (*model.Job, error)
	Delete(ctx context.Context, userID, jobID string) error
	Apply(ctx context.Context, userID, jobID, coverLetter string) (*model.JobApplication, error)
	ListApplications(ctx context.Context, userID, jobID, status string) ([]model.ApplicationWithApplicant, error)
	MyApplications(ctx context.Context, userID, status string) ([]model.ApplicationWithJob, error)
	UpdateApplicationStatus(ctx context.Context, userID, applicationID, status string) (*model.JobApplication, error)
	WithdrawApplication(ctx context.Context, userID, applicationID string) error
}

// JobHandler は求人・応募のHTTPハンドラー。
type JobHandler struct {
	service   JobServiceInterface
	excerpter Excerpter
}

// NewJobHandler はJobHandlerを生成する。excerpterがnilの場合、一覧に抜粋を含めない。
func NewJobHandler(service JobServiceInterface, excerpter Excerpter) *JobHandler {
	return &JobHandler{
		service:   service,
		excerpter: excerpter,
	}
}

// List は求人一覧を返す。
// GET /api/jobs?startupId=&search=&type=
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	q := r.URL.Query()
	jobs, err := h.service.List(r.Context(), model.JobFilter{
		StartupID: q.Get("startupId"),
		Search:    q.Get("search"),
		Type:      q.Get("type"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]jobWithStartupResponse, len(jobs))
	for i := range jobs {
		resp[i] = toJobWithStartupResponse(&jobs[i])
		if h.excerpter != nil {
			resp[i].Excerpt = h.excerpter.Excerpt(jobs[i].Description, excerptRunes)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は求人を返す。
// GET /api/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	j, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobWithStartupResponse(j))
}

// Create は求人を作成する。
// POST /api/jobs
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req jobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	j, err := h.service.Create(r.Context(), userID, req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobResponse(j))
}

// Update は求人を更新する。
// PUT /api/jobs/{id}
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req jobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	j, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(j))
}

// Delete は求人を削除する。
// DELETE /api/jobs/{id}
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Apply は求人に応募する。
// POST /api/jobs/{id}/applications
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req applyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.service.Apply(r.Context(), userID, chi.URLParam(r, "id"), req.CoverLetter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationResponse(app))
}

// ListApplications は求人への応募一覧を返す。
// GET /api/jobs/{id}/applications?status=
func (h *JobHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	apps, err := h.service.ListApplications(r.Context(), userID, chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]applicationWithApplicantResponse, len(apps))
	for i := range apps {
		a := &apps[i]
		resp[i] = applicationWithApplicantResponse{
			applicationResponse: toApplicationResponse(&a.JobApplication),
			Applicant: applicantResponse{
				FullName:   a.ApplicantName,
				Email:      a.ApplicantEmail,
				Headline:   a.ApplicantHeadline,
				PictureURL: a.ApplicantPicture,
				CVURL:      a.ApplicantCVURL,
			},
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// MyApplications は呼び出し元個人の応募一覧を返す。
// GET /api/applications/mine?status=
func (h *JobHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	apps, err := h.service.MyApplications(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]applicationWithJobResponse, len(apps))
	for i := range apps {
		a := &apps[i]
		resp[i] = applicationWithJobResponse{
			applicationResponse: toApplicationResponse(&a.JobApplication),
			Job: appliedJobResponse{
				Title:       a.JobTitle,
				Location:    a.JobLocation,
				Type:        a.JobType,
				StartupID:   a.StartupID,
				StartupName: a.StartupName,
			},
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateApplicationStatus は応募のステータスを更新する。
// PATCH /api/applications/{id}
func (h *JobHandler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.service.UpdateApplicationStatus(r.Context(), userID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

// WithdrawApplication は応募を取り下げる。
// DELETE /api/applications/{id}
func (h *JobHandler) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.WithdrawApplication(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
