package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"lecturequiz/internal/app/apiresp"
	"lecturequiz/internal/auth"

	"github.com/go-chi/chi/v5"
)

// Uploaded spreadsheets are held fully in memory; 8 MiB covers any sane
// question bank.
const maxImportSize = 8 << 20

type Handler struct {
	svc quizService
}

type quizService interface {
	CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error)
	GetQuiz(ctx context.Context, id int64) (*QuizWithQuestions, error)
	GetQuizForTaking(ctx context.Context, id int64) (*QuizWithQuestions, error)
	UpdateQuiz(ctx context.Context, id int64, in UpdateQuizInput) (*Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error
	ListQuizzes(ctx context.Context) ([]QuizListItem, error)
	BulkCreate(ctx context.Context, in BulkQuizInput) (*BulkResult, error)
	ImportExcel(ctx context.Context, in CreateQuizInput, r io.Reader) (*BulkResult, error)
	ExportExcel(ctx context.Context, quizID int64) ([]byte, string, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type quizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SubjectID   *int64 `json:"subject_id"`
}

type bulkQuizRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	SubjectID   *int64              `json:"subject_id"`
	Questions   []BulkQuestionInput `json:"questions"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	item, err := h.svc.CreateQuiz(r.Context(), CreateQuizInput{
		Title:       req.Title,
		Description: req.Description,
		SubjectID:   req.SubjectID,
		UserID:      currentUserID(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: item})
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: item})
}

// TakeQuiz serves the student view: questions without answer keys.
func (h *Handler) TakeQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetQuizForTaking(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: item})
}

func (h *Handler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	item, err := h.svc.UpdateQuiz(r.Context(), quizID, UpdateQuizInput{
		Title:       req.Title,
		Description: req.Description,
		SubjectID:   req.SubjectID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: item})
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteQuiz(r.Context(), quizID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"message": "Quiz deleted successfully"}})
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListQuizzes(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

// BulkCreate accepts a quiz plus its full question list and stores them
// atomically.
func (h *Handler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req bulkQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	result, err := h.svc.BulkCreate(r.Context(), BulkQuizInput{
		Title:       req.Title,
		Description: req.Description,
		SubjectID:   req.SubjectID,
		UserID:      currentUserID(r),
		Questions:   req.Questions,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: result})
}

// ImportExcel accepts a multipart form with a "file" spreadsheet plus
// "title", "description" and "subject_id" fields.
func (h *Handler) ImportExcel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "missing file"})
		return
	}
	defer func() { _ = file.Close() }()

	in := CreateQuizInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		UserID:      currentUserID(r),
	}
	if raw := r.FormValue("subject_id"); raw != "" {
		subjectID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || subjectID <= 0 {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid subject_id"})
			return
		}
		in.SubjectID = &subjectID
	}

	result, err := h.svc.ImportExcel(r.Context(), in, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: result})
}

func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(w, r)
	if !ok {
		return
	}
	data, filename, err := h.svc.ExportExcel(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	quizID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || quizID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid quiz id"})
		return 0, false
	}
	return quizID, true
}

func currentUserID(r *http.Request) int64 {
	if user, ok := auth.CurrentUser(r.Context()); ok {
		return user.ID
	}
	return 0
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrSubjectNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
