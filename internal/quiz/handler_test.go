package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lecturequiz/internal/auth"
	"lecturequiz/internal/question"

	"github.com/go-chi/chi/v5"
)

type mockQuizService struct {
	createFn      func(ctx context.Context, in CreateQuizInput) (*Quiz, error)
	getFn         func(ctx context.Context, id int64) (*QuizWithQuestions, error)
	takeFn        func(ctx context.Context, id int64) (*QuizWithQuestions, error)
	updateFn      func(ctx context.Context, id int64, in UpdateQuizInput) (*Quiz, error)
	deleteFn      func(ctx context.Context, id int64) error
	listFn        func(ctx context.Context) ([]QuizListItem, error)
	bulkFn        func(ctx context.Context, in BulkQuizInput) (*BulkResult, error)
	importFn      func(ctx context.Context, in CreateQuizInput, r io.Reader) (*BulkResult, error)
	exportExcelFn func(ctx context.Context, quizID int64) ([]byte, string, error)
}

func (m *mockQuizService) CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
	if m.createFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createFn(ctx, in)
}

func (m *mockQuizService) GetQuiz(ctx context.Context, id int64) (*QuizWithQuestions, error) {
	if m.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getFn(ctx, id)
}

func (m *mockQuizService) GetQuizForTaking(ctx context.Context, id int64) (*QuizWithQuestions, error) {
	if m.takeFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.takeFn(ctx, id)
}

func (m *mockQuizService) UpdateQuiz(ctx context.Context, id int64, in UpdateQuizInput) (*Quiz, error) {
	if m.updateFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateFn(ctx, id, in)
}

func (m *mockQuizService) DeleteQuiz(ctx context.Context, id int64) error {
	if m.deleteFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteFn(ctx, id)
}

func (m *mockQuizService) ListQuizzes(ctx context.Context) ([]QuizListItem, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx)
}

func (m *mockQuizService) BulkCreate(ctx context.Context, in BulkQuizInput) (*BulkResult, error) {
	if m.bulkFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.bulkFn(ctx, in)
}

func (m *mockQuizService) ImportExcel(ctx context.Context, in CreateQuizInput, r io.Reader) (*BulkResult, error) {
	if m.importFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.importFn(ctx, in, r)
}

func (m *mockQuizService) ExportExcel(ctx context.Context, quizID int64) ([]byte, string, error) {
	if m.exportExcelFn == nil {
		return nil, "", errors.New("not implemented")
	}
	return m.exportExcelFn(ctx, quizID)
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestCreateQuizAttributesAuthor(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		createFn: func(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
			if in.UserID != 9 || in.Title != "Algebra" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &Quiz{ID: 1, Title: in.Title}, nil
		},
	}}

	payload := []byte(`{"title":"Algebra"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", bytes.NewReader(payload))
	req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 9}))
	w := httptest.NewRecorder()

	h.CreateQuiz(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		getFn: func(ctx context.Context, id int64) (*QuizWithQuestions, error) {
			return nil, ErrQuizNotFound
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/77", nil)
	req = withParam(req, "id", "77")
	w := httptest.NewRecorder()

	h.GetQuiz(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetQuizRejectsBadID(t *testing.T) {
	h := &Handler{svc: &mockQuizService{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/abc", nil)
	req = withParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.GetQuiz(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTakeQuizServesStrippedView(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		takeFn: func(ctx context.Context, id int64) (*QuizWithQuestions, error) {
			return &QuizWithQuestions{
				Quiz: Quiz{ID: id, Title: "Capitals"},
				Questions: []question.Question{
					{ID: 1, Text: "q0", Options: []string{"A", "B", "C", "D"}},
				},
			}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/3/take", nil)
	req = withParam(req, "id", "3")
	w := httptest.NewRecorder()

	h.TakeQuiz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("explanation\":\"because")) {
		t.Fatalf("unexpected answer key in body: %s", w.Body.String())
	}
}

func TestBulkCreateReturnsResult(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		bulkFn: func(ctx context.Context, in BulkQuizInput) (*BulkResult, error) {
			if len(in.Questions) != 2 || in.UserID != 4 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &BulkResult{
				Quiz:    &Quiz{ID: 10, Title: in.Title},
				Message: "Quiz created successfully with 2 questions",
			}, nil
		},
	}}

	payload := []byte(`{"title":"Capitals","questions":[
		{"text":"q0","options":["A","B","C","D"],"correct_answer":"A","explanation":"x"},
		{"text":"q1","options":["A","B","C","D"],"correct_answer":"B","explanation":"y"}
	]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes/bulk", bytes.NewReader(payload))
	req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 4}))
	w := httptest.NewRecorder()

	h.BulkCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	body := decodeMap(t, w)
	data, _ := body["data"].(map[string]any)
	if data["message"] != "Quiz created successfully with 2 questions" {
		t.Fatalf("unexpected message: %v", data["message"])
	}
}

func TestBulkCreateValidationMessagePassesThrough(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		bulkFn: func(ctx context.Context, in BulkQuizInput) (*BulkResult, error) {
			return nil, ValidateBulkQuiz(in)
		},
	}}

	payload := []byte(`{"title":"Capitals","questions":[
		{"text":"q0","options":["A","B"],"correct_answer":"A","explanation":"x"}
	]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes/bulk", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.BulkCreate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decodeMap(t, w)
	errObj, _ := body["error"].(map[string]any)
	want := "Invalid question data at index 0. Each question must have text, 4 options, correctAnswer, and explanation."
	if errObj["message"] != want {
		t.Fatalf("unexpected error message: %v", errObj["message"])
	}
}

func TestDeleteQuizAcknowledges(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		deleteFn: func(ctx context.Context, id int64) error {
			if id != 5 {
				t.Fatalf("unexpected id %d", id)
			}
			return nil
		},
	}}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/quizzes/5", nil)
	req = withParam(req, "id", "5")
	w := httptest.NewRecorder()

	h.DeleteQuiz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestExportExcelSetsAttachmentHeaders(t *testing.T) {
	h := &Handler{svc: &mockQuizService{
		exportExcelFn: func(ctx context.Context, quizID int64) ([]byte, string, error) {
			return []byte("xlsx-bytes"), "quiz-5.xlsx", nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/5/export", nil)
	req = withParam(req, "id", "5")
	w := httptest.NewRecorder()

	h.ExportExcel(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="quiz-5.xlsx"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}
