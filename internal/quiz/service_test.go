package quiz

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"lecturequiz/internal/db"
	"lecturequiz/internal/question"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func countRows(t *testing.T, conn *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestCreateQuizRequiresTitle(t *testing.T) {
	svc := NewService(openTestDB(t))
	_, err := svc.CreateQuiz(context.Background(), CreateQuizInput{Title: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateQuizUnknownSubject(t *testing.T) {
	svc := NewService(openTestDB(t))
	subjectID := int64(42)
	_, err := svc.CreateQuiz(context.Background(), CreateQuizInput{Title: "Quiz", SubjectID: &subjectID})
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestQuizCRUD(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	created, err := svc.CreateQuiz(ctx, CreateQuizInput{Title: "Algebra Basics", Description: "intro"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if created.Description == nil || *created.Description != "intro" {
		t.Fatalf("unexpected description: %+v", created)
	}

	got, err := svc.GetQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Title != "Algebra Basics" || len(got.Questions) != 0 {
		t.Fatalf("unexpected quiz: %+v", got)
	}

	updated, err := svc.UpdateQuiz(ctx, created.ID, UpdateQuizInput{Title: "Algebra"})
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if updated.Title != "Algebra" || updated.Description != nil {
		t.Fatalf("unexpected updated quiz: %+v", updated)
	}

	if err := svc.DeleteQuiz(ctx, created.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := svc.GetQuiz(ctx, created.ID); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound after delete, got %v", err)
	}
}

func TestUpdateQuizNotFound(t *testing.T) {
	svc := NewService(openTestDB(t))
	_, err := svc.UpdateQuiz(context.Background(), 99, UpdateQuizInput{Title: "x"})
	if !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestDeleteQuizNotFound(t *testing.T) {
	svc := NewService(openTestDB(t))
	if err := svc.DeleteQuiz(context.Background(), 99); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestBulkCreateStoresEverythingInOrder(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	result, err := svc.BulkCreate(ctx, BulkQuizInput{
		Title: "Capitals",
		Questions: []BulkQuestionInput{
			bulkQuestion("q0", "A"),
			bulkQuestion("q1", "B"),
			bulkQuestion("q2", "C"),
		},
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if result.Message != "Quiz created successfully with 3 questions" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if len(result.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(result.Questions))
	}
	for i, q := range result.Questions {
		if q.Position != i {
			t.Fatalf("question %d has position %d", i, q.Position)
		}
	}

	got, err := svc.GetQuiz(ctx, result.Quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(got.Questions) != 3 || got.Questions[0].Text != "q0" || got.Questions[2].Text != "q2" {
		t.Fatalf("unexpected stored order: %+v", got.Questions)
	}
}

func TestBulkCreateIsAtomic(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)

	_, err := svc.BulkCreate(context.Background(), BulkQuizInput{
		Title: "Broken",
		Questions: []BulkQuestionInput{
			bulkQuestion("ok", "A"),
			bulkQuestion("bad", "Z"),
		},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := countRows(t, conn, "quizzes"); n != 0 {
		t.Fatalf("expected no quizzes, got %d", n)
	}
	if n := countRows(t, conn, "questions"); n != 0 {
		t.Fatalf("expected no questions, got %d", n)
	}
}

func TestGetQuizForTakingStripsAnswers(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	result, err := svc.BulkCreate(ctx, BulkQuizInput{
		Title:     "Capitals",
		Questions: []BulkQuestionInput{bulkQuestion("q0", "A")},
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	got, err := svc.GetQuizForTaking(ctx, result.Quiz.ID)
	if err != nil {
		t.Fatalf("get quiz for taking: %v", err)
	}
	for _, q := range got.Questions {
		if q.CorrectAnswer != "" || q.Explanation != "" {
			t.Fatalf("answer key leaked: %+v", q)
		}
		if len(q.Options) != question.OptionCount {
			t.Fatalf("options missing: %+v", q)
		}
	}
}

func TestListQuizzesReportsQuestionCounts(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	empty, err := svc.CreateQuiz(ctx, CreateQuizInput{Title: "Empty"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	full, err := svc.BulkCreate(ctx, BulkQuizInput{
		Title:     "Full",
		Questions: []BulkQuestionInput{bulkQuestion("q0", "A"), bulkQuestion("q1", "B")},
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	items, err := svc.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(items))
	}
	counts := map[int64]int{}
	for _, item := range items {
		counts[item.ID] = item.QuestionCount
	}
	if counts[empty.ID] != 0 {
		t.Fatalf("expected 0 questions for empty quiz, got %d", counts[empty.ID])
	}
	if counts[full.Quiz.ID] != 2 {
		t.Fatalf("expected 2 questions for full quiz, got %d", counts[full.Quiz.ID])
	}
}

func TestDeleteQuizCascadesToOwnQuestionsOnly(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	doomed, err := svc.BulkCreate(ctx, BulkQuizInput{
		Title:     "Doomed",
		Questions: []BulkQuestionInput{bulkQuestion("d0", "A"), bulkQuestion("d1", "B")},
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	kept, err := svc.BulkCreate(ctx, BulkQuizInput{
		Title:     "Kept",
		Questions: []BulkQuestionInput{bulkQuestion("k0", "A")},
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	if err := svc.DeleteQuiz(ctx, doomed.Quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}

	if n := countRows(t, conn, "questions"); n != 1 {
		t.Fatalf("expected 1 surviving question, got %d", n)
	}
	got, err := svc.GetQuiz(ctx, kept.Quiz.ID)
	if err != nil {
		t.Fatalf("get kept quiz: %v", err)
	}
	if len(got.Questions) != 1 || got.Questions[0].Text != "k0" {
		t.Fatalf("kept quiz damaged: %+v", got.Questions)
	}
}
