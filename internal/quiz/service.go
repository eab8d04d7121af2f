package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lecturequiz/internal/question"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrSubjectNotFound = errors.New("subject not found")
)

type Service struct {
	db *sql.DB
}

type CreateQuizInput struct {
	Title       string
	Description string
	SubjectID   *int64
	UserID      int64
}

type UpdateQuizInput struct {
	Title       string
	Description string
	SubjectID   *int64
}

type Quiz struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	SubjectID   *int64    `json:"subject_id,omitempty"`
	UserID      *int64    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type QuizWithQuestions struct {
	Quiz
	Questions []question.Question `json:"questions"`
}

type QuizListItem struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description,omitempty"`
	SubjectID     *int64  `json:"subject_id,omitempty"`
	QuestionCount int     `json:"question_count"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	if in.SubjectID != nil {
		if err := s.checkSubjectExists(ctx, *in.SubjectID); err != nil {
			return nil, err
		}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO quizzes (title, description, subject_id, user_id, created_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, 0), $5)
		RETURNING id, title, description, subject_id, user_id, created_at
	`, title, strings.TrimSpace(in.Description), nullInt64Ptr(in.SubjectID), in.UserID, time.Now().Unix())

	out, err := scanQuiz(row)
	if err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}
	return out, nil
}

// GetQuiz returns a quiz with its questions sorted by position.
func (s *Service) GetQuiz(ctx context.Context, id int64) (*QuizWithQuestions, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, subject_id, user_id, created_at
		FROM quizzes
		WHERE id = $1
	`, id)
	q, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("query quiz: %w", err)
	}

	questions, err := s.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QuizWithQuestions{Quiz: *q, Questions: questions}, nil
}

// GetQuizForTaking is GetQuiz with the answer key and explanations stripped,
// for serving to students.
func (s *Service) GetQuizForTaking(ctx context.Context, id int64) (*QuizWithQuestions, error) {
	out, err := s.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range out.Questions {
		out.Questions[i].CorrectAnswer = ""
		out.Questions[i].Explanation = ""
	}
	return out, nil
}

func (s *Service) UpdateQuiz(ctx context.Context, id int64, in UpdateQuizInput) (*Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	if in.SubjectID != nil {
		if err := s.checkSubjectExists(ctx, *in.SubjectID); err != nil {
			return nil, err
		}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE quizzes
		SET title = $2,
			description = NULLIF($3, ''),
			subject_id = $4
		WHERE id = $1
		RETURNING id, title, description, subject_id, user_id, created_at
	`, id, title, strings.TrimSpace(in.Description), nullInt64Ptr(in.SubjectID))

	out, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return out, nil
}

// DeleteQuiz removes a quiz; its questions go with it via the cascading
// foreign key.
func (s *Service) DeleteQuiz(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete quiz affected rows: %w", err)
	}
	if affected == 0 {
		return ErrQuizNotFound
	}
	return nil
}

// ListQuizzes returns all quizzes, newest first, each with its question
// count.
func (s *Service) ListQuizzes(ctx context.Context) ([]QuizListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.title, q.description, q.subject_id, COUNT(qs.id)
		FROM quizzes q
		LEFT JOIN questions qs ON qs.quiz_id = q.id
		GROUP BY q.id, q.title, q.description, q.subject_id, q.created_at
		ORDER BY q.created_at DESC, q.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	items := make([]QuizListItem, 0)
	for rows.Next() {
		var item QuizListItem
		var description sql.NullString
		var subjectID sql.NullInt64
		if err := rows.Scan(&item.ID, &item.Title, &description, &subjectID, &item.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		if description.Valid {
			item.Description = &description.String
		}
		if subjectID.Valid {
			item.SubjectID = &subjectID.Int64
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return items, nil
}

func (s *Service) listQuestions(ctx context.Context, quizID int64) ([]question.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quiz_id, text, options, correct_answer, explanation, position, created_at
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position ASC, id ASC
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	items := make([]question.Question, 0)
	for rows.Next() {
		item, err := question.ScanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return items, nil
}

func (s *Service) checkSubjectExists(ctx context.Context, subjectID int64) error {
	if subjectID <= 0 {
		return fmt.Errorf("%w: subject_id must be positive", ErrInvalidInput)
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM subjects WHERE id = $1)
	`, subjectID).Scan(&exists); err != nil {
		return fmt.Errorf("check subject: %w", err)
	}
	if !exists {
		return ErrSubjectNotFound
	}
	return nil
}

func scanQuiz(scanner interface{ Scan(dest ...any) error }) (*Quiz, error) {
	var out Quiz
	var description sql.NullString
	var subjectID sql.NullInt64
	var userID sql.NullInt64
	var createdAt int64
	if err := scanner.Scan(&out.ID, &out.Title, &description, &subjectID, &userID, &createdAt); err != nil {
		return nil, err
	}
	if description.Valid {
		out.Description = &description.String
	}
	if subjectID.Valid {
		out.SubjectID = &subjectID.Int64
	}
	if userID.Valid {
		out.UserID = &userID.Int64
	}
	out.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &out, nil
}

func nullInt64Ptr(v *int64) any {
	if v == nil || *v <= 0 {
		return nil
	}
	return *v
}
