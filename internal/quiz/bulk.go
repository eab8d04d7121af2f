package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lecturequiz/internal/question"
)

type BulkQuestionInput struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type BulkQuizInput struct {
	Title       string
	Description string
	SubjectID   *int64
	UserID      int64
	Questions   []BulkQuestionInput
}

type BulkResult struct {
	Quiz      *Quiz               `json:"quiz"`
	Questions []question.Question `json:"questions"`
	Message   string              `json:"message"`
}

// ValidationError carries a client-facing validation message verbatim while
// still classifying as ErrInvalidInput for errors.Is.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ValidateBulkQuiz checks a full bulk payload before anything is written.
// It fails on the first offending question, reporting its zero-based index.
func ValidateBulkQuiz(in BulkQuizInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return validationErrorf("Title is required")
	}
	if len(in.Questions) == 0 {
		return validationErrorf("At least one question is required")
	}
	for i, q := range in.Questions {
		if strings.TrimSpace(q.Text) == "" ||
			len(q.Options) != question.OptionCount ||
			strings.TrimSpace(q.CorrectAnswer) == "" ||
			strings.TrimSpace(q.Explanation) == "" {
			return validationErrorf("Invalid question data at index %d. Each question must have text, 4 options, correctAnswer, and explanation.", i)
		}
		found := false
		for _, opt := range q.Options {
			if q.CorrectAnswer == opt {
				found = true
				break
			}
		}
		if !found {
			return validationErrorf("Question at index %d: correctAnswer %q is not in the options array.", i, q.CorrectAnswer)
		}
	}
	return nil
}

// BulkCreate creates a quiz and all of its questions in one transaction.
// Either every row lands or none do. Questions are stored in payload order
// with positions 0..n-1.
func (s *Service) BulkCreate(ctx context.Context, in BulkQuizInput) (*BulkResult, error) {
	if err := ValidateBulkQuiz(in); err != nil {
		return nil, err
	}
	if in.SubjectID != nil {
		if err := s.checkSubjectExists(ctx, *in.SubjectID); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	row := tx.QueryRowContext(ctx, `
		INSERT INTO quizzes (title, description, subject_id, user_id, created_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, 0), $5)
		RETURNING id, title, description, subject_id, user_id, created_at
	`, strings.TrimSpace(in.Title), strings.TrimSpace(in.Description), nullInt64Ptr(in.SubjectID), in.UserID, now)

	created, err := scanQuiz(row)
	if err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}

	questions := make([]question.Question, 0, len(in.Questions))
	for i, q := range in.Questions {
		optionsJSON, err := question.EncodeOptions(q.Options)
		if err != nil {
			return nil, fmt.Errorf("encode options at index %d: %w", i, err)
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO questions (quiz_id, text, options, correct_answer, explanation, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, quiz_id, text, options, correct_answer, explanation, position, created_at
		`, created.ID, strings.TrimSpace(q.Text), optionsJSON, q.CorrectAnswer, strings.TrimSpace(q.Explanation), i, now)

		item, err := question.ScanQuestion(row)
		if err != nil {
			return nil, fmt.Errorf("insert question at index %d: %w", i, err)
		}
		questions = append(questions, *item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &BulkResult{
		Quiz:      created,
		Questions: questions,
		Message:   fmt.Sprintf("Quiz created successfully with %d questions", len(questions)),
	}, nil
}
