package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrCannotMove       = errors.New("cannot move question in that direction")
)

const OptionCount = 4

type Service struct {
	db *sql.DB
}

type QuestionInput struct {
	Text          string
	Options       []string
	CorrectAnswer string
	Explanation   string
}

type Question struct {
	ID            int64     `json:"id"`
	QuizID        *int64    `json:"quiz_id,omitempty"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	Explanation   string    `json:"explanation"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"`
}

type AnswerResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ValidateInput checks the invariants every stored question must satisfy:
// non-empty text, exactly four options, non-empty correct answer and
// explanation, and the correct answer being one of the options.
func ValidateInput(in QuestionInput) error {
	if strings.TrimSpace(in.Text) == "" ||
		len(in.Options) != OptionCount ||
		strings.TrimSpace(in.CorrectAnswer) == "" ||
		strings.TrimSpace(in.Explanation) == "" {
		return fmt.Errorf("%w: invalid question data", ErrInvalidInput)
	}
	for _, opt := range in.Options {
		if in.CorrectAnswer == opt {
			return nil
		}
	}
	return fmt.Errorf("%w: correctAnswer %q is not in the options array", ErrInvalidInput, in.CorrectAnswer)
}

// AddQuestion appends a question to a quiz at max(position)+1. The max
// lookup and the insert share one transaction so concurrent appends cannot
// claim the same position.
func (s *Service) AddQuestion(ctx context.Context, quizID int64, in QuestionInput) (*Question, error) {
	if quizID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	optionsJSON, err := EncodeOptions(in.Options)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var quizExists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM quizzes WHERE id = $1)
	`, quizID).Scan(&quizExists); err != nil {
		return nil, fmt.Errorf("check quiz: %w", err)
	}
	if !quizExists {
		return nil, ErrQuizNotFound
	}

	var maxPosition int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), -1) FROM questions WHERE quiz_id = $1
	`, quizID).Scan(&maxPosition); err != nil {
		return nil, fmt.Errorf("max position: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO questions (quiz_id, text, options, correct_answer, explanation, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, quiz_id, text, options, correct_answer, explanation, position, created_at
	`, quizID, strings.TrimSpace(in.Text), optionsJSON, in.CorrectAnswer, strings.TrimSpace(in.Explanation), maxPosition+1, time.Now().Unix())

	out, err := ScanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, quiz_id, text, options, correct_answer, explanation, position, created_at
		FROM questions
		WHERE id = $1
	`, id)
	out, err := ScanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("query question: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, id int64, in QuestionInput) (*Question, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	optionsJSON, err := EncodeOptions(in.Options)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE questions
		SET text = $2,
			options = $3,
			correct_answer = $4,
			explanation = $5
		WHERE id = $1
		RETURNING id, quiz_id, text, options, correct_answer, explanation, position, created_at
	`, id, strings.TrimSpace(in.Text), optionsJSON, in.CorrectAnswer, strings.TrimSpace(in.Explanation))

	out, err := ScanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	return out, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete question affected rows: %w", err)
	}
	if affected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// Reorder moves a question one position earlier or later among its quiz's
// questions by swapping the two position values. Both updates run in one
// transaction so concurrent readers never observe a half-applied swap.
func (s *Service) Reorder(ctx context.Context, questionID int64, direction string) error {
	if questionID <= 0 {
		return ErrInvalidInput
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("%w: invalid direction", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var quizID sql.NullInt64
	if err := tx.QueryRowContext(ctx, `
		SELECT quiz_id FROM questions WHERE id = $1
	`, questionID).Scan(&quizID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("load question: %w", err)
	}
	if !quizID.Valid {
		return ErrQuestionNotFound
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, position
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position ASC, id ASC
	`, quizID.Int64)
	if err != nil {
		return fmt.Errorf("query quiz questions: %w", err)
	}

	type entry struct {
		id       int64
		position int
	}
	entries := make([]entry, 0)
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.position); err != nil {
			rows.Close()
			return fmt.Errorf("scan question position: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate quiz questions: %w", err)
	}

	current := -1
	for i, e := range entries {
		if e.id == questionID {
			current = i
			break
		}
	}
	if current == -1 {
		return ErrQuestionNotFound
	}

	target := current - 1
	if direction == "down" {
		target = current + 1
	}
	if target < 0 || target >= len(entries) {
		return ErrCannotMove
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE questions SET position = $2 WHERE id = $1
	`, entries[current].id, entries[target].position); err != nil {
		return fmt.Errorf("update question position: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE questions SET position = $2 WHERE id = $1
	`, entries[target].id, entries[current].position); err != nil {
		return fmt.Errorf("update swap partner position: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CheckAnswer grades a single submitted answer by exact string match.
func (s *Service) CheckAnswer(ctx context.Context, questionID int64, answer string) (*AnswerResult, error) {
	if questionID <= 0 {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}

	var correctAnswer, explanation string
	err := s.db.QueryRowContext(ctx, `
		SELECT correct_answer, explanation FROM questions WHERE id = $1
	`, questionID).Scan(&correctAnswer, &explanation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("query question: %w", err)
	}

	return &AnswerResult{
		Correct:       answer == correctAnswer,
		CorrectAnswer: correctAnswer,
		Explanation:   explanation,
	}, nil
}

// EncodeOptions serializes an options slice for the questions.options
// column.
func EncodeOptions(options []string) (string, error) {
	b, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(b), nil
}

// ScanQuestion reads one questions row. Shared with the quiz package, which
// joins the same table when assembling full quizzes.
func ScanQuestion(scanner interface{ Scan(dest ...any) error }) (*Question, error) {
	var out Question
	var quizID sql.NullInt64
	var optionsJSON string
	var createdAt int64
	if err := scanner.Scan(
		&out.ID,
		&quizID,
		&out.Text,
		&optionsJSON,
		&out.CorrectAnswer,
		&out.Explanation,
		&out.Position,
		&createdAt,
	); err != nil {
		return nil, err
	}
	if quizID.Valid {
		out.QuizID = &quizID.Int64
	}
	if err := json.Unmarshal([]byte(optionsJSON), &out.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	out.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &out, nil
}
