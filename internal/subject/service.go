package subject

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrSubjectExists = errors.New("subject with this name already exists")
)

type Service struct {
	db *sql.DB
}

type CreateSubjectInput struct {
	Name        string
	Description string
}

type Subject struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateSubject(ctx context.Context, in CreateSubjectInput) (*Subject, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" {
		return nil, fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO subjects (name, description, created_at)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, name, description, created_at
	`, name, description, time.Now().Unix())

	out, err := scanSubject(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSubjectExists
		}
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return out, nil
}

func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM subjects
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	items := make([]Subject, 0)
	for rows.Next() {
		item, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return items, nil
}

func scanSubject(scanner interface{ Scan(dest ...any) error }) (*Subject, error) {
	var out Subject
	var description sql.NullString
	var createdAt int64
	if err := scanner.Scan(&out.ID, &out.Name, &description, &createdAt); err != nil {
		return nil, err
	}
	if description.Valid {
		out.Description = &description.String
	}
	out.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc/sqlite surfaces constraint failures in the error text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
