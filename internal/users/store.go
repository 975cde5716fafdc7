package users

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fluenthttp/fluenthttp/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	// ErrUserNotFound marks reads, replacements and deletes of absent ids.
	ErrUserNotFound = errors.New("user not found")

	// ErrValidation wraps required-field violations from the store schema.
	ErrValidation = errors.New("user validation failed")
)

// Store owns all user records in SQLite. It is the sole owner of the data;
// there is no in-process cache, and concurrent writes are last-write-wins.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore returns a Store and runs migrations from schema.sql.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// validate enforces the schema's required-field constraints before touching
// the database, so violations read as store errors rather than SQL noise.
func validate(in UserInput) error {
	if in.Name == nil || *in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Job == nil || *in.Job == "" {
		return fmt.Errorf("%w: job is required", ErrValidation)
	}
	if in.Age == nil {
		return fmt.Errorf("%w: age is required", ErrValidation)
	}
	return nil
}

func materialize(id string, in UserInput) User {
	u := User{
		ID:        id,
		Name:      *in.Name,
		Job:       *in.Job,
		Age:       *in.Age,
		IsMarried: true,
	}
	if in.IsMarried != nil {
		u.IsMarried = *in.IsMarried
	}
	return u
}

// Create inserts a new record with a fresh identity key. IsMarried defaults
// to true when the input omits it.
func (s *Store) Create(ctx context.Context, in UserInput) (*User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	u := materialize(uuid.New().String(), in)
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, job, age, is_married, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Job, u.Age, boolToInt(u.IsMarried), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Debug("created user", logging.Field{Key: "id", Value: u.ID})
	return &u, nil
}

// Get returns a record by id, or ErrUserNotFound.
func (s *Store) Get(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, job, age, is_married FROM users WHERE id = ? LIMIT 1`, id)
	return scanUser(row)
}

// List returns every record, oldest first.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, job, age, is_married FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		var married int
		if err := rows.Scan(&u.ID, &u.Name, &u.Job, &u.Age, &married); err != nil {
			return nil, err
		}
		u.IsMarried = married != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

// Replace overwrites the record at id with the input. It returns
// ErrUserNotFound when no record exists; the record is never created.
func (s *Store) Replace(ctx context.Context, id string, in UserInput) (*User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	u := materialize(id, in)
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, job = ?, age = ?, is_married = ? WHERE id = ?`,
		u.Name, u.Job, u.Age, boolToInt(u.IsMarried), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrUserNotFound
	}

	s.logger.Debug("replaced user", logging.Field{Key: "id", Value: id})
	return &u, nil
}

// Delete removes the record at id and returns it, or ErrUserNotFound.
func (s *Store) Delete(ctx context.Context, id string) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}

	s.logger.Debug("deleted user", logging.Field{Key: "id", Value: id})
	return u, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var married int
	if err := row.Scan(&u.ID, &u.Name, &u.Job, &u.Age, &married); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.IsMarried = married != 0
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
