package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserToken binds a Slack user to the AKASHI token used on their behalf.
type UserToken struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"-"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Masked returns the token in its redacted form.
func (t UserToken) Masked() string { return MaskToken(t.Token) }

// Repository persists user tokens in the user_tokens table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const tokenColumns = `id, user_id, token, expires_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner) (UserToken, error) {
	var (
		t       UserToken
		expires sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &expires, &t.CreatedAt); err != nil {
		return UserToken{}, err
	}
	if expires.Valid {
		e := expires.Time
		t.ExpiresAt = &e
	}
	return t, nil
}

// Fetch returns the token stored for userID, or nil when there is none.
func (r *Repository) Fetch(ctx context.Context, userID string) (*UserToken, error) {
	return fetch(ctx, r.db, userID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func fetch(ctx context.Context, q querier, userID string) (*UserToken, error) {
	row := q.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM user_tokens WHERE user_id = $1`, userID)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch token: %w", err)
	}
	return &t, nil
}

// FetchAll returns every stored token.
func (r *Repository) FetchAll(ctx context.Context) ([]UserToken, error) {
	return r.list(ctx, `SELECT `+tokenColumns+` FROM user_tokens ORDER BY id`)
}

// FetchExpiringBefore returns tokens without a known expiry or expiring before t.
func (r *Repository) FetchExpiringBefore(ctx context.Context, t time.Time) ([]UserToken, error) {
	return r.list(ctx, `
		SELECT `+tokenColumns+`
		FROM user_tokens
		WHERE expires_at IS NULL OR expires_at < $1
		ORDER BY id
	`, t.UTC())
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]UserToken, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()
	var res []UserToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Create inserts a new token record.
func (r *Repository) Create(ctx context.Context, userID, token string, expiresAt *time.Time) (UserToken, error) {
	return create(ctx, r.db, userID, token, expiresAt)
}

func create(ctx context.Context, q querier, userID, token string, expiresAt *time.Time) (UserToken, error) {
	if userID == "" || token == "" {
		return UserToken{}, errors.New("user id and token required")
	}
	t := UserToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: utcPtr(expiresAt),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	row := q.QueryRowContext(ctx, `
		INSERT INTO user_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, t.UserID, t.Token, nullTime(t.ExpiresAt), t.CreatedAt)
	if err := row.Scan(&t.ID); err != nil {
		return UserToken{}, fmt.Errorf("create token: %w", err)
	}
	return t, nil
}

// Update overwrites the credential and expiry of an existing record. An empty
// token or nil expiry keeps the stored value.
func (r *Repository) Update(ctx context.Context, t UserToken, token string, expiresAt *time.Time) (UserToken, error) {
	return update(ctx, r.db, t, token, expiresAt)
}

func update(ctx context.Context, q querier, t UserToken, token string, expiresAt *time.Time) (UserToken, error) {
	if token != "" {
		t.Token = token
	}
	if expiresAt != nil {
		t.ExpiresAt = utcPtr(expiresAt)
	}
	if _, err := q.ExecContext(ctx, `
		UPDATE user_tokens
		SET token = $1, expires_at = $2
		WHERE id = $3
	`, t.Token, nullTime(t.ExpiresAt), t.ID); err != nil {
		return UserToken{}, fmt.Errorf("update token: %w", err)
	}
	return t, nil
}

// UpdateOrCreate updates the record for userID or creates one when missing.
func (r *Repository) UpdateOrCreate(ctx context.Context, userID, token string, expiresAt *time.Time) (UserToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return UserToken{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := fetch(ctx, tx, userID)
	if err != nil {
		return UserToken{}, err
	}
	var t UserToken
	if existing != nil {
		t, err = update(ctx, tx, *existing, token, expiresAt)
	} else {
		t, err = create(ctx, tx, userID, token, expiresAt)
	}
	if err != nil {
		return UserToken{}, err
	}
	if err := tx.Commit(); err != nil {
		return UserToken{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// Delete removes a token record.
func (r *Repository) Delete(ctx context.Context, t UserToken) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE id = $1`, t.ID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
