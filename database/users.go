package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mbolis/field-survey/model"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
)

func (q queries) CreateUser(ctx context.Context, u *model.User, passwordHash []byte) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO user (id, email, password_hash, role, first_name, last_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, passwordHash, u.Role, u.FirstName, u.LastName, u.CreatedAt,
	)
	return err
}

// UserByEmail returns the user registered with email and its password hash.
func (q queries) UserByEmail(ctx context.Context, email string) (u model.User, hash []byte, err error) {
	err = q.q.QueryRowContext(ctx, `
		SELECT id, email, role, first_name, last_name, created_at, password_hash
		FROM user
		WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.Role, &u.FirstName, &u.LastName, &u.CreatedAt, &hash)
	return
}

func (q queries) StoreToken(ctx context.Context, email, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO token (email, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		email, tokenID, refreshTokenID, expiration.UTC(),
	)
	return err
}

// ConsumeToken deletes a stored token pair, failing if it is unknown or expired.
func (q queries) ConsumeToken(ctx context.Context, email, tokenID, refreshTokenID string) error {
	var expiration time.Time
	err := q.q.QueryRowContext(ctx, `
		SELECT expiration FROM token
		WHERE email = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		email, tokenID, refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTokenNotFound
	}
	if err != nil {
		return err
	}

	_, err = q.q.ExecContext(ctx, `
		DELETE FROM token
		WHERE token_id = ?
			AND refresh_token_id = ?`,
		tokenID, refreshTokenID,
	)
	if err != nil {
		return err
	}

	if expiration.Before(time.Now()) {
		return ErrTokenExpired
	}
	return nil
}
