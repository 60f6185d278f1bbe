package store

import (
	"context"
	"time"
)

// Operator is a login account for the shop-floor terminals. The workflow only
// ever sees the Actor derived from it.
type Operator struct {
	ID           int64
	Username     string
	DisplayName  string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

func (db *DB) CreateOperator(ctx context.Context, o *Operator) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := db.QueryRowContext(ctx, db.Q(`INSERT INTO operators (username, display_name, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		o.Username, o.DisplayName, o.Role, o.PasswordHash, db.ts(o.CreatedAt)).Scan(&id)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (db *DB) GetOperator(ctx context.Context, username string) (*Operator, error) {
	var o Operator
	var createdAt any
	err := db.QueryRowContext(ctx, db.Q(`SELECT id, username, display_name, role, password_hash, created_at FROM operators WHERE username=?`), username).
		Scan(&o.ID, &o.Username, &o.DisplayName, &o.Role, &o.PasswordHash, &createdAt)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = parseTime(createdAt)
	return &o, nil
}

func (db *DB) OperatorExists(ctx context.Context) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operators`).Scan(&count)
	return count > 0, err
}
