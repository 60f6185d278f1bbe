package store

import (
	"context"
	"time"
)

type Notification struct {
	ID        int64      `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Severity  string     `json:"severity"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

const notificationSelectCols = `id, kind, title, body, severity, is_read, read_at, created_at`

func scanNotification(row interface{ Scan(...any) error }) (*Notification, error) {
	var n Notification
	var readAt, createdAt any
	if err := row.Scan(&n.ID, &n.Kind, &n.Title, &n.Body, &n.Severity, &n.IsRead, &readAt, &createdAt); err != nil {
		return nil, err
	}
	n.ReadAt = parseTimePtr(readAt)
	n.CreatedAt = parseTime(createdAt)
	return &n, nil
}

func (t *Tx) InsertNotification(ctx context.Context, n *Notification) error {
	if n.Body == "" {
		n.Body = "{}"
	}
	id, err := t.insert(ctx, `INSERT INTO notifications (kind, title, body, severity, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.Kind, n.Title, n.Body, n.Severity, false, t.db.ts(n.CreatedAt))
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

// MarkNotificationRead returns ErrStale when the notification does not exist
// or was already read.
func (db *DB) MarkNotificationRead(ctx context.Context, id int64, at time.Time) error {
	res, err := db.ExecContext(ctx, db.Q(`UPDATE notifications SET is_read=?, read_at=? WHERE id=? AND is_read=?`),
		true, db.ts(at), id, false)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (db *DB) ListUnreadNotifications(ctx context.Context, limit int) ([]*Notification, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT `+notificationSelectCols+` FROM notifications WHERE is_read=? ORDER BY id DESC LIMIT ?`),
		false, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// PurgeReadNotifications deletes read notifications created before cutoff.
func (db *DB) PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, db.Q(`DELETE FROM notifications WHERE is_read=? AND created_at < ?`), true, db.ts(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
