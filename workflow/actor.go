package workflow

import (
	"context"
	"time"
)

// Actor is the authenticated identity behind a mutation. The core never checks
// credentials; it only snapshots these fields onto what it writes.
type Actor struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// System is used for transitions the service performs on its own behalf.
var System = Actor{ID: -1, DisplayName: "system", Role: "system"}

func (a Actor) Validate() error {
	if a.ID == 0 || a.DisplayName == "" {
		return Validation("actor identity required")
	}
	return nil
}

type ctxKey int

const clientIPKey ctxKey = iota

// WithClientIP attaches the originating address of a request for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the address set by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// Clock returns the current time. Components default to UTC wall time.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }
