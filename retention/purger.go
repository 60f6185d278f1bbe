// Package retention prunes housekeeping rows on a cron schedule. Read
// notifications and delivered outbox messages are deleted once they pass
// their configured age. The audit log is never touched.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"logitrack/config"
	"logitrack/logging"
	"logitrack/store"
	"logitrack/workflow"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Result reports how many rows one run removed.
type Result struct {
	Notifications int64 `json:"notifications"`
	Outbox        int64 `json:"outbox"`
}

type Purger struct {
	db    *store.DB
	cfg   config.RetentionConfig
	cron  *cron.Cron
	clock workflow.Clock
	logFn logging.LogFunc
}

// NewPurger validates the schedule and returns an unstarted purger.
func NewPurger(db *store.DB, cfg config.RetentionConfig, logFn logging.LogFunc) (*Purger, error) {
	if logFn == nil {
		logFn = log.Printf
	}
	if _, err := cronParser.Parse(cfg.Schedule); err != nil {
		return nil, workflow.Configuration("retention schedule %q: %v", cfg.Schedule, err)
	}
	if cfg.NotificationDays <= 0 || cfg.OutboxDays <= 0 {
		return nil, workflow.Configuration("retention days must be positive")
	}
	return &Purger{
		db:    db,
		cfg:   cfg,
		cron:  cron.New(cron.WithParser(cronParser)),
		clock: workflow.SystemClock,
		logFn: logFn,
	}, nil
}

func (p *Purger) SetClock(c workflow.Clock) { p.clock = c }

// Start schedules RunOnce.
func (p *Purger) Start() error {
	_, err := p.cron.AddFunc(p.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := p.RunOnce(ctx); err != nil {
			p.logFn("retention: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention: %w", err)
	}
	p.cron.Start()
	p.logFn("retention: scheduled %q (notifications %dd, outbox %dd)", p.cfg.Schedule, p.cfg.NotificationDays, p.cfg.OutboxDays)
	return nil
}

// Stop waits for a running purge to finish.
func (p *Purger) Stop() {
	<-p.cron.Stop().Done()
}

// RunOnce applies both retention rules now.
func (p *Purger) RunOnce(ctx context.Context) (Result, error) {
	var r Result
	now := p.clock()

	n, err := p.db.PurgeReadNotifications(ctx, now.AddDate(0, 0, -p.cfg.NotificationDays))
	if err != nil {
		return r, fmt.Errorf("purge notifications: %w", err)
	}
	r.Notifications = n

	n, err = p.db.PurgeSentOutbox(ctx, now.AddDate(0, 0, -p.cfg.OutboxDays))
	if err != nil {
		return r, fmt.Errorf("purge outbox: %w", err)
	}
	r.Outbox = n

	if r.Notifications > 0 || r.Outbox > 0 {
		p.logFn("retention: removed %d notifications, %d outbox messages", r.Notifications, r.Outbox)
	}
	return r, nil
}
