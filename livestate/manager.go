// Package livestate keeps a Redis copy of each heat's pipe board so that
// displays can poll it without touching the database. SQL stays the source
// of truth: every refresh reads SQL, then writes Redis.
package livestate

import (
	"context"
	"log"
	"sort"

	"logitrack/logging"
	"logitrack/store"
	"logitrack/workflow"
)

type Manager struct {
	db    *store.DB
	redis *RedisStore
	logFn logging.LogFunc
}

// NewManager returns a manager. A nil redis store serves every read from SQL.
func NewManager(db *store.DB, redis *RedisStore, logFn logging.LogFunc) *Manager {
	if logFn == nil {
		logFn = log.Printf
	}
	return &Manager{db: db, redis: redis, logFn: logFn}
}

// RefreshPipe rewrites the card of one pipe. Failures are logged only.
func (m *Manager) RefreshPipe(ctx context.Context, pipeID int64) {
	if m.redis == nil {
		return
	}
	var heatID int64
	var card PipeCard
	err := m.db.View(ctx, func(tx *store.Tx) error {
		p, err := tx.GetPipe(ctx, pipeID)
		if err != nil {
			return err
		}
		heatID = p.HeatID
		card, err = cardFor(ctx, tx, p)
		return err
	})
	if err != nil {
		m.logFn("livestate: refresh pipe %d: %v", pipeID, err)
		return
	}
	if err := m.redis.SetPipe(ctx, heatID, card); err != nil {
		m.logFn("livestate: write pipe %d: %v", pipeID, err)
	}
}

// RefreshHeat rebuilds the whole board of a heat.
func (m *Manager) RefreshHeat(ctx context.Context, heatID int64) {
	if m.redis == nil {
		return
	}
	b, err := m.boardFromSQL(ctx, heatID)
	if err != nil {
		m.logFn("livestate: refresh heat %d: %v", heatID, err)
		return
	}
	if err := m.redis.ReplaceBoard(ctx, heatID, b.Pipes); err != nil {
		m.logFn("livestate: write heat %d: %v", heatID, err)
	}
}

// HeatBoard reads the board from Redis, falling back to SQL when Redis is
// unavailable or has nothing for the heat.
func (m *Manager) HeatBoard(ctx context.Context, heatID int64) (*Board, error) {
	if m.redis != nil {
		cards, err := m.redis.GetBoard(ctx, heatID)
		if err == nil && len(cards) > 0 {
			sort.Slice(cards, func(i, j int) bool { return cards[i].Number < cards[j].Number })
			return &Board{HeatID: heatID, Pipes: cards, Source: "redis"}, nil
		}
		if err != nil {
			m.logFn("livestate: read heat %d from redis: %v", heatID, err)
		}
	}
	b, err := m.boardFromSQL(ctx, heatID)
	return b, store.Classify(err)
}

// SyncFromSQL rebuilds Redis from SQL for every heat in production. Called
// on startup.
func (m *Manager) SyncFromSQL(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	if err := m.redis.FlushAll(ctx); err != nil {
		return err
	}
	var heats []*store.Heat
	err := m.db.View(ctx, func(tx *store.Tx) error {
		var err error
		heats, err = tx.ListHeats(ctx, "in_production")
		return err
	})
	if err != nil {
		return err
	}
	for _, h := range heats {
		m.RefreshHeat(ctx, h.ID)
	}
	m.logFn("livestate: synced %d heats to redis", len(heats))
	return nil
}

func (m *Manager) boardFromSQL(ctx context.Context, heatID int64) (*Board, error) {
	b := &Board{HeatID: heatID, Source: "sql", Pipes: []PipeCard{}}
	err := m.db.View(ctx, func(tx *store.Tx) error {
		h, err := tx.GetHeat(ctx, heatID)
		if store.IsNotFound(err) {
			return workflow.NotFound("heat %d not found", heatID)
		}
		if err != nil {
			return err
		}
		b.HeatNumber = h.Number
		pipes, err := tx.ListPipes(ctx, heatID)
		if err != nil {
			return err
		}
		for _, p := range pipes {
			card, err := cardFor(ctx, tx, p)
			if err != nil {
				return err
			}
			b.Pipes = append(b.Pipes, card)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func cardFor(ctx context.Context, tx *store.Tx, p *store.Pipe) (PipeCard, error) {
	card := PipeCard{
		PipeID:    p.ID,
		Number:    p.Number,
		Step:      p.CurrentStep,
		Status:    p.Status,
		Decision:  p.Decision,
		UpdatedAt: p.UpdatedAt,
	}
	s, err := tx.GetPipeStep(ctx, p.ID, p.CurrentStep)
	switch {
	case store.IsNotFound(err):
	case err != nil:
		return card, err
	default:
		card.StepCode = s.StepCode
		card.StepState = s.Status
	}
	return card, nil
}
