package messaging

import (
	"context"
	"log"
	"sync"
	"time"

	"logitrack/logging"
	"logitrack/store"
)

const (
	// MaxRetries is how many failed publishes a message gets before the
	// drainer leaves it for an operator to inspect.
	MaxRetries = 10
	drainBatch = 50
)

// Publisher is the part of Client the drainer needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// OutboxDrainer periodically sends pending outbox messages.
type OutboxDrainer struct {
	db       *store.DB
	client   Publisher
	interval time.Duration
	logFn    logging.LogFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewOutboxDrainer(db *store.DB, client Publisher, interval time.Duration, logFn logging.LogFunc) *OutboxDrainer {
	if logFn == nil {
		logFn = log.Printf
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{
		db:       db,
		client:   client,
		interval: interval,
		logFn:    logFn,
		stopChan: make(chan struct{}),
	}
}

// Start begins the outbox drain loop.
func (d *OutboxDrainer) Start() {
	d.wg.Add(1)
	go d.drainLoop()
}

// Stop stops the outbox drain loop and waits for it to exit.
func (d *OutboxDrainer) Stop() {
	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}
	d.wg.Wait()
}

func (d *OutboxDrainer) drainLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Drain(context.Background())
		}
	}
}

// Drain publishes one batch of pending messages and returns how many were
// acknowledged.
func (d *OutboxDrainer) Drain(ctx context.Context) int {
	if !d.client.IsConnected() {
		return 0
	}
	msgs, err := d.db.ListPendingOutbox(ctx, MaxRetries, drainBatch)
	if err != nil {
		d.logFn("outbox: list pending: %v", err)
		return 0
	}
	sent := 0
	for _, msg := range msgs {
		if err := d.client.Publish(msg.Topic, msg.Payload); err != nil {
			d.logFn("outbox: publish %s msg %d to %s failed: %v", msg.MsgType, msg.ID, msg.Topic, err)
			if err := d.db.IncrementOutboxRetries(ctx, msg.ID); err != nil {
				d.logFn("outbox: increment retries %d: %v", msg.ID, err)
			}
			continue
		}
		if err := d.db.AckOutbox(ctx, msg.ID, time.Now().UTC()); err != nil {
			d.logFn("outbox: ack msg %d: %v", msg.ID, err)
			continue
		}
		sent++
	}
	return sent
}
