package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"logitrack/audit"
	"logitrack/catalog"
	"logitrack/coil"
	"logitrack/config"
	"logitrack/heat"
	"logitrack/livestate"
	"logitrack/logging"
	"logitrack/messaging"
	"logitrack/notify"
	"logitrack/progression"
	"logitrack/retention"
	"logitrack/store"
	"logitrack/workflow"
)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	// Redis and MsgClient are optional. Without Redis the board is served
	// from SQL; without a client the outbox accumulates until one connects.
	Redis     *livestate.RedisStore
	MsgClient *messaging.Client
	LogFunc   logging.LogFunc
	Clock     workflow.Clock
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	redis      *livestate.RedisStore
	msgClient  *messaging.Client
	clock      workflow.Clock
	Events     *EventBus
	logFn      logging.LogFunc

	catalog  *catalog.Catalog
	audit    *audit.Recorder
	coils    *coil.Ledger
	heats    *heat.Lifecycle
	pipes    *progression.Engine
	notifier *notify.Emitter
	board    *livestate.Manager
	drainer  *messaging.OutboxDrainer
	purger   *retention.Purger

	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	connMu         sync.Mutex
	msgConnected   bool
	redisConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	clock := c.Clock
	if clock == nil {
		clock = workflow.SystemClock
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		redis:      c.Redis,
		msgClient:  c.MsgClient,
		clock:      clock,
		Events:     NewEventBus(logFn),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
}

// LoadCatalog seeds missing reference rows, then loads and validates the
// catalog. A failed validation is a configuration error and the service
// must not start.
func LoadCatalog(ctx context.Context, db *store.DB) (*catalog.Catalog, error) {
	if err := catalog.Seed(ctx, db); err != nil {
		return nil, workflow.Persistence(err)
	}
	cat, err := catalog.Load(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Start builds every component, wires the event handlers and starts the
// background loops.
func (e *Engine) Start(ctx context.Context) error {
	cat, err := LoadCatalog(ctx, e.db)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	e.catalog = cat

	e.audit = audit.NewRecorder(e.db, e.logFn)
	e.audit.SetClock(e.clock)

	e.notifier = notify.New(e.db, &notifyEmitter{bus: e.Events}, notify.Config{
		Topic:     e.cfg.Messaging.EventsTopic,
		StationID: e.cfg.Messaging.StationID,
	}, e.logFn)
	e.notifier.SetClock(e.clock)

	e.coils = coil.NewLedger(e.db, e.audit, &coilEmitter{bus: e.Events}, e.logFn)
	e.coils.SetClock(e.clock)

	e.heats = heat.NewLifecycle(e.db, cat, e.coils, e.audit, &heatEmitter{bus: e.Events}, e.notifier, heat.Config{
		ReceptionStandard:    e.cfg.Workflow.ReceptionStandard,
		InstallationStandard: e.cfg.Workflow.InstallationStandard,
	}, e.logFn)
	e.heats.SetClock(e.clock)

	e.pipes = progression.NewEngine(e.db, cat, e.audit, &pipeEmitter{bus: e.Events}, e.notifier, e.logFn)
	e.pipes.SetClock(e.clock)

	e.board = livestate.NewManager(e.db, e.redis, e.logFn)

	e.wireEventHandlers()

	if err := e.board.SyncFromSQL(ctx); err != nil {
		e.logFn("engine: livestate sync: %v", err)
	}

	if e.msgClient != nil {
		e.drainer = messaging.NewOutboxDrainer(e.db, e.msgClient, e.cfg.Messaging.OutboxDrainInterval, e.logFn)
		e.drainer.Start()
	}

	purger, err := retention.NewPurger(e.db, e.cfg.Retention, e.logFn)
	if err != nil {
		e.logFn("engine: retention disabled: %v", err)
	} else if err := purger.Start(); err != nil {
		e.logFn("engine: retention disabled: %v", err)
	} else {
		e.purger = purger
	}

	// Emit initial connection status
	e.checkConnectionStatus(ctx)

	e.wg.Add(1)
	go e.connectionHealthLoop()

	e.logFn("engine: started (%d steps, %d delay reasons)", cat.Len(), len(cat.ListDelayReasons("")))
	return nil
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()
	if e.drainer != nil {
		e.drainer.Stop()
	}
	if e.purger != nil {
		e.purger.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                      { return e.db }
func (e *Engine) AppConfig() *config.Config          { return e.cfg }
func (e *Engine) ConfigPath() string                 { return e.configPath }
func (e *Engine) Catalog() *catalog.Catalog          { return e.catalog }
func (e *Engine) Audit() *audit.Recorder             { return e.audit }
func (e *Engine) Coils() *coil.Ledger                { return e.coils }
func (e *Engine) Heats() *heat.Lifecycle             { return e.heats }
func (e *Engine) Pipes() *progression.Engine         { return e.pipes }
func (e *Engine) Notifications() *notify.Emitter     { return e.notifier }
func (e *Engine) Board() *livestate.Manager          { return e.board }
func (e *Engine) MsgClient() *messaging.Client       { return e.msgClient }
func (e *Engine) Drainer() *messaging.OutboxDrainer  { return e.drainer }
func (e *Engine) LogFunc() logging.LogFunc           { return e.logFn }

// Status summarises backend connectivity for the health endpoint.
type Status struct {
	Messaging bool `json:"messaging"`
	Redis     bool `json:"redis"`
	Database  bool `json:"database"`
}

func (e *Engine) Status(ctx context.Context) Status {
	s := Status{Database: e.db.PingContext(ctx) == nil}
	if e.msgClient != nil {
		s.Messaging = e.msgClient.IsConnected()
	}
	if e.redis != nil {
		s.Redis = e.redis.Ping(ctx) == nil
	}
	return s
}

func (e *Engine) checkConnectionStatus(ctx context.Context) {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	// Messaging
	if e.msgClient != nil {
		if e.msgClient.IsConnected() {
			if !e.msgConnected {
				e.msgConnected = true
				e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
			}
		} else if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}

	// Redis
	if e.redis != nil {
		if err := e.redis.Ping(ctx); err == nil {
			if !e.redisConnected {
				e.redisConnected = true
				e.Events.Emit(Event{Type: EventRedisConnected, Payload: ConnectionEvent{Detail: "redis connected"}})
			}
		} else if e.redisConnected {
			e.redisConnected = false
			e.Events.Emit(Event{Type: EventRedisDisconnected, Payload: ConnectionEvent{Detail: err.Error()}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			e.checkConnectionStatus(ctx)
			cancel()
		}
	}
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured")
	}
	e.checkConnectionStatus(context.Background())
}
