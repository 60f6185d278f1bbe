package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS step_definitions (
    number       INTEGER PRIMARY KEY,
    code         TEXT NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    mandatory    INTEGER NOT NULL DEFAULT 1,
    standard_min INTEGER NOT NULL DEFAULT 0,
    color        TEXT NOT NULL DEFAULT '',
    icon         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS delay_reasons (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    code        TEXT NOT NULL UNIQUE,
    label       TEXT NOT NULL,
    category    TEXT NOT NULL,
    checkpoint  TEXT NOT NULL,
    active      INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_delay_reasons_checkpoint ON delay_reasons(checkpoint);

CREATE TABLE IF NOT EXISTS coils (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    code            TEXT NOT NULL UNIQUE,
    thickness       REAL NOT NULL DEFAULT 0,
    width           REAL NOT NULL DEFAULT 0,
    weight          REAL NOT NULL DEFAULT 0,
    supplier        TEXT NOT NULL DEFAULT '',
    grade           TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'in_stock',
    created_by_id   INTEGER NOT NULL DEFAULT 0,
    created_by_name TEXT NOT NULL DEFAULT '',
    updated_by_id   INTEGER NOT NULL DEFAULT 0,
    updated_by_name TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coils_status ON coils(status);

CREATE TABLE IF NOT EXISTS heats (
    id                           INTEGER PRIMARY KEY AUTOINCREMENT,
    number                       TEXT NOT NULL UNIQUE,
    coil_id                      INTEGER REFERENCES coils(id),
    grade                        TEXT NOT NULL DEFAULT '',
    carbon_pct                   REAL NOT NULL DEFAULT 0,
    manganese_pct                REAL NOT NULL DEFAULT 0,
    yield_strength               REAL NOT NULL DEFAULT 0,
    tensile_strength             REAL NOT NULL DEFAULT 0,
    certified                    INTEGER NOT NULL DEFAULT 0,
    certified_at                 TEXT,
    status                       TEXT NOT NULL DEFAULT 'in_progress',
    reception_expected_at        TEXT,
    coil_received                INTEGER NOT NULL DEFAULT 0,
    coil_received_at             TEXT,
    reception_delay_min          INTEGER NOT NULL DEFAULT 0,
    reception_delay_reason_id    INTEGER REFERENCES delay_reasons(id),
    installation_expected_at     TEXT,
    coil_installed               INTEGER NOT NULL DEFAULT 0,
    coil_installed_at            TEXT,
    installation_delay_min       INTEGER NOT NULL DEFAULT 0,
    installation_delay_reason_id INTEGER REFERENCES delay_reasons(id),
    checklist_validated          INTEGER NOT NULL DEFAULT 0,
    checklist_validated_at       TEXT,
    cancel_reason                TEXT NOT NULL DEFAULT '',
    created_by_id                INTEGER NOT NULL DEFAULT 0,
    created_by_name              TEXT NOT NULL DEFAULT '',
    updated_by_id                INTEGER NOT NULL DEFAULT 0,
    updated_by_name              TEXT NOT NULL DEFAULT '',
    created_at                   TEXT NOT NULL,
    updated_at                   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_heats_status ON heats(status);
CREATE INDEX IF NOT EXISTS idx_heats_coil ON heats(coil_id);

CREATE TABLE IF NOT EXISTS pipes (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    heat_id         INTEGER NOT NULL REFERENCES heats(id),
    number          INTEGER NOT NULL,
    diameter        REAL NOT NULL DEFAULT 0,
    length          REAL NOT NULL DEFAULT 0,
    thickness       REAL NOT NULL DEFAULT 0,
    weight          REAL NOT NULL DEFAULT 0,
    current_step    INTEGER NOT NULL DEFAULT 1,
    status          TEXT NOT NULL DEFAULT 'in_production',
    decision        TEXT NOT NULL DEFAULT '',
    created_by_id   INTEGER NOT NULL DEFAULT 0,
    created_by_name TEXT NOT NULL DEFAULT '',
    updated_by_id   INTEGER NOT NULL DEFAULT 0,
    updated_by_name TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,
    UNIQUE(heat_id, number)
);
CREATE INDEX IF NOT EXISTS idx_pipes_heat ON pipes(heat_id);

CREATE TABLE IF NOT EXISTS pipe_steps (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    pipe_id         INTEGER NOT NULL REFERENCES pipes(id) ON DELETE CASCADE,
    step_number     INTEGER NOT NULL REFERENCES step_definitions(number),
    step_code       TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    started_at      TEXT,
    ended_at        TEXT,
    duration_min    INTEGER NOT NULL DEFAULT 0,
    standard_min    INTEGER NOT NULL DEFAULT 0,
    delay_min       INTEGER NOT NULL DEFAULT 0,
    delay_reason_id INTEGER REFERENCES delay_reasons(id),
    operator_id     INTEGER NOT NULL DEFAULT 0,
    operator_name   TEXT NOT NULL DEFAULT '',
    comment         TEXT NOT NULL DEFAULT '',
    defect          TEXT NOT NULL DEFAULT '',
    correction      TEXT NOT NULL DEFAULT '',
    skip_reason     TEXT NOT NULL DEFAULT '',
    offline         INTEGER NOT NULL DEFAULT 0,
    updated_at      TEXT NOT NULL,
    UNIQUE(pipe_id, step_number)
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL DEFAULT 0,
    actor_id    INTEGER NOT NULL DEFAULT 0,
    actor_name  TEXT NOT NULL DEFAULT 'system',
    actor_role  TEXT NOT NULL DEFAULT '',
    ip          TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS notifications (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    kind        TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    body        TEXT NOT NULL DEFAULT '{}',
    severity    TEXT NOT NULL DEFAULT 'info',
    is_read     INTEGER NOT NULL DEFAULT 0,
    read_at     TEXT,
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(is_read, created_at);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    station_id  TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL,
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS operators (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    display_name  TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'operator',
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL
);
`
