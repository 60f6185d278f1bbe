package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS step_definitions (
    number       INTEGER PRIMARY KEY,
    code         TEXT NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    mandatory    BOOLEAN NOT NULL DEFAULT TRUE,
    standard_min INTEGER NOT NULL DEFAULT 0,
    color        TEXT NOT NULL DEFAULT '',
    icon         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS delay_reasons (
    id          BIGSERIAL PRIMARY KEY,
    code        TEXT NOT NULL UNIQUE,
    label       TEXT NOT NULL,
    category    TEXT NOT NULL,
    checkpoint  TEXT NOT NULL,
    active      BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_delay_reasons_checkpoint ON delay_reasons(checkpoint);

CREATE TABLE IF NOT EXISTS coils (
    id              BIGSERIAL PRIMARY KEY,
    code            TEXT NOT NULL UNIQUE,
    thickness       DOUBLE PRECISION NOT NULL DEFAULT 0,
    width           DOUBLE PRECISION NOT NULL DEFAULT 0,
    weight          DOUBLE PRECISION NOT NULL DEFAULT 0,
    supplier        TEXT NOT NULL DEFAULT '',
    grade           TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'in_stock',
    created_by_id   BIGINT NOT NULL DEFAULT 0,
    created_by_name TEXT NOT NULL DEFAULT '',
    updated_by_id   BIGINT NOT NULL DEFAULT 0,
    updated_by_name TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coils_status ON coils(status);

CREATE TABLE IF NOT EXISTS heats (
    id                           BIGSERIAL PRIMARY KEY,
    number                       TEXT NOT NULL UNIQUE,
    coil_id                      BIGINT REFERENCES coils(id),
    grade                        TEXT NOT NULL DEFAULT '',
    carbon_pct                   DOUBLE PRECISION NOT NULL DEFAULT 0,
    manganese_pct                DOUBLE PRECISION NOT NULL DEFAULT 0,
    yield_strength               DOUBLE PRECISION NOT NULL DEFAULT 0,
    tensile_strength             DOUBLE PRECISION NOT NULL DEFAULT 0,
    certified                    BOOLEAN NOT NULL DEFAULT FALSE,
    certified_at                 TIMESTAMPTZ,
    status                       TEXT NOT NULL DEFAULT 'in_progress',
    reception_expected_at        TIMESTAMPTZ,
    coil_received                BOOLEAN NOT NULL DEFAULT FALSE,
    coil_received_at             TIMESTAMPTZ,
    reception_delay_min          INTEGER NOT NULL DEFAULT 0,
    reception_delay_reason_id    BIGINT REFERENCES delay_reasons(id),
    installation_expected_at     TIMESTAMPTZ,
    coil_installed               BOOLEAN NOT NULL DEFAULT FALSE,
    coil_installed_at            TIMESTAMPTZ,
    installation_delay_min       INTEGER NOT NULL DEFAULT 0,
    installation_delay_reason_id BIGINT REFERENCES delay_reasons(id),
    checklist_validated          BOOLEAN NOT NULL DEFAULT FALSE,
    checklist_validated_at       TIMESTAMPTZ,
    cancel_reason                TEXT NOT NULL DEFAULT '',
    created_by_id                BIGINT NOT NULL DEFAULT 0,
    created_by_name              TEXT NOT NULL DEFAULT '',
    updated_by_id                BIGINT NOT NULL DEFAULT 0,
    updated_by_name              TEXT NOT NULL DEFAULT '',
    created_at                   TIMESTAMPTZ NOT NULL,
    updated_at                   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_heats_status ON heats(status);
CREATE INDEX IF NOT EXISTS idx_heats_coil ON heats(coil_id);

CREATE TABLE IF NOT EXISTS pipes (
    id              BIGSERIAL PRIMARY KEY,
    heat_id         BIGINT NOT NULL REFERENCES heats(id),
    number          INTEGER NOT NULL,
    diameter        DOUBLE PRECISION NOT NULL DEFAULT 0,
    length          DOUBLE PRECISION NOT NULL DEFAULT 0,
    thickness       DOUBLE PRECISION NOT NULL DEFAULT 0,
    weight          DOUBLE PRECISION NOT NULL DEFAULT 0,
    current_step    INTEGER NOT NULL DEFAULT 1,
    status          TEXT NOT NULL DEFAULT 'in_production',
    decision        TEXT NOT NULL DEFAULT '',
    created_by_id   BIGINT NOT NULL DEFAULT 0,
    created_by_name TEXT NOT NULL DEFAULT '',
    updated_by_id   BIGINT NOT NULL DEFAULT 0,
    updated_by_name TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    UNIQUE(heat_id, number),
    CHECK (current_step BETWEEN 1 AND 13)
);
CREATE INDEX IF NOT EXISTS idx_pipes_heat ON pipes(heat_id);

CREATE TABLE IF NOT EXISTS pipe_steps (
    id              BIGSERIAL PRIMARY KEY,
    pipe_id         BIGINT NOT NULL REFERENCES pipes(id) ON DELETE CASCADE,
    step_number     INTEGER NOT NULL REFERENCES step_definitions(number),
    step_code       TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    started_at      TIMESTAMPTZ,
    ended_at        TIMESTAMPTZ,
    duration_min    INTEGER NOT NULL DEFAULT 0,
    standard_min    INTEGER NOT NULL DEFAULT 0,
    delay_min       INTEGER NOT NULL DEFAULT 0,
    delay_reason_id BIGINT REFERENCES delay_reasons(id),
    operator_id     BIGINT NOT NULL DEFAULT 0,
    operator_name   TEXT NOT NULL DEFAULT '',
    comment         TEXT NOT NULL DEFAULT '',
    defect          TEXT NOT NULL DEFAULT '',
    correction      TEXT NOT NULL DEFAULT '',
    skip_reason     TEXT NOT NULL DEFAULT '',
    offline         BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at      TIMESTAMPTZ NOT NULL,
    UNIQUE(pipe_id, step_number)
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   BIGINT NOT NULL DEFAULT 0,
    actor_id    BIGINT NOT NULL DEFAULT 0,
    actor_name  TEXT NOT NULL DEFAULT 'system',
    actor_role  TEXT NOT NULL DEFAULT '',
    ip          TEXT NOT NULL DEFAULT '',
    detail      JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS notifications (
    id          BIGSERIAL PRIMARY KEY,
    kind        TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    body        JSONB NOT NULL DEFAULT '{}',
    severity    TEXT NOT NULL DEFAULT 'info',
    is_read     BOOLEAN NOT NULL DEFAULT FALSE,
    read_at     TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(is_read, created_at);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    station_id  TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL,
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS operators (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    display_name  TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'operator',
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
);
`
