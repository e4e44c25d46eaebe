package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'teacher', 'student')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS stashes (
    id               INTEGER PRIMARY KEY,
    course_id        INTEGER NOT NULL UNIQUE,
    name             TEXT NOT NULL,
    enabled          INTEGER NOT NULL DEFAULT 1,
    swapping_enabled INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id             INTEGER PRIMARY KEY,
    stash_id       INTEGER NOT NULL REFERENCES stashes(id),
    name           TEXT NOT NULL,
    detail         TEXT,
    amount_limit   INTEGER CHECK (amount_limit IS NULL OR amount_limit > 0),
    current_amount INTEGER NOT NULL DEFAULT 0 CHECK (current_amount >= 0),
    image          BLOB,
    image_mime     TEXT,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (amount_limit IS NULL OR current_amount <= amount_limit)
);

CREATE INDEX IF NOT EXISTS idx_items_stash ON items(stash_id);

CREATE TABLE IF NOT EXISTS user_items (
    id         INTEGER PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    item_id    INTEGER NOT NULL REFERENCES items(id),
    quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    version    TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_user_items_version ON user_items(version);
CREATE INDEX IF NOT EXISTS idx_user_items_item ON user_items(item_id);

CREATE TABLE IF NOT EXISTS drops (
    id              INTEGER PRIMARY KEY,
    item_id         INTEGER NOT NULL REFERENCES items(id),
    name            TEXT NOT NULL,
    max_pickup      INTEGER CHECK (max_pickup IS NULL OR max_pickup > 0),
    pickup_interval INTEGER NOT NULL DEFAULT 3600 CHECK (pickup_interval >= 0),
    hashcode        TEXT NOT NULL UNIQUE,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS drop_pickups (
    id           INTEGER PRIMARY KEY,
    drop_id      INTEGER NOT NULL REFERENCES drops(id),
    user_id      INTEGER NOT NULL REFERENCES users(id),
    pickup_count INTEGER NOT NULL DEFAULT 0 CHECK (pickup_count >= 0),
    last_pickup  DATETIME,
    UNIQUE (drop_id, user_id)
);

CREATE TABLE IF NOT EXISTS trades (
    id         INTEGER PRIMARY KEY,
    stash_id   INTEGER NOT NULL REFERENCES stashes(id),
    name       TEXT NOT NULL,
    gain_title TEXT NOT NULL,
    loss_title TEXT NOT NULL,
    hashcode   TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trade_items (
    id       INTEGER PRIMARY KEY,
    trade_id INTEGER NOT NULL REFERENCES trades(id),
    item_id  INTEGER NOT NULL REFERENCES items(id),
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    gain     INTEGER NOT NULL,
    UNIQUE (trade_id, item_id, gain)
);

CREATE TABLE IF NOT EXISTS swaps (
    id           INTEGER PRIMARY KEY,
    stash_id     INTEGER NOT NULL REFERENCES stashes(id),
    initiator_id INTEGER NOT NULL REFERENCES users(id),
    receiver_id  INTEGER NOT NULL REFERENCES users(id),
    message      TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'viewed', 'declined', 'completed')),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_swaps_receiver ON swaps(stash_id, receiver_id);
CREATE INDEX IF NOT EXISTS idx_swaps_initiator ON swaps(stash_id, initiator_id);

CREATE TABLE IF NOT EXISTS swap_details (
    id           INTEGER PRIMARY KEY,
    swap_id      INTEGER NOT NULL REFERENCES swaps(id),
    user_item_id INTEGER NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity > 0)
);

CREATE INDEX IF NOT EXISTS idx_swap_details_swap ON swap_details(swap_id);

CREATE TABLE IF NOT EXISTS removals (
    id          INTEGER PRIMARY KEY,
    stash_id    INTEGER NOT NULL REFERENCES stashes(id),
    module_name TEXT NOT NULL,
    cm_id       INTEGER NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    UNIQUE (stash_id, cm_id)
);

CREATE TABLE IF NOT EXISTS removal_items (
    id         INTEGER PRIMARY KEY,
    removal_id INTEGER NOT NULL REFERENCES removals(id),
    item_id    INTEGER NOT NULL REFERENCES items(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS leaderboard_settings (
    id        INTEGER PRIMARY KEY,
    stash_id  INTEGER NOT NULL REFERENCES stashes(id),
    board     TEXT NOT NULL CHECK (board IN ('unique_items', 'most_of_item')),
    row_limit INTEGER NOT NULL DEFAULT 5 CHECK (row_limit BETWEEN 1 AND 100),
    UNIQUE (stash_id, board)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
