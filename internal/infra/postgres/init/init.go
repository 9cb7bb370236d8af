package infra_pg_init

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/reelroom/core/internal/config"
)

func MustEstablishConn(cfg config.Postgres) *sqlx.DB {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatal(err)
	}

	return db
}

// MustMigrate applies the schema. Safe to call on every start, every
// statement is IF NOT EXISTS.
func MustMigrate(db *sqlx.DB) {
	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL,
    agreement_count INT NOT NULL CHECK (agreement_count >= 2),
    status TEXT NOT NULL DEFAULT 'WAITING'
        CHECK (status IN ('WAITING', 'ACTIVE', 'MATCHED', 'CLOSED')),
    media_type TEXT NOT NULL DEFAULT '',
    genres TEXT[] NOT NULL DEFAULT '{}',
    filters_applied BOOLEAN NOT NULL DEFAULT FALSE,
    matched_item_id TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS participants (
    room_id UUID NOT NULL REFERENCES rooms(id),
    user_id UUID NOT NULL,
    joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS queue_meta (
    room_id UUID PRIMARY KEY REFERENCES rooms(id),
    cursor_index INT NOT NULL DEFAULT 0,
    fetched_batches INT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'EXHAUSTED')),
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS queue_items (
    room_id UUID NOT NULL REFERENCES rooms(id),
    sequence_index INT NOT NULL,
    batch_number INT NOT NULL,
    item_id TEXT NOT NULL,
    title TEXT NOT NULL,
    poster_ref TEXT NOT NULL DEFAULT '',
    synopsis TEXT NOT NULL DEFAULT '',
    rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    release_date TEXT NOT NULL DEFAULT '',
    media_type TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (room_id, sequence_index),
    UNIQUE (room_id, item_id)
);

CREATE TABLE IF NOT EXISTS votes (
    room_id UUID NOT NULL REFERENCES rooms(id),
    user_id UUID NOT NULL,
    item_id TEXT NOT NULL,
    vote_type TEXT NOT NULL CHECK (vote_type IN ('LIKE', 'DISLIKE')),
    cast_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (room_id, user_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_room_item ON votes(room_id, item_id);
CREATE INDEX IF NOT EXISTS idx_queue_items_expiry ON queue_items(expires_at);
`
