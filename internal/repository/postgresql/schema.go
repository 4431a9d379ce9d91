package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		name VARCHAR(100) NOT NULL,
		city VARCHAR(50) NOT NULL,
		pincode VARCHAR(6) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		state VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (state IN ('active', 'deleted')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS parking_lots (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) UNIQUE NOT NULL,
		address VARCHAR(200) NOT NULL,
		city VARCHAR(50) NOT NULL,
		pincode VARCHAR(6) NOT NULL,
		price_per_hour DOUBLE PRECISION NOT NULL CHECK (price_per_hour >= 0),
		spot_count INTEGER NOT NULL CHECK (spot_count >= 0),
		state VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (state IN ('active', 'deleted')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS parking_spots (
		id SERIAL PRIMARY KEY,
		lot_id INTEGER NOT NULL REFERENCES parking_lots(id),
		seq INTEGER NOT NULL,
		spot_number VARCHAR(16) NOT NULL,
		occupied BOOLEAN NOT NULL DEFAULT FALSE,
		state VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (state IN ('active', 'deleted')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (lot_id, seq)
	);`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		spot_id INTEGER NOT NULL REFERENCES parking_spots(id),
		vehicle_number VARCHAR(20) NOT NULL,
		in_time TIMESTAMPTZ NOT NULL,
		out_time TIMESTAMPTZ,
		hours INTEGER,
		total_cost DOUBLE PRECISION,
		is_release BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (is_release = (out_time IS NOT NULL))
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS reservations_one_active_per_spot
		ON reservations (spot_id) WHERE is_release = FALSE;`,
	`CREATE INDEX IF NOT EXISTS reservations_user_id_idx ON reservations (user_id);`,
	`CREATE INDEX IF NOT EXISTS parking_spots_lot_id_idx ON parking_spots (lot_id, state);`,
}

// Migrate creates the schema idempotently.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
