package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/specialisthub/internal/config"
)

// Connect opens the pgx pool and pings it once.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifeTime > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeTime) * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Println("Connected to Postgres successfully")
	return pool, nil
}

// EnsureSchema creates the listing tables when missing and backfills columns
// added after the first release. Safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	// purchases_count shipped later than the table itself
	if err := ensureColumn(ctx, pool, "specialists", "purchases_count", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}

	log.Printf("specialist schema ensured")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS specialists (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        average_rating NUMERIC(5,2) DEFAULT 0,
        is_draft BOOLEAN NOT NULL DEFAULT TRUE,
        total_number_of_ratings INTEGER NOT NULL DEFAULT 0,
        title VARCHAR(255) NOT NULL,
        slug VARCHAR(255) NOT NULL,
        description TEXT,
        base_price NUMERIC(10,2) NOT NULL,
        platform_fee NUMERIC(10,2),
        final_price NUMERIC(10,2) NOT NULL,
        verification_status TEXT NOT NULL DEFAULT 'pending'
            CHECK (verification_status IN ('pending','approved','rejected','under-review')),
        is_verified BOOLEAN NOT NULL DEFAULT FALSE,
        duration_days INTEGER NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        deleted_at TIMESTAMPTZ
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_specialists_slug ON specialists (slug)`,
	`CREATE INDEX IF NOT EXISTS idx_specialists_deleted_at ON specialists (deleted_at)`,
	`CREATE TABLE IF NOT EXISTS service_offerings (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        specialist_id UUID NOT NULL REFERENCES specialists(id) ON DELETE CASCADE,
        name VARCHAR(255) NOT NULL,
        description TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_service_offerings_specialist_id ON service_offerings (specialist_id)`,
	`CREATE TABLE IF NOT EXISTS media (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        specialist_id UUID NOT NULL REFERENCES specialists(id) ON DELETE CASCADE,
        file_name VARCHAR(255) NOT NULL,
        file_path VARCHAR(500),
        file_size INTEGER NOT NULL DEFAULT 0,
        display_order INTEGER NOT NULL DEFAULT 0,
        mime_type TEXT,
        media_type TEXT NOT NULL DEFAULT 'image' CHECK (media_type IN ('image','video','document')),
        uploaded_at TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_media_specialist_slot ON media (specialist_id, display_order)`,
	`CREATE TABLE IF NOT EXISTS platform_fee (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        fee_name VARCHAR(100) NOT NULL,
        amount NUMERIC(10,2) NOT NULL,
        currency VARCHAR(10) NOT NULL DEFAULT 'MYR',
        description TEXT,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
}

// ensureColumn adds table.column if missing
func ensureColumn(ctx context.Context, pool *pgxpool.Pool, table, column, definition string) error {
	var exists bool
	err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.columns
            WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
        )`, table, column).Scan(&exists)
	if err != nil {
		return fmt.Errorf("schema check %s.%s: %w", table, column, err)
	}
	if exists {
		return nil
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, table, column, definition)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	log.Printf("%s.%s column ensured", table, column)
	return nil
}
