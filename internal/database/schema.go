package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds idempotent DDL for every table the service reads or
// writes. Statements run in order; foreign keys reference earlier tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                 CHAR(36)     NOT NULL PRIMARY KEY,
		email              VARCHAR(255) NOT NULL UNIQUE,
		password_hash      VARCHAR(255) NOT NULL,
		email_confirmed_at DATETIME     NULL,
		is_active          TINYINT(1)   NOT NULL DEFAULT 1,
		created_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id        CHAR(36)     NOT NULL PRIMARY KEY,
		email     VARCHAR(255) NULL,
		full_name VARCHAR(255) NULL,
		CONSTRAINT fk_profiles_user FOREIGN KEY (id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)        NOT NULL,
		token_hash CHAR(64)        NOT NULL UNIQUE,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS locations (
		id              VARCHAR(64)  NOT NULL PRIMARY KEY,
		position        INT          NOT NULL DEFAULT 0,
		name            VARCHAR(255) NOT NULL,
		address         VARCHAR(255) NOT NULL,
		description     TEXT         NOT NULL,
		operating_hours VARCHAR(64)  NOT NULL DEFAULT '24/7',
		contact_phone   VARCHAR(64)  NOT NULL DEFAULT '',
		rate_cents      INT UNSIGNED NOT NULL,
		rate_unit       ENUM('hourly','daily') NOT NULL DEFAULT 'hourly',
		is_secure       TINYINT(1)   NOT NULL DEFAULT 0,
		amenities       TEXT         NOT NULL,
		images          TEXT         NULL,
		CHECK (rate_cents > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS slots (
		location_id VARCHAR(64) NOT NULL,
		id          VARCHAR(32) NOT NULL,
		position    INT         NOT NULL DEFAULT 0,
		number      VARCHAR(32) NOT NULL,
		type        ENUM('standard','compact','premium','ev') NOT NULL DEFAULT 'standard',
		available   TINYINT(1)  NOT NULL DEFAULT 1,
		features    TEXT        NULL,
		PRIMARY KEY (location_id, id),
		CONSTRAINT fk_slots_location FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		location_id VARCHAR(64)     NOT NULL,
		author      VARCHAR(128)    NOT NULL,
		rating      TINYINT         NOT NULL,
		comment     TEXT            NOT NULL,
		review_date DATE            NOT NULL,
		CONSTRAINT fk_reviews_location FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             CHAR(36)     NOT NULL PRIMARY KEY,
		user_id        CHAR(36)     NOT NULL,
		location_id    VARCHAR(64)  NOT NULL,
		slot_id        VARCHAR(32)  NOT NULL,
		booking_date   DATE         NOT NULL,
		duration_hours TINYINT      NOT NULL,
		total_cents    INT UNSIGNED NOT NULL,
		status         VARCHAR(16)  NULL,
		add_ons        VARCHAR(255) NOT NULL DEFAULT '',
		created_at     DATETIME     NOT NULL,
		KEY idx_bookings_user_date (user_id, booking_date),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_bookings_location FOREIGN KEY (location_id) REFERENCES locations(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
