package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables on an empty database.  Statements are
// idempotent so Migrate runs on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(150) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		company_name  VARCHAR(200) NOT NULL DEFAULT '',
		email         VARCHAR(255) NULL,
		phone         VARCHAR(50)  NOT NULL DEFAULT '',
		region        VARCHAR(100) NOT NULL DEFAULT '',
		is_admin      BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS shows (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id       BIGINT UNSIGNED NULL,
		company_name  VARCHAR(200)  NOT NULL DEFAULT '',
		title         VARCHAR(200)  NOT NULL,
		description   TEXT          NOT NULL,
		category      VARCHAR(200)  NOT NULL DEFAULT '',
		location      VARCHAR(500)  NOT NULL DEFAULT '',
		region        VARCHAR(100)  NOT NULL DEFAULT '',
		age_range     VARCHAR(50)   NOT NULL DEFAULT '',
		latitude      DOUBLE        NULL,
		longitude     DOUBLE        NULL,
		date          DATE          NULL,
		is_event      BOOLEAN       NOT NULL DEFAULT FALSE,
		contact_email VARCHAR(255)  NULL,
		contact_phone VARCHAR(50)   NOT NULL DEFAULT '',
		website       VARCHAR(255)  NOT NULL DEFAULT '',
		file_name     VARCHAR(255)  NOT NULL DEFAULT '',
		file_mimetype VARCHAR(100)  NOT NULL DEFAULT '',
		approved      BOOLEAN       NOT NULL DEFAULT FALSE,
		display_order INT           NOT NULL DEFAULT 0,
		created_at    DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_shows_approved (approved, display_order, created_at),
		CONSTRAINT fk_shows_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS animation_requests (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title           VARCHAR(1000) NOT NULL DEFAULT '',
		organisation    VARCHAR(200)  NOT NULL,
		contact_name    VARCHAR(150)  NOT NULL,
		phone           VARCHAR(50)   NOT NULL,
		contact_email   VARCHAR(255)  NOT NULL,
		city            VARCHAR(200)  NOT NULL,
		postal_code     VARCHAR(10)   NOT NULL DEFAULT '',
		region          VARCHAR(100)  NOT NULL DEFAULT '',
		dates           VARCHAR(200)  NOT NULL,
		venue_type      VARCHAR(100)  NOT NULL,
		wanted_category VARCHAR(100)  NOT NULL,
		age_range       VARCHAR(50)   NOT NULL,
		audience        VARCHAR(50)   NOT NULL,
		budget          VARCHAR(100)  NOT NULL,
		technical_constraints TEXT    NULL,
		accessibility   VARCHAR(100)  NOT NULL DEFAULT '',
		is_private      BOOLEAN       NOT NULL DEFAULT FALSE,
		created_at      DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
