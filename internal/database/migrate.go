package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order.  Every statement is idempotent.
//
// movies.active_title is NULL for inactive rows, so the unique index
// only constrains titles among active movies.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		full_name     VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		is_admin      TINYINT(1)   NOT NULL DEFAULT 0,
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS halls (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(128) NOT NULL,
		is_active  TINYINT(1)   NOT NULL DEFAULT 1,
		created_at DATETIME     NOT NULL,
		UNIQUE KEY uq_halls_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS movies (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title        VARCHAR(255) NOT NULL,
		description  TEXT NULL,
		duration_min INT UNSIGNED NOT NULL,
		genre        VARCHAR(64)  NOT NULL DEFAULT '',
		is_active    TINYINT(1)   NOT NULL DEFAULT 1,
		active_title VARCHAR(255) GENERATED ALWAYS AS (IF(is_active = 1, LOWER(title), NULL)) STORED,
		created_at   DATETIME     NOT NULL,
		updated_at   DATETIME     NOT NULL,
		UNIQUE KEY uq_movies_active_title (active_title),
		CONSTRAINT chk_movies_duration CHECK (duration_min > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS showtimes (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		movie_id        BIGINT UNSIGNED NOT NULL,
		hall_id         BIGINT UNSIGNED NULL,
		start_time      DATETIME NOT NULL,
		end_time        DATETIME NOT NULL,
		total_seats     INT UNSIGNED NOT NULL,
		available_seats INT UNSIGNED NOT NULL,
		version         BIGINT UNSIGNED NOT NULL DEFAULT 0,
		is_active       TINYINT(1) NOT NULL DEFAULT 1,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL,
		KEY idx_showtimes_hall_time (hall_id, start_time, end_time),
		KEY idx_showtimes_movie (movie_id),
		CONSTRAINT fk_showtimes_movie FOREIGN KEY (movie_id) REFERENCES movies (id),
		CONSTRAINT fk_showtimes_hall FOREIGN KEY (hall_id) REFERENCES halls (id),
		CONSTRAINT chk_showtimes_seats CHECK (total_seats > 0 AND available_seats <= total_seats),
		CONSTRAINT chk_showtimes_window CHECK (end_time > start_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id     BIGINT UNSIGNED NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seats       INT UNSIGNED NOT NULL,
		status      ENUM('confirmed','completed','cancelled') NOT NULL DEFAULT 'confirmed',
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		KEY idx_bookings_user (user_id),
		KEY idx_bookings_showtime_status (showtime_id, status),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_bookings_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id),
		CONSTRAINT chk_bookings_seats CHECK (seats > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
