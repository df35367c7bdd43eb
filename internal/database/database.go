package database

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "assessment_user")
	password := getEnv("DB_PASSWORD", "assessment_password")
	dbname := getEnv("DB_NAME", "adaptive_assessment")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		username VARCHAR(50) UNIQUE,
		role VARCHAR(20) NOT NULL DEFAULT 'student',
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS items (
		id                 BIGSERIAL PRIMARY KEY,
		subject            VARCHAR(100) NOT NULL,
		topic              VARCHAR(100) NOT NULL,
		question_text      TEXT NOT NULL,
		explanation        TEXT,
		difficulty         VARCHAR(20) NOT NULL DEFAULT 'medium',
		difficulty_score   DOUBLE PRECISION NOT NULL DEFAULT 50
		                   CHECK (difficulty_score >= 0 AND difficulty_score <= 100),
		discrimination     DOUBLE PRECISION NOT NULL DEFAULT 0.5 CHECK (discrimination >= 0),
		irt_difficulty     DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		guessing           DOUBLE PRECISION NOT NULL DEFAULT 0.25 CHECK (guessing >= 0 AND guessing <= 1),
		upper_asymptote    DOUBLE PRECISION NOT NULL DEFAULT 1.0
		                   CHECK (upper_asymptote >= guessing AND upper_asymptote <= 1),
		times_used         INT NOT NULL DEFAULT 0,
		correct_answers    INT NOT NULL DEFAULT 0,
		average_time_spent DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_used          TIMESTAMP WITH TIME ZONE,
		is_active          BOOLEAN NOT NULL DEFAULT TRUE,
		version            INT NOT NULL DEFAULT 1,
		created_at         TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_items_subject ON items(subject, topic);
	CREATE INDEX IF NOT EXISTS idx_items_active ON items(subject, is_active);
	CREATE INDEX IF NOT EXISTS idx_items_difficulty ON items(difficulty_score);

	CREATE TABLE IF NOT EXISTS item_choices (
		id          BIGSERIAL PRIMARY KEY,
		item_id     BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		choice_id   VARCHAR(1) NOT NULL,
		choice_text TEXT NOT NULL,
		is_correct  BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE(item_id, choice_id)
	);

	CREATE INDEX IF NOT EXISTS idx_choices_item ON item_choices(item_id);

	CREATE TABLE IF NOT EXISTS assessments (
		id                   BIGSERIAL PRIMARY KEY,
		user_id              BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title                VARCHAR(255) NOT NULL,
		subject              VARCHAR(100) NOT NULL,
		status               VARCHAR(20) NOT NULL DEFAULT 'in_progress',
		strategy             VARCHAR(30) NOT NULL DEFAULT 'maximum_information',
		max_questions        INT NOT NULL DEFAULT 50,
		min_questions        INT NOT NULL DEFAULT 10,
		se_threshold         DOUBLE PRECISION NOT NULL DEFAULT 0.3,
		confidence_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.95,
		theta                DOUBLE PRECISION NOT NULL DEFAULT 0,
		standard_error       DOUBLE PRECISION NOT NULL DEFAULT 1,
		questions_asked      INT NOT NULL DEFAULT 0,
		correct_answers      INT NOT NULL DEFAULT 0,
		completion_reason    VARCHAR(30),
		started_at           TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		completed_at         TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_user ON assessments(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_assessments_recent ON assessments(user_id, started_at DESC);

	CREATE TABLE IF NOT EXISTS assessment_responses (
		id                 BIGSERIAL PRIMARY KEY,
		assessment_id      BIGINT NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
		item_id            BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		position           INT NOT NULL,
		is_correct         BOOLEAN NOT NULL,
		selected_choice_id VARCHAR(1),
		ability_at_time    DOUBLE PRECISION,
		time_spent_seconds REAL,
		answered_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(assessment_id, item_id),
		UNIQUE(assessment_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_responses_assessment ON assessment_responses(assessment_id, position);
	CREATE INDEX IF NOT EXISTS idx_responses_item ON assessment_responses(item_id);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Idempotent column additions for databases created before these
	// migrations existed.
	alterStatements := []string{
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS role VARCHAR(20) NOT NULL DEFAULT 'student'`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS username VARCHAR(50) UNIQUE`,
		`ALTER TABLE items ADD COLUMN IF NOT EXISTS version INT NOT NULL DEFAULT 1`,
		`ALTER TABLE assessment_responses ADD COLUMN IF NOT EXISTS ability_at_time DOUBLE PRECISION`,
		`ALTER TABLE assessment_responses ADD COLUMN IF NOT EXISTS time_spent_seconds REAL`,
	}
	for _, stmt := range alterStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("alter table failed: %w", err)
		}
	}

	// Backfill usernames for accounts created before the column existed.
	var usersWithoutUsername int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE username IS NULL`).Scan(&usersWithoutUsername); err == nil && usersWithoutUsername > 0 {
		rows, err := db.Query(`SELECT id, name FROM users WHERE username IS NULL`)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var id int64
				var name string
				if rows.Scan(&id, &name) == nil {
					for attempt := 0; attempt < 10; attempt++ {
						candidate := GenerateUsername(name)
						_, err := db.Exec(
							`UPDATE users SET username = $1 WHERE id = $2 AND username IS NULL`,
							candidate, id,
						)
						if err == nil {
							break
						}
					}
				}
			}
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// generateUsernameBase creates a lowercase alphanumeric base from a user's name.
func generateUsernameBase(name string) string {
	var result []byte
	for _, c := range strings.ToLower(name) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			result = append(result, byte(c))
		}
	}
	if len(result) == 0 {
		return "user"
	}
	if len(result) > 12 {
		result = result[:12]
	}
	return string(result)
}

// rng is a seeded random source for username generation.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// GenerateUsername creates a username candidate from a name by appending
// random digits. Caller should handle the unique constraint and retry.
func GenerateUsername(name string) string {
	return fmt.Sprintf("%s%04d", generateUsernameBase(name), rng.Intn(10000))
}
