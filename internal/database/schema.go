package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// schema statements; {ts} is replaced by the timestamp column type of the dialect
var schema = []string{
	`CREATE TABLE IF NOT EXISTS learning_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		estimated_proficiency_level TEXT NOT NULL DEFAULT 'beginner',
		overall_score INTEGER CHECK (overall_score BETWEEN 0 AND 100),
		learning_trajectory TEXT NOT NULL DEFAULT 'steady',
		strengths TEXT NOT NULL DEFAULT '[]',
		weaknesses TEXT NOT NULL DEFAULT '[]',
		last_lesson_completed_at {ts},
		last_assessment_completed_at {ts},
		version BIGINT NOT NULL DEFAULT 1,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS topic_progress (
		id TEXT PRIMARY KEY,
		learning_progress_id TEXT NOT NULL REFERENCES learning_progress(id) ON DELETE CASCADE,
		topic_name TEXT NOT NULL,
		mastery_level TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		last_studied_at {ts} NOT NULL,
		related_lesson_ids TEXT NOT NULL DEFAULT '[]',
		related_assessment_ids TEXT NOT NULL DEFAULT '[]',
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL,
		UNIQUE (learning_progress_id, topic_name)
	)`,
	`CREATE TABLE IF NOT EXISTS word_progress (
		id TEXT PRIMARY KEY,
		learning_progress_id TEXT NOT NULL REFERENCES learning_progress(id) ON DELETE CASCADE,
		word TEXT NOT NULL,
		translation TEXT,
		mastery_level TEXT NOT NULL,
		times_correct INTEGER NOT NULL DEFAULT 0,
		times_incorrect INTEGER NOT NULL DEFAULT 0,
		first_seen_at {ts} NOT NULL,
		last_reviewed_at {ts} NOT NULL,
		related_lesson_step_ids TEXT NOT NULL DEFAULT '[]',
		related_assessment_step_ids TEXT NOT NULL DEFAULT '[]',
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL,
		UNIQUE (learning_progress_id, word)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_word_progress_level ON word_progress (learning_progress_id, mastery_level)`,
	`CREATE TABLE IF NOT EXISTS failed_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_failed_sessions_created ON failed_sessions (created_at)`,
}

// Migrate creates the tables if they don't exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tsType := "TIMESTAMP"
	if db.DriverName() == "postgres" {
		tsType = "TIMESTAMPTZ"
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(stmt, "{ts}", tsType)); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
