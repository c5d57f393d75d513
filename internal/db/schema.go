package db

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		email TEXT UNIQUE,
		bio TEXT,
		profile_photo TEXT,
		followers TEXT[] NOT NULL DEFAULT '{}',
		following TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (char_length(bio) <= 160)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		likes TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (char_length(content) BETWEEN 1 AND 280)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(id),
		author_id TEXT NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		likes TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (char_length(content) BETWEEN 1 AND 280)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts (author_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)`,
}

// EnsureSchema creates the tables if they do not exist yet. Safe to run
// on every startup.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
