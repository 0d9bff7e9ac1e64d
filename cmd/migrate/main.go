package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS device_tokens CASCADE`,
		`DROP TABLE IF EXISTS tasks CASCADE`,
		`DROP TABLE IF EXISTS activity_costs CASCADE`,
		`DROP TABLE IF EXISTS activities CASCADE`,
		`DROP TABLE IF EXISTS events CASCADE`,
		`DROP TABLE IF EXISTS requests CASCADE`,
		`DROP TABLE IF EXISTS group_roles CASCADE`,
		`DROP TABLE IF EXISTS groups CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			role       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS groups (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS group_roles (
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_id  TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			role_name TEXT NOT NULL,
			PRIMARY KEY (user_id, group_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_group_roles_group ON group_roles(group_id)`,

		`CREATE TABLE IF NOT EXISTS requests (
			id               TEXT PRIMARY KEY,
			type             TEXT NOT NULL,
			title            TEXT NOT NULL,
			content          TEXT NOT NULL DEFAULT '',
			created_by       TEXT NOT NULL REFERENCES users(id),
			created_date     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			to_role          TEXT NOT NULL,
			is_accepted      BOOLEAN,
			comment          TEXT NOT NULL DEFAULT '',
			requesting_group TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_to_role ON requests(to_role, created_date DESC)`,

		`CREATE TABLE IF NOT EXISTS events (
			request_id  TEXT PRIMARY KEY REFERENCES requests(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			from_date   TIMESTAMPTZ NOT NULL,
			to_date     TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id          TEXT PRIMARY KEY,
			request_id  TEXT NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_time  TIMESTAMPTZ NOT NULL,
			end_time    TIMESTAMPTZ NOT NULL,
			location    TEXT NOT NULL DEFAULT '',
			is_accepted BOOLEAN,
			comment     TEXT NOT NULL DEFAULT '',
			position    INT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_request ON activities(request_id, position)`,

		`CREATE TABLE IF NOT EXISTS activity_costs (
			activity_id TEXT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
			group_id    TEXT NOT NULL REFERENCES groups(id),
			cost        BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (activity_id, group_id)
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cost        BIGINT NOT NULL DEFAULT 0,
			activity_id TEXT NOT NULL DEFAULT '',
			group_id    TEXT NOT NULL REFERENCES groups(id),
			assignee_id TEXT NOT NULL REFERENCES users(id),
			status      TEXT NOT NULL DEFAULT 'Draft',
			due_date    TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_group ON tasks(group_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(group_id, assignee_id)`,

		`CREATE TABLE IF NOT EXISTS device_tokens (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, token)
		)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	fmt.Println("  Created: users, groups, group_roles, requests, events, activities, activity_costs, tasks, device_tokens")

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	users := []struct {
		id, name, email, role string
	}{
		{"user-admin", "Nguyễn Văn An", "an.nguyen@example.com", "Admin"},
		{"user-council", "Trần Thị Bình", "binh.tran@example.com", "Council"},
		{"user-leader", "Lê Văn Cường", "cuong.le@example.com", "Member"},
		{"user-member", "Phạm Thị Dung", "dung.pham@example.com", "Member"},
	}
	for _, u := range users {
		_, err := conn.Exec(ctx, `
			INSERT INTO users (id, name, email, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, u.id, u.name, u.email, u.role)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.id, err)
		}
	}

	_, err := conn.Exec(ctx, `
		INSERT INTO groups (id, name)
		VALUES ('group-youth', 'Giới trẻ')
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to seed group: %w", err)
	}

	roles := []struct {
		userID, groupID, roleName string
	}{
		{"user-leader", "group-youth", "Trưởng nhóm"},
		{"user-member", "group-youth", "Thành viên"},
	}
	for _, gr := range roles {
		_, err := conn.Exec(ctx, `
			INSERT INTO group_roles (user_id, group_id, role_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, group_id) DO NOTHING
		`, gr.userID, gr.groupID, gr.roleName)
		if err != nil {
			return fmt.Errorf("failed to seed group role: %w", err)
		}
	}

	fmt.Println("  Seeded: 4 users, 1 group, 2 group roles")
	return nil
}
