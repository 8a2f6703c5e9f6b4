package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	models "io.winapps.confessionboard/internal/models/confession"
	"io.winapps.confessionboard/internal/query"
)

// DBTX is the subset of pgx used by the repository. *pgxpool.Pool, *pgx.Conn
// and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConfessionRepository reads and appends rows of the confessions table.
type ConfessionRepository struct {
	db DBTX
}

func NewConfessionRepository(db DBTX) *ConfessionRepository {
	return &ConfessionRepository{db: db}
}

// List runs the count statement and then the data statement for l.
func (r *ConfessionRepository) List(ctx context.Context, l query.List) ([]models.Confession, int, error) {
	countStmt, dataStmt := query.Build(l)

	var total int
	if err := r.db.QueryRow(ctx, countStmt.SQL, countStmt.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count confessions: %w", err)
	}

	rows, err := r.db.Query(ctx, dataStmt.SQL, dataStmt.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query confessions: %w", err)
	}
	defer rows.Close()

	confessions := []models.Confession{}
	for rows.Next() {
		var c models.Confession
		if err := rows.Scan(&c.ID, &c.City, &c.Sex, &c.Age, &c.Description, &c.AudioPath, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan confession: %w", err)
		}
		confessions = append(confessions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read confessions: %w", err)
	}

	return confessions, total, nil
}

// Create inserts n and returns the stored row.
func (r *ConfessionRepository) Create(ctx context.Context, n models.NewConfession) (*models.Confession, error) {
	description, audioPath := n.Columns()

	insertQuery := `
		INSERT INTO confessions (city, sex, age, description, audio_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, city, sex, age, description, audio_path, created_at
	`
	var c models.Confession
	err := r.db.QueryRow(ctx, insertQuery, n.City, string(n.Sex), n.Age, description, audioPath).Scan(
		&c.ID,
		&c.City,
		&c.Sex,
		&c.Age,
		&c.Description,
		&c.AudioPath,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert confession: %w", err)
	}
	return &c, nil
}

// ReferencedAudio returns the subset of keys that some row points at.
func (r *ConfessionRepository) ReferencedAudio(ctx context.Context, keys []string) (map[string]bool, error) {
	referenced := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return referenced, nil
	}

	rows, err := r.db.Query(ctx, `SELECT DISTINCT audio_path FROM confessions WHERE audio_path = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to query audio references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan audio reference: %w", err)
		}
		referenced[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audio references: %w", err)
	}
	return referenced, nil
}

// Ping checks that the database answers.
func (r *ConfessionRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
