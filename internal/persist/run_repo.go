package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunRow is one finished game.
type RunRow struct {
	ID                uuid.UUID `json:"id"`
	Seed              int64     `json:"seed"`
	Score             int       `json:"score"`
	SurvivedSeconds   float64   `json:"survived_seconds"`
	BuildingsLost     int       `json:"buildings_lost"`
	MissilesDestroyed int       `json:"missiles_destroyed"`
	FinishedAt        time.Time `json:"finished_at"`
}

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save inserts a run, assigning its ID and finish time when unset.
func (r *RunRepo) Save(ctx context.Context, row *RunRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.FinishedAt.IsZero() {
		row.FinishedAt = time.Now().UTC()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO runs (id, seed, score, survived_seconds, buildings_lost, missiles_destroyed, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID, row.Seed, row.Score, row.SurvivedSeconds,
		row.BuildingsLost, row.MissilesDestroyed, row.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", row.ID, err)
	}
	return nil
}

// Top returns the n best runs, highest score first; ties go to the longer run.
func (r *RunRepo) Top(ctx context.Context, n int) ([]RunRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, seed, score, survived_seconds, buildings_lost, missiles_destroyed, finished_at
		 FROM runs ORDER BY score DESC, survived_seconds DESC LIMIT $1`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query top runs: %w", err)
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(
			&row.ID, &row.Seed, &row.Score, &row.SurvivedSeconds,
			&row.BuildingsLost, &row.MissilesDestroyed, &row.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
