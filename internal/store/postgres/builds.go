package postgres

import (
	"context"
	"database/sql"
	"errors"

	"adhocdist/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const buildColumns = "id, tester_id, status, devices_included, download_url, created_at, completed_at"

func (s *Store) CreateBuild(ctx context.Context, in store.BuildInput) (*store.Build, error) {
	if len(in.DevicesIncluded) == 0 {
		return nil, store.ErrEmptyDevices
	}

	query := `
		INSERT INTO builds (id, tester_id, status, devices_included, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	b := &store.Build{
		ID:              uuid.New(),
		TesterID:        in.TesterID,
		Status:          store.BuildStatusPending,
		DevicesIncluded: append([]string(nil), in.DevicesIncluded...),
		CreatedAt:       s.now(),
	}

	_, err := s.db.ExecContext(ctx, query, b.ID, b.TesterID, b.Status, pq.Array(b.DevicesIncluded), b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) GetBuildByID(ctx context.Context, id uuid.UUID) (*store.Build, error) {
	query := "SELECT " + buildColumns + " FROM builds WHERE id = $1"
	return scanBuild(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) ListBuilds(ctx context.Context) ([]*store.Build, error) {
	query := "SELECT " + buildColumns + " FROM builds ORDER BY created_at, id"
	return s.queryBuilds(ctx, query)
}

func (s *Store) ListBuildsByTester(ctx context.Context, testerID uuid.UUID) ([]*store.Build, error) {
	query := "SELECT " + buildColumns + " FROM builds WHERE tester_id = $1 ORDER BY created_at, id"
	return s.queryBuilds(ctx, query, testerID)
}

// UpdateBuild locks the row, validates the status transition and applies the patch.
func (s *Store) UpdateBuild(ctx context.Context, id uuid.UUID, patch store.BuildPatch) (*store.Build, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current store.BuildStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM builds WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var status sql.NullString
	if patch.Status != nil {
		if err := store.CheckTransition(current, *patch.Status); err != nil {
			return nil, err
		}
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	var completedAt sql.NullTime
	if patch.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *patch.CompletedAt, Valid: true}
	}

	query := `
		UPDATE builds
		SET status = COALESCE($2, status),
		    download_url = COALESCE($3, download_url),
		    completed_at = COALESCE($4, completed_at)
		WHERE id = $1
		RETURNING ` + buildColumns

	b, err := scanBuild(tx.QueryRowContext(ctx, query, id, status, nullable(patch.DownloadURL), completedAt))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) DeleteBuild(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "builds", id)
}

func (s *Store) queryBuilds(ctx context.Context, query string, args ...any) ([]*store.Build, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builds := make([]*store.Build, 0)
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}

	return builds, rows.Err()
}

func scanBuild(row rowScanner) (*store.Build, error) {
	var b store.Build
	err := row.Scan(
		&b.ID, &b.TesterID, &b.Status, pq.Array(&b.DevicesIncluded),
		&b.DownloadURL, &b.CreatedAt, &b.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
