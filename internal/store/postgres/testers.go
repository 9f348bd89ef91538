package postgres

import (
	"context"
	"database/sql"
	"errors"

	"adhocdist/internal/store"

	"github.com/google/uuid"
)

const testerColumns = "id, email, udid, status, created_at, updated_at"

// CreateTester inserts a tester unless the email is already taken, in which
// case the existing row is returned with created=false.
func (s *Store) CreateTester(ctx context.Context, email string) (*store.Tester, bool, error) {
	query := `
		INSERT INTO testers (id, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (email) DO NOTHING
	`

	now := s.now()
	id := uuid.New()
	res, err := s.db.ExecContext(ctx, query, id, email, store.TesterStatusEmailCollected, now)
	if err != nil {
		return nil, false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 1 {
		return &store.Tester{
			ID:        id,
			Email:     email,
			Status:    store.TesterStatusEmailCollected,
			CreatedAt: now,
			UpdatedAt: now,
		}, true, nil
	}

	existing, err := s.GetTesterByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) GetTesterByID(ctx context.Context, id uuid.UUID) (*store.Tester, error) {
	query := "SELECT " + testerColumns + " FROM testers WHERE id = $1"
	return scanTester(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetTesterByEmail(ctx context.Context, email string) (*store.Tester, error) {
	query := "SELECT " + testerColumns + " FROM testers WHERE email = $1"
	return scanTester(s.db.QueryRowContext(ctx, query, email))
}

func (s *Store) ListTesters(ctx context.Context) ([]*store.Tester, error) {
	query := "SELECT " + testerColumns + " FROM testers ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	testers := make([]*store.Tester, 0)
	for rows.Next() {
		t, err := scanTester(rows)
		if err != nil {
			return nil, err
		}
		testers = append(testers, t)
	}

	return testers, rows.Err()
}

// UpdateTester merges the non-nil patch fields and refreshes updated_at.
func (s *Store) UpdateTester(ctx context.Context, id uuid.UUID, patch store.TesterPatch) (*store.Tester, error) {
	query := `
		UPDATE testers
		SET udid = COALESCE($2, udid), status = COALESCE($3, status), updated_at = $4
		WHERE id = $1
		RETURNING ` + testerColumns

	var status sql.NullString
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	var udid sql.NullString
	if patch.UDID != nil {
		udid = sql.NullString{String: *patch.UDID, Valid: true}
	}

	return scanTester(s.db.QueryRowContext(ctx, query, id, udid, status, s.now()))
}

func (s *Store) DeleteTester(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "testers", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTester(row rowScanner) (*store.Tester, error) {
	var t store.Tester
	err := row.Scan(&t.ID, &t.Email, &t.UDID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func deleteByID(ctx context.Context, db *sql.DB, table string, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
