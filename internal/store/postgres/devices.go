package postgres

import (
	"context"
	"database/sql"
	"errors"

	"adhocdist/internal/store"

	"github.com/google/uuid"
)

const deviceColumns = "id, udid, product, os_version, created_at"

// CreateDevice inserts a device unless the UDID is already known.
func (s *Store) CreateDevice(ctx context.Context, in store.DeviceInput) (*store.Device, bool, error) {
	query := `
		INSERT INTO devices (id, udid, product, os_version, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (udid) DO NOTHING
	`

	d := &store.Device{
		ID:        uuid.New(),
		UDID:      in.UDID,
		Product:   in.Product,
		OSVersion: in.OSVersion,
		CreatedAt: s.now(),
	}

	res, err := s.db.ExecContext(ctx, query, d.ID, d.UDID, nullable(d.Product), nullable(d.OSVersion), d.CreatedAt)
	if err != nil {
		return nil, false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 1 {
		return d, true, nil
	}

	existing, err := s.GetDeviceByUDID(ctx, in.UDID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) GetDeviceByID(ctx context.Context, id uuid.UUID) (*store.Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices WHERE id = $1"
	return scanDevice(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetDeviceByUDID(ctx context.Context, udid string) (*store.Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices WHERE udid = $1"
	return scanDevice(s.db.QueryRowContext(ctx, query, udid))
}

func (s *Store) ListDevices(ctx context.Context) ([]*store.Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]*store.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

func (s *Store) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "devices", id)
}

func scanDevice(row rowScanner) (*store.Device, error) {
	var d store.Device
	err := row.Scan(&d.ID, &d.UDID, &d.Product, &d.OSVersion, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
