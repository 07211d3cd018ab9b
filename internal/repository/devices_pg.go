package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kitchen-print-router/internal/domain"
)

// DevicesRepo reads the station/device registry and updates device liveness.
type DevicesRepo struct {
	db *pgxpool.Pool
}

func NewDevicesRepo(db *pgxpool.Pool) *DevicesRepo { return &DevicesRepo{db: db} }

func (r *DevicesRepo) StationByID(ctx context.Context, id string) (domain.Station, bool, error) {
	var s domain.Station
	err := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(color_tag,'') FROM stations WHERE id=$1`, id,
	).Scan(&s.ID, &s.Name, &s.ColorTag)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Station{}, false, nil
	}
	if err != nil {
		return domain.Station{}, false, err
	}
	return s, true, nil
}

// PrintersForStation returns the station's printer devices in registry order.
func (r *DevicesRepo) PrintersForStation(ctx context.Context, stationID string) ([]domain.Device, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, station_id, name, role, COALESCE(address,''), paper_width, status, last_seen
FROM devices
WHERE station_id=$1 AND role=$2
ORDER BY created_at ASC
`, stationID, domain.DeviceRolePrinter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.StationID, &d.Name, &d.Role, &d.Address,
			&d.PaperWidth, &d.Status, &d.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkOnline stamps a successful delivery: status online, last_seen now.
func (r *DevicesRepo) MarkOnline(ctx context.Context, deviceID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE devices SET status='online', last_seen=now() WHERE id=$1`, deviceID)
	return err
}
