package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"kitchen-print-router/internal/domain"
)

// HealthRepo appends delivery outcomes and transport failures. Both tables
// are append-only; dashboards read them asynchronously.
type HealthRepo struct {
	db *pgxpool.Pool
}

func NewHealthRepo(db *pgxpool.Pool) *HealthRepo { return &HealthRepo{db: db} }

func (r *HealthRepo) RecordOutcome(ctx context.Context, o domain.DeliveryOutcome) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO delivery_log (id, device_id, order_id, success, transport_used, latency_ms, error_message, recorded_at)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8)
`, o.ID, o.DeviceID, o.OrderID, o.Success, o.TransportUsed, o.LatencyMs, o.ErrorMessage, o.RecordedAt)
	return err
}

// RecordFailure keeps the historical reliability signal per device; written
// on every tier-1/2 failure even when a later tier delivers the ticket.
func (r *HealthRepo) RecordFailure(ctx context.Context, deviceID, orderID, transport, message string) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO print_failures (device_id, order_id, transport, error_message, occurred_at)
VALUES ($1,$2,$3,$4,now())
`, deviceID, orderID, transport, message)
	return err
}

// DeviceHealth is the gateway's readout row: recent reliability per device.
type DeviceHealth struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Status     string    `json:"status"`
	LastSeen   time.Time `json:"last_seen"`
	Deliveries int       `json:"deliveries_24h"`
	Failures   int       `json:"failures_24h"`
}

func (r *HealthRepo) DeviceHealth(ctx context.Context) ([]DeviceHealth, error) {
	rows, err := r.db.Query(ctx, `
SELECT d.id, d.name, d.status, d.last_seen,
       (SELECT count(*) FROM delivery_log l
          WHERE l.device_id=d.id AND l.recorded_at > now() - interval '24 hours'),
       (SELECT count(*) FROM print_failures f
          WHERE f.device_id=d.id AND f.occurred_at > now() - interval '24 hours')
FROM devices d
WHERE d.role='printer'
ORDER BY d.name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceHealth
	for rows.Next() {
		var h DeviceHealth
		if err := rows.Scan(&h.DeviceID, &h.DeviceName, &h.Status, &h.LastSeen,
			&h.Deliveries, &h.Failures); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
