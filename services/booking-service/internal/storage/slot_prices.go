package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fkamdem/consultrdv/libs/db"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/model"
)

// SlotPriceRepository persists per-hour prices. slot_time is the primary key,
// so SetPrice is a plain upsert. Times are stored as TIME and read back
// truncated to HH:MM.
type SlotPriceRepository struct {
	pool *db.Pool
}

func NewSlotPriceRepository(pool *db.Pool) *SlotPriceRepository {
	return &SlotPriceRepository{pool: pool}
}

func (r *SlotPriceRepository) Upsert(ctx context.Context, p model.SlotPrice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO slot_prices (slot_time, amount, currency, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot_time) DO UPDATE
		SET amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
	`, p.SlotTime, p.Amount, p.Currency, p.UpdatedAt)
	return err
}

func (r *SlotPriceRepository) Get(ctx context.Context, slotTime string) (model.SlotPrice, bool, error) {
	var p model.SlotPrice
	err := r.pool.QueryRow(ctx, `
		SELECT to_char(slot_time, 'HH24:MI'), amount, currency, updated_at
		FROM slot_prices
		WHERE slot_time = $1
	`, slotTime).Scan(&p.SlotTime, &p.Amount, &p.Currency, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SlotPrice{}, false, nil
	}
	if err != nil {
		return model.SlotPrice{}, false, err
	}
	return p, true, nil
}

func (r *SlotPriceRepository) List(ctx context.Context) ([]model.SlotPrice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(slot_time, 'HH24:MI'), amount, currency, updated_at
		FROM slot_prices
		ORDER BY slot_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []model.SlotPrice
	for rows.Next() {
		var p model.SlotPrice
		if err := rows.Scan(&p.SlotTime, &p.Amount, &p.Currency, &p.UpdatedAt); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}
