package storage

import (
	"context"
	"time"

	"github.com/fkamdem/consultrdv/libs/db"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/model"
)

// UnavailableDayRepository persists blocked dates; uniqueness per day is a
// primary key on the day column.
type UnavailableDayRepository struct {
	pool *db.Pool
}

func NewUnavailableDayRepository(pool *db.Pool) *UnavailableDayRepository {
	return &UnavailableDayRepository{pool: pool}
}

// Block inserts a blocked date. The reason column is NOT NULL with an empty
// default, so an omitted reason is stored as the empty string rather than NULL.
func (r *UnavailableDayRepository) Block(ctx context.Context, day model.UnavailableDay) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO unavailable_days (day, reason, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (day) DO NOTHING
	`, day.Day, day.Reason, day.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrAlreadyBlocked
	}
	return nil
}

func (r *UnavailableDayRepository) Unblock(ctx context.Context, date time.Time) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM unavailable_days WHERE day = $1`, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *UnavailableDayRepository) IsBlocked(ctx context.Context, date time.Time) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM unavailable_days WHERE day = $1)
	`, date).Scan(&blocked)
	return blocked, err
}

func (r *UnavailableDayRepository) List(ctx context.Context) ([]model.UnavailableDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day, reason, created_at
		FROM unavailable_days
		ORDER BY day
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []model.UnavailableDay
	for rows.Next() {
		var d model.UnavailableDay
		if err := rows.Scan(&d.Day, &d.Reason, &d.CreatedAt); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
