package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// activityRow mirrors the activities table. Choices live in activity_choices.
type activityRow struct {
	ID            int64           `db:"id"`
	Creator       uuid.UUID       `db:"creator"`
	Name          string          `db:"name"`
	Deadline      time.Time       `db:"deadline"`
	TotalPool     decimal.Decimal `db:"total_pool"`
	Settled       bool            `db:"settled"`
	WinningChoice *int            `db:"winning_choice"`
	Distributed   decimal.Decimal `db:"distributed"`
	CreatedAt     time.Time       `db:"created_at"`
	SettledAt     *time.Time      `db:"settled_at"`
}

type choiceRow struct {
	ActivityID int64           `db:"activity_id"`
	Idx        int             `db:"idx"`
	Label      string          `db:"label"`
	Odds       int64           `db:"odds"`
	Amount     decimal.Decimal `db:"amount"`
}

const activityCols = `id, creator, name, deadline, total_pool, settled, winning_choice, distributed, created_at, settled_at`

func (row *activityRow) toDomain() *domain.Activity {
	return &domain.Activity{
		ID:            row.ID,
		Creator:       row.Creator,
		Name:          row.Name,
		Deadline:      row.Deadline.UTC(),
		TotalPool:     row.TotalPool,
		Settled:       row.Settled,
		WinningChoice: row.WinningChoice,
		Distributed:   row.Distributed,
		CreatedAt:     row.CreatedAt.UTC(),
		SettledAt:     row.SettledAt,
	}
}

// hydrate loads the choice rows for every activity in one query.
func (r *queries) hydrate(ctx context.Context, rows []activityRow) ([]*domain.Activity, error) {
	out := make([]*domain.Activity, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, len(rows))
	byID := make(map[int64]*domain.Activity, len(rows))
	for i := range rows {
		a := rows[i].toDomain()
		ids[i] = a.ID
		byID[a.ID] = a
		out = append(out, a)
	}

	var choices []choiceRow
	if err := sqlx.SelectContext(ctx, r.q, &choices, `
		SELECT activity_id, idx, label, odds, amount
		FROM activity_choices
		WHERE activity_id = ANY($1)
		ORDER BY activity_id, idx`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load choices: %w", err)
	}
	for _, c := range choices {
		a := byID[c.ActivityID]
		a.Choices = append(a.Choices, c.Label)
		a.Odds = append(a.Odds, c.Odds)
		a.ChoiceAmounts = append(a.ChoiceAmounts, c.Amount)
	}
	return out, nil
}

func (r *queries) getActivity(ctx context.Context, id int64, op string) (*domain.Activity, error) {
	var row activityRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+activityCols+` FROM activities WHERE id = $1`+r.lock(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, fmt.Errorf("activity_repo.%s: %w", op, err)
	}
	list, err := r.hydrate(ctx, []activityRow{row})
	if err != nil {
		return nil, fmt.Errorf("activity_repo.%s: %w", op, err)
	}
	return list[0], nil
}

// GetActivity fetches a single activity with its choices.
func (r *queries) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	return r.getActivity(ctx, id, "GetActivity")
}

// LockActivity reads the activity row FOR UPDATE.
func (t *Tx) LockActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	return t.getActivity(ctx, id, "LockActivity")
}

func (r *queries) CountActivities(ctx context.Context) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM activities`); err != nil {
		return 0, fmt.Errorf("activity_repo.CountActivities: %w", err)
	}
	return n, nil
}

// ListActivities returns a page of activities, newest first.
func (r *queries) ListActivities(ctx context.Context, limit, offset int) ([]*domain.Activity, error) {
	var rows []activityRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT `+activityCols+` FROM activities ORDER BY id DESC LIMIT $1 OFFSET $2`,
		limitArg(limit), offset); err != nil {
		return nil, fmt.Errorf("activity_repo.ListActivities: %w", err)
	}
	list, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("activity_repo.ListActivities: %w", err)
	}
	return list, nil
}

// ListExpiredUnsettled returns activities past their deadline that have not
// been settled, oldest deadline first.
func (r *queries) ListExpiredUnsettled(ctx context.Context, now time.Time) ([]*domain.Activity, error) {
	var rows []activityRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT `+activityCols+` FROM activities
		WHERE NOT settled AND deadline <= $1
		ORDER BY deadline, id`, now); err != nil {
		return nil, fmt.Errorf("activity_repo.ListExpiredUnsettled: %w", err)
	}
	list, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("activity_repo.ListExpiredUnsettled: %w", err)
	}
	return list, nil
}

// InsertActivity allocates the next id and writes the activity and its choices.
func (t *Tx) InsertActivity(ctx context.Context, a *domain.Activity) error {
	id, err := t.nextID(ctx, "activities")
	if err != nil {
		return fmt.Errorf("activity_repo.InsertActivity: %w", err)
	}
	a.ID = id

	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO activities (`+activityCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Creator, a.Name, a.Deadline, a.TotalPool, a.Settled,
		a.WinningChoice, a.Distributed, a.CreatedAt, a.SettledAt); err != nil {
		return fmt.Errorf("activity_repo.InsertActivity: insert: %w", err)
	}

	for i, label := range a.Choices {
		if _, err := t.q.ExecContext(ctx, `
			INSERT INTO activity_choices (activity_id, idx, label, odds, amount)
			VALUES ($1, $2, $3, $4, $5)`,
			a.ID, i, label, a.Odds[i], a.ChoiceAmounts[i]); err != nil {
			return fmt.Errorf("activity_repo.InsertActivity: choice %d: %w", i, err)
		}
	}
	return nil
}

// UpdateActivity persists the pool, per-choice amounts and settlement fields.
func (t *Tx) UpdateActivity(ctx context.Context, a *domain.Activity) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE activities
		SET total_pool = $1, settled = $2, winning_choice = $3, distributed = $4, settled_at = $5
		WHERE id = $6`,
		a.TotalPool, a.Settled, a.WinningChoice, a.Distributed, a.SettledAt, a.ID)
	if err != nil {
		return fmt.Errorf("activity_repo.UpdateActivity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrActivityNotFound
	}

	for i, amount := range a.ChoiceAmounts {
		if _, err := t.q.ExecContext(ctx,
			`UPDATE activity_choices SET amount = $1 WHERE activity_id = $2 AND idx = $3`,
			amount, a.ID, i); err != nil {
			return fmt.Errorf("activity_repo.UpdateActivity: choice %d: %w", i, err)
		}
	}
	return nil
}
