package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
)

type activityRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	UnitID    null.String `db:"unit_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r activityRow) toActivity() activity.Activity {
	return activity.Activity{
		ID:        r.ID,
		Title:     r.Title,
		UnitID:    r.UnitID.String,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) selectRows(ctx context.Context, q string, args ...interface{}) ([]activity.Activity, error) {
	var rows []activityRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting activities")
	}
	activities := make([]activity.Activity, 0, len(rows))
	for _, r := range rows {
		activities = append(activities, r.toActivity())
	}
	return activities, nil
}

func (repo *activityRepository) getRow(ctx context.Context, q string, args ...interface{}) (activity.Activity, error) {
	var row activityRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if isNoRows(err) {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, errors.Wrap(err, "selecting activity")
	}
	return row.toActivity(), nil
}

func (repo *activityRepository) CreateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	row := activityRow{
		ID:        core.NewID(),
		Title:     a.Title,
		UnitID:    null.NewString(a.UnitID, a.UnitID != ""),
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	q := `INSERT INTO activities (id, title, unit_id, created_at, updated_at)
		VALUES (:id, :title, :unit_id, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return row.toActivity(), nil
}

func (repo *activityRepository) QueryActivities(ctx context.Context) ([]activity.Activity, error) {
	return repo.selectRows(ctx, `SELECT * FROM activities ORDER BY id`)
}

func (repo *activityRepository) QueryActivitiesByUnit(ctx context.Context, unitID string) ([]activity.Activity, error) {
	return repo.selectRows(ctx, `SELECT * FROM activities WHERE unit_id = $1 ORDER BY id`, unitID)
}

func (repo *activityRepository) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	return repo.getRow(ctx, `SELECT * FROM activities WHERE id = $1`, id)
}

func (repo *activityRepository) UpdateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	return repo.getRow(ctx,
		`UPDATE activities SET title = $2, updated_at = $3 WHERE id = $1 RETURNING *`,
		a.ID, a.Title, a.UpdatedAt.UTC(),
	)
}

func (repo *activityRepository) DeleteActivity(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return activity.ErrNotFound
	}
	return nil
}
