package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/unit"
)

type unitRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	UnlockKeyHash null.Bytes     `db:"unlock_key_hash"`
	Activities    pq.StringArray `db:"activities"`
	Contents      pq.StringArray `db:"contents"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func toUnitRow(u unit.Unit) unitRow {
	return unitRow{
		ID:            u.ID,
		Title:         u.Title,
		UnlockKeyHash: null.NewBytes(u.UnlockKeyHash, u.HasUnlockKey()),
		Activities:    stringArray(u.Activities),
		Contents:      stringArray(u.Contents),
		CreatedAt:     u.CreatedAt.UTC(),
		UpdatedAt:     u.UpdatedAt.UTC(),
	}
}

func (r unitRow) toUnit() unit.Unit {
	return unit.Unit{
		ID:            r.ID,
		Title:         r.Title,
		UnlockKeyHash: r.UnlockKeyHash.Bytes,
		Activities:    fromArray(r.Activities),
		Contents:      fromArray(r.Contents),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type unitRepository struct {
	db *sqlx.DB
}

var _ unit.Repository = (*unitRepository)(nil) // interface compliance check

func NewUnitRepository(db *sqlx.DB) unit.Repository {
	return &unitRepository{db: db}
}

func (repo *unitRepository) getRow(ctx context.Context, q string, args ...interface{}) (unit.Unit, error) {
	var row unitRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if isNoRows(err) {
			return unit.Unit{}, unit.ErrNotFound
		}
		return unit.Unit{}, errors.Wrap(err, "selecting unit")
	}
	return row.toUnit(), nil
}

func (repo *unitRepository) CreateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error) {
	u.ID = core.NewID()
	row := toUnitRow(u)
	q := `INSERT INTO units (id, title, unlock_key_hash, activities, contents, created_at, updated_at)
		VALUES (:id, :title, :unlock_key_hash, :activities, :contents, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return unit.Unit{}, errors.Wrap(err, "inserting unit")
	}
	return row.toUnit(), nil
}

func (repo *unitRepository) QueryUnits(ctx context.Context) ([]unit.Unit, error) {
	var rows []unitRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM units ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "selecting units")
	}
	units := make([]unit.Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, r.toUnit())
	}
	return units, nil
}

func (repo *unitRepository) GetUnit(ctx context.Context, id string) (unit.Unit, error) {
	return repo.getRow(ctx, `SELECT * FROM units WHERE id = $1`, id)
}

func (repo *unitRepository) UpdateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error) {
	return repo.getRow(ctx,
		`UPDATE units SET title = $2, unlock_key_hash = $3, updated_at = $4 WHERE id = $1 RETURNING *`,
		u.ID, u.Title, null.NewBytes(u.UnlockKeyHash, u.HasUnlockKey()), u.UpdatedAt.UTC(),
	)
}

func (repo *unitRepository) DeleteUnit(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM units WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return unit.ErrNotFound
	}
	return nil
}

// refColumn maps a reference field to its column; the column name is never user input.
func refColumn(field unit.RefField) (string, error) {
	switch field {
	case unit.FieldActivities, unit.FieldContents:
		return string(field), nil
	}
	return "", errors.Errorf("unknown unit field %q", field)
}

func (repo *unitRepository) PushUnitRef(ctx context.Context, id string, field unit.RefField, refID string) (unit.Unit, error) {
	col, err := refColumn(field)
	if err != nil {
		return unit.Unit{}, err
	}
	return repo.getRow(ctx,
		`UPDATE units SET `+col+` = array_append(`+col+`, $2) WHERE id = $1 RETURNING *`,
		id, refID,
	)
}

func (repo *unitRepository) PullUnitRef(ctx context.Context, id string, field unit.RefField, refID string) error {
	col, err := refColumn(field)
	if err != nil {
		return err
	}
	_, err = repo.db.ExecContext(ctx, `UPDATE units SET `+col+` = array_remove(`+col+`, $2) WHERE id = $1`, id, refID)
	return errors.Wrap(err, "pulling unit reference")
}
