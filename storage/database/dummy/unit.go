package dummydb

import (
	"context"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/unit"
)

type unitRepository struct {
	db *DB
}

var _ unit.Repository = (*unitRepository)(nil) // interface compliance check

func NewUnitRepository(db *DB) unit.Repository {
	return &unitRepository{db: db}
}

func (repo *unitRepository) get(id string) (*unit.Unit, error) {
	if u, ok := repo.db.units[id]; ok {
		return u, nil
	}
	return nil, unit.ErrNotFound
}

func copyUnit(u *unit.Unit) unit.Unit {
	cp := *u
	cp.Activities = cloneStrings(u.Activities)
	cp.Contents = cloneStrings(u.Contents)
	return cp
}

func (repo *unitRepository) CreateUnit(_ context.Context, u unit.Unit) (unit.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	u.ID = core.NewID()
	stored := copyUnit(&u)
	repo.db.units[u.ID] = &stored
	return copyUnit(&stored), nil
}

func (repo *unitRepository) QueryUnits(_ context.Context) ([]unit.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := sortedKeys(len(repo.db.units), func(f func(string)) {
		for id := range repo.db.units {
			f(id)
		}
	})
	units := make([]unit.Unit, 0, len(ids))
	for _, id := range ids {
		units = append(units, copyUnit(repo.db.units[id]))
	}
	return units, nil
}

func (repo *unitRepository) GetUnit(_ context.Context, id string) (unit.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	u, err := repo.get(id)
	if err != nil {
		return unit.Unit{}, err
	}
	return copyUnit(u), nil
}

func (repo *unitRepository) UpdateUnit(_ context.Context, u unit.Unit) (unit.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, err := repo.get(u.ID)
	if err != nil {
		return unit.Unit{}, err
	}
	orig.Title = u.Title
	orig.UnlockKeyHash = u.UnlockKeyHash
	orig.UpdatedAt = u.UpdatedAt
	return copyUnit(orig), nil
}

func (repo *unitRepository) DeleteUnit(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, err := repo.get(id); err != nil {
		return err
	}
	delete(repo.db.units, id)
	return nil
}

func (repo *unitRepository) PushUnitRef(_ context.Context, id string, field unit.RefField, refID string) (unit.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	u, err := repo.get(id)
	if err != nil {
		return unit.Unit{}, err
	}
	switch field {
	case unit.FieldActivities:
		u.Activities = pushString(u.Activities, refID)
	case unit.FieldContents:
		u.Contents = pushString(u.Contents, refID)
	}
	return copyUnit(u), nil
}

func (repo *unitRepository) PullUnitRef(_ context.Context, id string, field unit.RefField, refID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	u, ok := repo.db.units[id]
	if !ok {
		return nil
	}
	switch field {
	case unit.FieldActivities:
		u.Activities = core.RemoveString(u.Activities, refID)
	case unit.FieldContents:
		u.Contents = core.RemoveString(u.Contents, refID)
	}
	return nil
}
