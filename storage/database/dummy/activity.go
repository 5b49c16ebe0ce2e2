package dummydb

import (
	"context"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) query(keep func(a *activity.Activity) bool) []activity.Activity {
	ids := sortedKeys(len(repo.db.activities), func(f func(string)) {
		for id := range repo.db.activities {
			f(id)
		}
	})
	activities := make([]activity.Activity, 0, len(ids))
	for _, id := range ids {
		if a := repo.db.activities[id]; keep(a) {
			activities = append(activities, *a)
		}
	}
	return activities
}

func (repo *activityRepository) CreateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = core.NewID()
	stored := a
	repo.db.activities[a.ID] = &stored
	return a, nil
}

func (repo *activityRepository) QueryActivities(_ context.Context) ([]activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(*activity.Activity) bool { return true }), nil
}

func (repo *activityRepository) QueryActivitiesByUnit(_ context.Context, unitID string) ([]activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(a *activity.Activity) bool { return a.UnitID == unitID }), nil
}

func (repo *activityRepository) GetActivity(_ context.Context, id string) (activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.activities[id]; ok {
		return *a, nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func (repo *activityRepository) UpdateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.activities[a.ID]
	if !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	orig.Title = a.Title
	orig.UpdatedAt = a.UpdatedAt
	return *orig, nil
}

func (repo *activityRepository) DeleteActivity(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.activities[id]; !ok {
		return activity.ErrNotFound
	}
	delete(repo.db.activities, id)
	return nil
}
