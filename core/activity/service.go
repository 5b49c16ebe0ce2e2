package activity

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/unit"
)

// IDKind names activity ids in InvalidIDError.
const IDKind = "Activity"

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("activityNotFound")
	ErrNoneFound        = core.NewNotFoundError("noActivityFound")
	ErrNoneFoundForUnit = core.NewNotFoundError("noActivitiesFoundForUnit")
)

type (
	Repository interface {
		CreateActivity(ctx context.Context, a Activity) (Activity, error)
		QueryActivities(ctx context.Context) ([]Activity, error)
		QueryActivitiesByUnit(ctx context.Context, unitID string) ([]Activity, error)
		// GetActivity returns ErrNotFound when no Activity has the id.
		GetActivity(ctx context.Context, id string) (Activity, error)
		UpdateActivity(ctx context.Context, a Activity) (Activity, error)
		DeleteActivity(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		units *unit.Service
	}
)

func NewService(repo Repository, units *unit.Service) *Service {
	return &Service{repo: repo, units: units}
}

// Create saves a new Activity. When a unit is given it must exist, and the activity is
// appended to its activities.
func (svc *Service) Create(ctx context.Context, na NewActivity) (Activity, error) {
	if na.UnitID != "" {
		if _, err := svc.units.GetByID(ctx, na.UnitID); err != nil {
			return Activity{}, err
		}
	}

	now := time.Now().UTC()
	a, err := svc.repo.CreateActivity(ctx, Activity{
		Title:     na.Title,
		UnitID:    na.UnitID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Activity{}, err
	}

	if a.UnitID != "" {
		if _, err = svc.units.AddActivity(ctx, a.UnitID, a.ID); err != nil {
			return Activity{}, errors.Wrap(err, "adding activity to unit")
		}
	}
	return a, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Activity, error) {
	activities, err := svc.repo.QueryActivities(ctx)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, ErrNoneFound
	}
	return activities, nil
}

func (svc *Service) QueryByUnit(ctx context.Context, unitID string) ([]Activity, error) {
	if err := core.ValidateID(unitID, unit.IDKind); err != nil {
		return nil, err
	}
	activities, err := svc.repo.QueryActivitiesByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, ErrNoneFoundForUnit
	}
	return activities, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Activity, error) {
	if err := core.ValidateID(id, IDKind); err != nil {
		return Activity{}, err
	}
	return svc.repo.GetActivity(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateActivity) (Activity, error) {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if ua.Title != "" {
		a.Title = ua.Title
	}
	a.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateActivity(ctx, a)
}

// Delete removes the Activity and its reference from its unit.
func (svc *Service) Delete(ctx context.Context, id string) error {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.units.RemoveActivity(ctx, a.UnitID, a.ID); err != nil {
		return errors.Wrap(err, "removing activity from unit")
	}
	return svc.repo.DeleteActivity(ctx, id)
}
