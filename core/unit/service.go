package unit

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
)

// IDKind names unit ids in InvalidIDError.
const IDKind = "Unit"

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("unitNotFound")
	ErrNoneFound = core.NewNotFoundError("noUnitFound")
	ErrNotEmpty  = core.NewUnprocessableError("unitNotEmpty")
)

type (
	Repository interface {
		CreateUnit(ctx context.Context, u Unit) (Unit, error)
		QueryUnits(ctx context.Context) ([]Unit, error)
		// GetUnit returns ErrNotFound when no Unit has the id.
		GetUnit(ctx context.Context, id string) (Unit, error)
		// UpdateUnit saves title, unlock key and UpdatedAt. Returns ErrNotFound when missing.
		UpdateUnit(ctx context.Context, u Unit) (Unit, error)
		DeleteUnit(ctx context.Context, id string) error
		// PushUnitRef appends refID to the field list and returns the updated Unit.
		PushUnitRef(ctx context.Context, id string, field RefField, refID string) (Unit, error)
		// PullUnitRef removes refID from the field list; missing units are ignored.
		PullUnitRef(ctx context.Context, id string, field RefField, refID string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nu NewUnit) (Unit, error) {
	now := time.Now().UTC()
	u := Unit{
		Title:      nu.Title,
		Activities: []string{},
		Contents:   []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.SetUnlockKey(nu.UnlockKey); err != nil {
		return Unit{}, errors.Wrap(err, "setting unlock key")
	}
	return svc.repo.CreateUnit(ctx, u)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Unit, error) {
	units, err := svc.repo.QueryUnits(ctx)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrNoneFound
	}
	return units, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Unit, error) {
	if err := core.ValidateID(id, IDKind); err != nil {
		return Unit{}, err
	}
	return svc.repo.GetUnit(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUnit) (Unit, error) {
	u, err := svc.GetByID(ctx, id)
	if err != nil {
		return Unit{}, err
	}
	if uu.Title != "" {
		u.Title = uu.Title
	}
	if uu.UnlockKey != nil {
		if err = u.SetUnlockKey(*uu.UnlockKey); err != nil {
			return Unit{}, errors.Wrap(err, "setting unlock key")
		}
	}
	u.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUnit(ctx, u)
}

// Delete removes a Unit. A unit still holding activities or contents is not deleted.
func (svc *Service) Delete(ctx context.Context, id string) error {
	u, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if len(u.Activities) > 0 || len(u.Contents) > 0 {
		return ErrNotEmpty
	}
	return svc.repo.DeleteUnit(ctx, u.ID)
}

func (svc *Service) addReference(ctx context.Context, unitID string, field RefField, refID, refKind string) (Unit, error) {
	if err := core.ValidateID(unitID, IDKind); err != nil {
		return Unit{}, err
	}
	if err := core.ValidateID(refID, refKind); err != nil {
		return Unit{}, err
	}
	return svc.repo.PushUnitRef(ctx, unitID, field, refID)
}

func (svc *Service) AddActivity(ctx context.Context, unitID, activityID string) (Unit, error) {
	return svc.addReference(ctx, unitID, FieldActivities, activityID, "Activity")
}

func (svc *Service) AddContent(ctx context.Context, unitID, contentID string) (Unit, error) {
	return svc.addReference(ctx, unitID, FieldContents, contentID, "Content")
}

func (svc *Service) RemoveActivity(ctx context.Context, unitID, activityID string) error {
	if unitID == "" {
		return nil
	}
	return svc.repo.PullUnitRef(ctx, unitID, FieldActivities, activityID)
}

func (svc *Service) RemoveContent(ctx context.Context, unitID, contentID string) error {
	if unitID == "" {
		return nil
	}
	return svc.repo.PullUnitRef(ctx, unitID, FieldContents, contentID)
}
