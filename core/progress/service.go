// Package progress records what users unlocked, read and completed.
package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
)

// StatusCompleted is the status of a submitted activity.
const StatusCompleted = "completed"

var (
	// errors
	ErrUnitAlreadyUnlocked = core.NewValidationError(errors.New("unitAlreadyUnlocked"))
	ErrUnitNotUnlocked     = core.NewForbiddenError("unitNotUnlocked")
	ErrInvalidUnlockKey    = core.NewForbiddenError("invalidUnlockKey")
	ErrContentNotInUnit    = core.NewUnprocessableError("contentNotInUnit")
	ErrActivityNotInUnit   = core.NewUnprocessableError("activityNotInUnit")
	ErrActivityHasNoUnit   = core.NewUnprocessableError("activityHasNoUnit")
)

// Submission is the outcome of an activity submission.
type Submission struct {
	ActivityID string `json:"activity_id"`
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
}

type Service struct {
	users      user.ServiceInterface
	units      *unit.Service
	contents   *content.Service
	activities *activity.Service
}

func NewService(
	users user.ServiceInterface,
	units *unit.Service,
	contents *content.Service,
	activities *activity.Service,
) *Service {
	return &Service{
		users:      users,
		units:      units,
		contents:   contents,
		activities: activities,
	}
}

// validateIDs checks the user id, then the unit id, then the id of the item of kind.
func validateIDs(userID, unitID, itemID, kind string) error {
	if err := core.ValidateID(userID, user.IDKind); err != nil {
		return err
	}
	if err := core.ValidateID(unitID, unit.IDKind); err != nil {
		return err
	}
	return core.ValidateID(itemID, kind)
}

// load validates both ids, then finds the user and the unit.
func (svc *Service) load(ctx context.Context, userID, unitID string) (user.User, unit.Unit, error) {
	if err := core.ValidateID(userID, user.IDKind); err != nil {
		return user.User{}, unit.Unit{}, err
	}
	if err := core.ValidateID(unitID, unit.IDKind); err != nil {
		return user.User{}, unit.Unit{}, err
	}
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return user.User{}, unit.Unit{}, err
	}
	u, err := svc.units.GetByID(ctx, unitID)
	if err != nil {
		return user.User{}, unit.Unit{}, err
	}
	return usr, u, nil
}

// loadUnlocked is load, failing with ErrUnitNotUnlocked unless the user unlocked the unit.
func (svc *Service) loadUnlocked(ctx context.Context, userID, unitID string) (user.User, unit.Unit, error) {
	usr, u, err := svc.load(ctx, userID, unitID)
	if err != nil {
		return user.User{}, unit.Unit{}, err
	}
	if !usr.HasUnlocked(u.ID) {
		return user.User{}, unit.Unit{}, ErrUnitNotUnlocked
	}
	return usr, u, nil
}

// UnlockUnit adds the unit to the units unlocked by the user. The key must open the unit
// unless bypassKey is set.
func (svc *Service) UnlockUnit(ctx context.Context, userID, unitID, key string, bypassKey bool) (user.User, error) {
	usr, u, err := svc.load(ctx, userID, unitID)
	if err != nil {
		return user.User{}, err
	}
	if usr.HasUnlocked(u.ID) {
		return user.User{}, ErrUnitAlreadyUnlocked
	}
	if !bypassKey && !u.CheckUnlockKey(key) {
		return user.User{}, ErrInvalidUnlockKey
	}
	return svc.users.AddProgress(ctx, usr.ID, user.FieldUnitsUnlocked, u.ID)
}

// CompleteUnit adds an unlocked unit to the units completed by the user.
func (svc *Service) CompleteUnit(ctx context.Context, userID, unitID string) (user.User, error) {
	usr, u, err := svc.loadUnlocked(ctx, userID, unitID)
	if err != nil {
		return user.User{}, err
	}
	return svc.users.AddProgress(ctx, usr.ID, user.FieldUnitsCompleted, u.ID)
}

// MarkContentRead adds a content of an unlocked unit to the contents read by the user.
func (svc *Service) MarkContentRead(ctx context.Context, userID, unitID, contentID string) (user.User, error) {
	if err := validateIDs(userID, unitID, contentID, content.IDKind); err != nil {
		return user.User{}, err
	}
	usr, u, err := svc.loadUnlocked(ctx, userID, unitID)
	if err != nil {
		return user.User{}, err
	}
	c, err := svc.contents.GetByID(ctx, contentID)
	if err != nil {
		return user.User{}, err
	}
	if c.UnitID != u.ID {
		return user.User{}, ErrContentNotInUnit
	}
	return svc.users.AddProgress(ctx, usr.ID, user.FieldContentsRead, c.ID)
}

// CompleteActivity adds an activity of an unlocked unit to the activities completed by the user.
func (svc *Service) CompleteActivity(ctx context.Context, userID, unitID, activityID string) (user.User, error) {
	if err := validateIDs(userID, unitID, activityID, activity.IDKind); err != nil {
		return user.User{}, err
	}
	usr, u, err := svc.loadUnlocked(ctx, userID, unitID)
	if err != nil {
		return user.User{}, err
	}
	a, err := svc.activities.GetByID(ctx, activityID)
	if err != nil {
		return user.User{}, err
	}
	if a.UnitID != u.ID {
		return user.User{}, ErrActivityNotInUnit
	}
	return svc.users.AddProgress(ctx, usr.ID, user.FieldActivitiesCompleted, a.ID)
}

// SubmitActivity completes the activity in its own unit.
func (svc *Service) SubmitActivity(ctx context.Context, activityID, userID string) (Submission, error) {
	if err := core.ValidateID(userID, user.IDKind); err != nil {
		return Submission{}, err
	}
	a, err := svc.activities.GetByID(ctx, activityID)
	if err != nil {
		return Submission{}, err
	}
	if a.UnitID == "" {
		return Submission{}, ErrActivityHasNoUnit
	}
	if _, err = svc.CompleteActivity(ctx, userID, a.UnitID, a.ID); err != nil {
		return Submission{}, err
	}
	return Submission{ActivityID: a.ID, UserID: userID, Status: StatusCompleted}, nil
}
