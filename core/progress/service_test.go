package progress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/progress"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
	"github.com/trezcool/educryption/services/email"
	"github.com/trezcool/educryption/services/upload"
	"github.com/trezcool/educryption/tests"
)

type fixture struct {
	svc        *progress.Service
	units      *unit.Service
	activities *activity.Service
	contents   *content.Service
	student    user.User
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig(t)
	logger := testutil.NopLogger{}
	repos := testutil.PrepareDB(t)

	users := user.NewService(conf, repos.Users, emailsvc.NewConsoleServiceMock(conf, logger, new(emailsvc.Outbox)))
	units := unit.NewService(repos.Units)
	activities := activity.NewService(repos.Activities, units)
	contents := content.NewService(repos.Contents, units, uploadsvc.NewDiskStore(conf), logger)

	return fixture{
		svc:        progress.NewService(users, units, contents, activities),
		units:      units,
		activities: activities,
		contents:   contents,
		student:    testutil.CreateUser(t, repos.Users, "Lie Kapita", "lie", "lie@domain.com", "", nil, true),
	}
}

func TestService_UnlockUnit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	locked, err := f.units.Create(ctx, unit.NewUnit{Title: "Locked", UnlockKey: "open-sesame"})
	require.NoError(t, err)
	open, err := f.units.Create(ctx, unit.NewUnit{Title: "Open"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  string
		unitID  string
		key     string
		bypass  bool
		wantErr error
	}{
		{name: "invalid user id", userID: "lol", unitID: locked.ID, wantErr: core.NewInvalidIDError(user.IDKind)},
		{name: "invalid unit id", userID: f.student.ID, unitID: "lol", wantErr: core.NewInvalidIDError(unit.IDKind)},
		{name: "unknown user", userID: core.NewID(), unitID: locked.ID, wantErr: user.ErrNotFound},
		{name: "unknown unit", userID: f.student.ID, unitID: core.NewID(), wantErr: unit.ErrNotFound},
		{name: "missing key", userID: f.student.ID, unitID: locked.ID, wantErr: progress.ErrInvalidUnlockKey},
		{name: "wrong key", userID: f.student.ID, unitID: locked.ID, key: "lol", wantErr: progress.ErrInvalidUnlockKey},
		{name: "open unit", userID: f.student.ID, unitID: open.ID},
		{name: "already unlocked", userID: f.student.ID, unitID: open.ID, bypass: true, wantErr: progress.ErrUnitAlreadyUnlocked},
		{name: "right key", userID: f.student.ID, unitID: locked.ID, key: "open-sesame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UnlockUnit(ctx, tt.userID, tt.unitID, tt.key, tt.bypass)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	bypassed, err := f.units.Create(ctx, unit.NewUnit{Title: "Bypassed", UnlockKey: "hidden"})
	require.NoError(t, err)
	usr, err := f.svc.UnlockUnit(ctx, f.student.ID, bypassed.ID, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{open.ID, locked.ID, bypassed.ID}, usr.UnitsUnlocked)
}

func TestService_progress(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	u, err := f.units.Create(ctx, unit.NewUnit{Title: "Ciphers"})
	require.NoError(t, err)
	other, err := f.units.Create(ctx, unit.NewUnit{Title: "Hashes"})
	require.NoError(t, err)

	c, err := f.contents.Create(ctx, content.NewContent{Title: "Slides", UnitID: u.ID})
	require.NoError(t, err)
	otherContent, err := f.contents.Create(ctx, content.NewContent{Title: "Notes", UnitID: other.ID})
	require.NoError(t, err)
	a, err := f.activities.Create(ctx, activity.NewActivity{Title: "Quiz", UnitID: u.ID})
	require.NoError(t, err)
	otherActivity, err := f.activities.Create(ctx, activity.NewActivity{Title: "Lab", UnitID: other.ID})
	require.NoError(t, err)
	freeActivity, err := f.activities.Create(ctx, activity.NewActivity{Title: "Free"})
	require.NoError(t, err)

	t.Run("not unlocked", func(t *testing.T) {
		_, err := f.svc.CompleteUnit(ctx, f.student.ID, u.ID)
		assert.Equal(t, progress.ErrUnitNotUnlocked, err)
		_, err = f.svc.MarkContentRead(ctx, f.student.ID, u.ID, c.ID)
		assert.Equal(t, progress.ErrUnitNotUnlocked, err)
		_, err = f.svc.CompleteActivity(ctx, f.student.ID, u.ID, a.ID)
		assert.Equal(t, progress.ErrUnitNotUnlocked, err)
		_, err = f.svc.SubmitActivity(ctx, a.ID, f.student.ID)
		assert.Equal(t, progress.ErrUnitNotUnlocked, err)
	})

	_, err = f.svc.UnlockUnit(ctx, f.student.ID, u.ID, "", false)
	require.NoError(t, err)

	t.Run("user id checked first", func(t *testing.T) {
		_, err := f.svc.MarkContentRead(ctx, "lol", "lol", "lol")
		assert.Equal(t, core.NewInvalidIDError(user.IDKind), err)
		_, err = f.svc.CompleteActivity(ctx, "lol", "lol", "lol")
		assert.Equal(t, core.NewInvalidIDError(user.IDKind), err)
		_, err = f.svc.MarkContentRead(ctx, f.student.ID, "lol", "lol")
		assert.Equal(t, core.NewInvalidIDError(unit.IDKind), err)
		_, err = f.svc.CompleteActivity(ctx, f.student.ID, "lol", "lol")
		assert.Equal(t, core.NewInvalidIDError(unit.IDKind), err)
	})

	t.Run("content read", func(t *testing.T) {
		_, err := f.svc.MarkContentRead(ctx, f.student.ID, u.ID, "lol")
		assert.Equal(t, core.NewInvalidIDError(content.IDKind), err)
		_, err = f.svc.MarkContentRead(ctx, f.student.ID, u.ID, core.NewID())
		assert.Equal(t, content.ErrNotFound, err)
		_, err = f.svc.MarkContentRead(ctx, f.student.ID, u.ID, otherContent.ID)
		assert.Equal(t, progress.ErrContentNotInUnit, err)

		usr, err := f.svc.MarkContentRead(ctx, f.student.ID, u.ID, c.ID)
		require.NoError(t, err)
		usr, err = f.svc.MarkContentRead(ctx, f.student.ID, u.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID}, usr.ContentsRead)
	})

	t.Run("activity completed", func(t *testing.T) {
		_, err := f.svc.CompleteActivity(ctx, f.student.ID, u.ID, "lol")
		assert.Equal(t, core.NewInvalidIDError(activity.IDKind), err)
		_, err = f.svc.CompleteActivity(ctx, f.student.ID, u.ID, core.NewID())
		assert.Equal(t, activity.ErrNotFound, err)
		_, err = f.svc.CompleteActivity(ctx, f.student.ID, u.ID, otherActivity.ID)
		assert.Equal(t, progress.ErrActivityNotInUnit, err)

		usr, err := f.svc.CompleteActivity(ctx, f.student.ID, u.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID}, usr.ActivitiesCompleted)
	})

	t.Run("activity submitted", func(t *testing.T) {
		_, err := f.svc.SubmitActivity(ctx, freeActivity.ID, f.student.ID)
		assert.Equal(t, progress.ErrActivityHasNoUnit, err)
		_, err = f.svc.SubmitActivity(ctx, a.ID, "lol")
		assert.Equal(t, core.NewInvalidIDError(user.IDKind), err)

		sub, err := f.svc.SubmitActivity(ctx, a.ID, f.student.ID)
		require.NoError(t, err)
		assert.Equal(t, progress.Submission{ActivityID: a.ID, UserID: f.student.ID, Status: progress.StatusCompleted}, sub)
	})

	t.Run("unit completed", func(t *testing.T) {
		_, err := f.svc.CompleteUnit(ctx, f.student.ID, u.ID)
		require.NoError(t, err)
		usr, err := f.svc.CompleteUnit(ctx, f.student.ID, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{u.ID}, usr.UnitsCompleted)
		assert.Equal(t, []string{u.ID}, usr.UnitsUnlocked)
	})
}
