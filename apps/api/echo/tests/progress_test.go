package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educryption/core/user"
	"github.com/trezcool/educryption/tests"
)

func Test_progressApi_unlockUnit(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@domain.com", "", []string{user.RoleAdmin}, true)
	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	ndog := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@domain.com", "", nil, true)
	locked := createUnit(t, "Vigenere", "s3cr3t")
	open := createUnit(t, "Caesar", "")

	path := func(userID, unitID string) string {
		return "/api/users/" + userID + "/units/" + unitID + "/unlock"
	}
	token := getToken(t, lie)
	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: path(lie.ID, open.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "someone else", method: http.MethodPost, path: path(ndog.ID, open.ID), token: token, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "invalid unit id", method: http.MethodPost, path: path(lie.ID, "lol"), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalidUnitId"}),
		},
		{
			name: "unit not found", method: http.MethodPost, path: path(lie.ID, "5f1d7a1e8f1b2c3d4e5f6a7b"), token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "unitNotFound"}),
		},
		{
			name: "missing key", method: http.MethodPost, path: path(lie.ID, locked.ID), token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "invalidUnlockKey"}),
		},
		{
			name: "wrong key", method: http.MethodPost, path: path(lie.ID, locked.ID), token: token, body: []byte(`{"unlock_key":"lol"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "invalidUnlockKey"}),
		},
		{name: "open unit", method: http.MethodPost, path: path(lie.ID, open.ID), token: token},
		{name: "right key", method: http.MethodPost, path: path(lie.ID, locked.ID), token: token, body: []byte(`{"unlock_key":"s3cr3t"}`)},
		{
			name: "already unlocked", method: http.MethodPost, path: path(lie.ID, locked.ID), token: token, body: []byte(`{"unlock_key":"s3cr3t"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "unitAlreadyUnlocked"}),
		},
		{name: "admin bypasses key", method: http.MethodPost, path: path(ndog.ID, locked.ID), token: getToken(t, admin)},
		{
			name: "admin unknown user", method: http.MethodPost, path: path("5f1d7a1e8f1b2c3d4e5f6a7b", locked.ID), token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "userNotFound"}),
		},
	})

	usr, err := usrRepo.GetUserByID(ctx, lie.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{open.ID, locked.ID}, usr.UnitsUnlocked)
	usr, err = usrRepo.GetUserByID(ctx, ndog.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{locked.ID}, usr.UnitsUnlocked)
}

func Test_progressApi_completeUnit(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	u := createUnit(t, "Caesar", "")
	path := "/api/users/" + lie.ID + "/units/" + u.ID + "/complete"
	token := getToken(t, lie)

	runHTTPTests(t, app, []httpTest{
		{
			name: "not unlocked", method: http.MethodPost, path: path, token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "unitNotUnlocked"}),
		},
	})

	_, err := svcs.Progress.UnlockUnit(ctx, lie.ID, u.ID, "", false)
	require.NoError(t, err)

	// completing twice keeps a single entry
	for i := 0; i < 2; i++ {
		req, rec := newAuthRequest(http.MethodPost, path, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, []string{u.ID}, usr.UnitsCompleted)
		assert.Equal(t, []string{u.ID}, usr.UnitsUnlocked)
	}
}

func Test_progressApi_markContentRead(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	u := createUnit(t, "Caesar", "")
	other := createUnit(t, "Vigenere", "")
	c := createContent(t, "History", u.ID)
	elsewhere := createContent(t, "Tables", other.ID)

	path := func(contentID string) string {
		return "/api/users/" + lie.ID + "/units/" + u.ID + "/contents/" + contentID + "/mark-read"
	}
	token := getToken(t, lie)
	runHTTPTests(t, app, []httpTest{
		{
			name: "not unlocked", method: http.MethodPost, path: path(c.ID), token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "unitNotUnlocked"}),
		},
		{
			name: "invalid content id", method: http.MethodPost, path: path("lol"), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalidContentId"}),
		},
	})

	_, err := svcs.Progress.UnlockUnit(ctx, lie.ID, u.ID, "", false)
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{
			name: "content not found", method: http.MethodPost, path: path("5f1d7a1e8f1b2c3d4e5f6a7b"), token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "contentNotFound"}),
		},
		{
			name: "content of another unit", method: http.MethodPost, path: path(elsewhere.ID), token: token, wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, httpErr{Error: "contentNotInUnit"}),
		},
		{name: "success", method: http.MethodPost, path: path(c.ID), token: token},
	})

	usr, err := usrRepo.GetUserByID(ctx, lie.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, usr.ContentsRead)
}

func Test_progressApi_completeActivity(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@domain.com", "", []string{user.RoleAdmin}, true)
	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	u := createUnit(t, "Caesar", "")
	a := createActivity(t, "Shift by 3", u.ID)
	loose := createActivity(t, "Free quiz", "")

	path := func(activityID string) string {
		return "/api/users/" + lie.ID + "/units/" + u.ID + "/activities/" + activityID + "/complete"
	}
	runHTTPTests(t, app, []httpTest{
		{
			name: "not unlocked", method: http.MethodPost, path: path(a.ID), token: getToken(t, lie), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "unitNotUnlocked"}),
		},
		{
			name: "invalid activity id", method: http.MethodPost, path: path("lol"), token: getToken(t, lie), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalidActivityId"}),
		},
	})

	_, err := svcs.Progress.UnlockUnit(ctx, lie.ID, u.ID, "", false)
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{
			name: "activity not found", method: http.MethodPost, path: path("5f1d7a1e8f1b2c3d4e5f6a7b"), token: getToken(t, lie),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "activityNotFound"}),
		},
		{
			name: "activity of no unit", method: http.MethodPost, path: path(loose.ID), token: getToken(t, lie),
			wantCode: http.StatusUnprocessableEntity, wantData: marchallObj(t, httpErr{Error: "activityNotInUnit"}),
		},
		{name: "admin on behalf", method: http.MethodPost, path: path(a.ID), token: getToken(t, admin)},
		{name: "again", method: http.MethodPost, path: path(a.ID), token: getToken(t, lie)},
	})

	usr, err := usrRepo.GetUserByID(ctx, lie.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, usr.ActivitiesCompleted)
}
