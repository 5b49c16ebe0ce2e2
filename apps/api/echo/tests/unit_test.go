package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
	"github.com/trezcool/educryption/tests"
)

func createUnit(t *testing.T, title, key string) unit.Unit {
	t.Helper()
	u, err := svcs.Units.Create(context.Background(), unit.NewUnit{Title: title, UnlockKey: key})
	require.NoError(t, err)
	return u
}

func Test_unitApi_query(t *testing.T) {
	app := setup(t)

	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/api/units", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "empty", path: "/api/units", token: getToken(t, lie), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "noUnitFound"})},
	})

	u1 := createUnit(t, "Caesar", "")
	u2 := createUnit(t, "Vigenere", "s3cr3t")

	runHTTPTests(t, app, []httpTest{
		{name: "all", path: "/api/units", token: getToken(t, lie), wantData: marchallList(t, u1, u2)},
		{name: "retrieve", path: "/api/units/" + u2.ID, token: getToken(t, lie), wantData: marchallObj(t, u2)},
		{
			name: "invalid id", path: "/api/units/lol", token: getToken(t, lie), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalidUnitId"}),
		},
		{
			name: "not found", path: "/api/units/5f1d7a1e8f1b2c3d4e5f6a7b", token: getToken(t, lie), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "unitNotFound"}),
		},
	})

	// the unlock key never leaks
	req, rec := newAuthRequest(http.MethodGet, "/api/units/"+u2.ID, getToken(t, lie))
	app.ServeHTTP(rec, req)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["has_unlock_key"])
	assert.NotContains(t, rec.Body.String(), "unlock_key\"")
}

func Test_unitApi_create(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@domain.com", "", []string{user.RoleTeacher}, true)
	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)

	runHTTPTests(t, app, []httpTest{
		{
			name: "staff only", method: http.MethodPost, path: "/api/units", token: getToken(t, lie),
			body: []byte(`{"title":"Caesar"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "blank title", method: http.MethodPost, path: "/api/units", token: getToken(t, teacher),
			body: []byte(`{"title":"  "}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"title":"this field is required"}`),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/api/units", getToken(t, teacher), []byte(`{"title":" Caesar ","unlock_key":"s3cr3t"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created unit.Unit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.ID, 24)
	assert.Equal(t, "Caesar", created.Title)
	assert.Empty(t, created.Activities)
	assert.Empty(t, created.Contents)

	saved, err := repos.Units.GetUnit(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, saved.CheckUnlockKey("s3cr3t"))
	assert.False(t, saved.CheckUnlockKey("lol"))
}

func Test_unitApi_update(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@domain.com", "", []string{user.RoleAdmin}, true)
	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	u := createUnit(t, "Caesar", "s3cr3t")

	runHTTPTests(t, app, []httpTest{
		{
			name: "staff only", method: http.MethodPatch, path: "/api/units/" + u.ID, token: getToken(t, lie),
			body: []byte(`{"title":"Rot13"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "invalid id", method: http.MethodPatch, path: "/api/units/lol", token: getToken(t, admin),
			body: []byte(`{"title":"Rot13"}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalidUnitId"}),
		},
		{
			name: "not found", method: http.MethodPatch, path: "/api/units/5f1d7a1e8f1b2c3d4e5f6a7b", token: getToken(t, admin),
			body: []byte(`{"title":"Rot13"}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "unitNotFound"}),
		},
	})

	// title only: the key is kept
	req, rec := newAuthRequest(http.MethodPatch, "/api/units/"+u.ID, getToken(t, admin), []byte(`{"title":"Rot13"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved, err := repos.Units.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rot13", saved.Title)
	assert.True(t, saved.CheckUnlockKey("s3cr3t"))

	// an empty key removes it
	req, rec = newAuthRequest(http.MethodPatch, "/api/units/"+u.ID, getToken(t, admin), []byte(`{"unlock_key":""}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved, err = repos.Units.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rot13", saved.Title)
	assert.False(t, saved.HasUnlockKey())
}

func Test_unitApi_destroy(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@domain.com", "", []string{user.RoleTeacher}, true)
	lie := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	u := createUnit(t, "Caesar", "")

	runHTTPTests(t, app, []httpTest{
		{name: "staff only", method: http.MethodDelete, path: "/api/units/" + u.ID, token: getToken(t, lie), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "success", method: http.MethodDelete, path: "/api/units/" + u.ID, token: getToken(t, teacher), wantCode: http.StatusNoContent},
		{
			name: "already deleted", method: http.MethodDelete, path: "/api/units/" + u.ID, token: getToken(t, teacher), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "unitNotFound"}),
		},
	})
}

func Test_unitApi_destroyNotEmpty(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@domain.com", "", []string{user.RoleTeacher}, true)
	token := getToken(t, teacher)
	u := createUnit(t, "Caesar", "")
	a := createActivity(t, "Quiz", u.ID)
	c := createContent(t, "History", u.ID)

	notEmpty := httpTest{
		name: "not empty", method: http.MethodDelete, path: "/api/units/" + u.ID, token: token,
		wantCode: http.StatusUnprocessableEntity, wantData: marchallObj(t, httpErr{Error: "unitNotEmpty"}),
	}
	runHTTPTests(t, app, []httpTest{notEmpty})

	// nothing was orphaned
	_, err := repos.Units.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	got, err := repos.Contents.GetContent(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UnitID)

	require.NoError(t, svcs.Activities.Delete(ctx, a.ID))
	runHTTPTests(t, app, []httpTest{notEmpty})

	require.NoError(t, svcs.Contents.Delete(ctx, c.ID))
	runHTTPTests(t, app, []httpTest{
		{name: "emptied", method: http.MethodDelete, path: "/api/units/" + u.ID, token: token, wantCode: http.StatusNoContent},
	})
}
