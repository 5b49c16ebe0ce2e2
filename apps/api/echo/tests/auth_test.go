package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/educryption/apps/api/echo"
	"github.com/trezcool/educryption/core/user"
	"github.com/trezcool/educryption/tests"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "secret", nil, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@domain.com", "secret", nil, false)

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "blank fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{name: "unknown email", body: []byte(`{"email":"lol@domain.com","password":"secret"}`), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", body: []byte(`{"email":"lie@domain.com","password":"lol"}`), wantCode: http.StatusBadRequest, wantData: authFailed},
		{
			name: "inactive", body: []byte(`{"email":"ndog@domain.com","password":"secret"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "success", body: []byte(`{"email":" LIE@domain.com ","password":"secret"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/auth/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var pair TokenPair
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
			assert.Equal(t, usr.ID, pair.User.ID)
			assert.False(t, pair.User.LastLogin.IsZero())
			assert.Greater(t, pair.TokenExpires, time.Now().UnixNano()/int64(time.Millisecond))

			claims := new(Claims)
			_, err := jwt.ParseWithClaims(pair.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.True(t, claims.IsStudent)
			assert.False(t, claims.IsAdmin)

			refresh := new(RefreshClaims)
			_, err = jwt.ParseWithClaims(pair.RefreshToken, refresh, func(*jwt.Token) (interface{}, error) {
				return []byte(conf.RefreshSecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, "refresh", refresh.TokenType)
			assert.Equal(t, claims.ExpiresAt*1000, pair.TokenExpires)
		})
	}
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	ghost := user.User{ID: "5f1d7a1e8f1b2c3d4e5f6a7b", Username: "ghost"}

	expired := GetUserClaims(conf, usr)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expiredToken, err := GenerateToken(expired, conf.SecretKey)
	require.NoError(t, err)
	otherKeyToken, err := GenerateToken(GetUserClaims(conf, usr), "not the secret")
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "expired token", path: "/api/auth/me", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "other key", path: "/api/auth/me", token: otherKeyToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{
			name: "deleted user", path: "/api/auth/me", token: getToken(t, ghost), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "me", path: "/api/auth/me", token: getToken(t, usr), wantData: marchallObj(t, usr)},
	})
}

func Test_authApi_refresh(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "", nil, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@domain.com", "", nil, true)
	gone := testutil.CreateUser(t, usrRepo, "Gone", "gone", "gone@domain.com", "", nil, true)

	usrPair, err := NewTokenPair(conf, usr)
	require.NoError(t, err)
	naughtyPair, err := NewTokenPair(conf, naughty)
	require.NoError(t, err)
	naughty.Status = user.StatusInactive
	_, err = usrRepo.UpdateUser(ctx, naughty)
	require.NoError(t, err)
	gonePair, err := NewTokenPair(conf, gone)
	require.NoError(t, err)
	require.NoError(t, usrRepo.DeleteUsersByID(ctx, gone.ID))

	// a refresh token signed with the access key, as when both secrets are configured equal
	sameKeyRefresh, err := GenerateToken(&RefreshClaims{
		StandardClaims: jwt.StandardClaims{Subject: usr.ID, ExpiresAt: time.Now().Add(time.Hour).Unix()},
		TokenType:      "refresh",
	}, conf.SecretKey)
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "token required", method: http.MethodPost, path: "/api/auth/refresh", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "access token rejected", method: http.MethodPost, path: "/api/auth/refresh", token: usrPair.Token,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken),
		},
		{
			name: "inactive user", method: http.MethodPost, path: "/api/auth/refresh", token: naughtyPair.RefreshToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "deleted user", method: http.MethodPost, path: "/api/auth/refresh", token: gonePair.RefreshToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid refresh token"}),
		},
		{
			name: "refresh token on access route", path: "/api/auth/me", token: usrPair.RefreshToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken),
		},
		{
			name: "access-signed refresh token on access route", path: "/api/auth/me", token: sameKeyRefresh,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken),
		},
		{
			name: "access-signed refresh token on resource route", path: "/api/units", token: sameKeyRefresh,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/api/auth/refresh", usrPair.RefreshToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.Equal(t, usr.ID, pair.User.ID)
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.RefreshToken)

	// the new access token works
	req, rec = newAuthRequest(http.MethodGet, "/api/auth/me", pair.Token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_passwordReset(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "Lie", "lie", "lie@domain.com", "secret", nil, true)

	success := "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
	runHTTPTests(t, app, []httpTest{
		{
			name: "invalid email", method: http.MethodPost, path: "/api/auth/password-reset", body: []byte(`{"email":"lol"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"email":"email must be a valid email address"}`),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/api/auth/password-reset", body: []byte(`{"email":"lol@domain.com"}`),
			wantData: marchallObj(t, SuccessResponse{Success: success}),
		},
	})
	assert.Empty(t, outbox.Messages())

	req, rec := newRequest(http.MethodPost, "/api/auth/password-reset", []byte(`{"email":"lie@domain.com"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	messages := outbox.Messages()
	require.Len(t, messages, 1)
	msg := messages[0]
	assert.Equal(t, usr.Email, msg.To[0].Address)
	assert.Equal(t, "Password Reset", msg.Subject)

	// the link reads .../password-reset/<uid>/<token>
	match := regexp.MustCompile(`password-reset/([^/\s]+)/([^/\s]+)`).FindStringSubmatch(msg.TextContent)
	require.Len(t, match, 3, msg.TextContent)
	uid, token := match[1], match[2]

	confirm := func(uid, token, pwd string) []byte {
		return marchallObj(t, map[string]string{"uid": uid, "token": token, "password": pwd, "password_confirm": pwd})
	}
	resetFailed := marchallObj(t, httpErr{Error: "invalid or expired password reset link"})
	path := "/api/auth/password-reset-confirm"
	runHTTPTests(t, app, []httpTest{
		{name: "blank", method: http.MethodPost, path: path, body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "weak password", method: http.MethodPost, path: path, body: confirm(uid, token, "password"), wantCode: http.StatusBadRequest},
		{name: "invalid uid", method: http.MethodPost, path: path, body: confirm("lol", token, "N3w-Pa55word!"), wantCode: http.StatusBadRequest, wantData: resetFailed},
		{name: "invalid token", method: http.MethodPost, path: path, body: confirm(uid, "lol-lol", "N3w-Pa55word!"), wantCode: http.StatusBadRequest, wantData: resetFailed},
		{
			name: "success", method: http.MethodPost, path: path, body: confirm(uid, token, "N3w-Pa55word!"),
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{name: "token used", method: http.MethodPost, path: path, body: confirm(uid, token, "An0ther-Pa55word!"), wantCode: http.StatusBadRequest, wantData: resetFailed},
	})

	usr, err := usrRepo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("N3w-Pa55word!"))
}
