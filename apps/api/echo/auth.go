package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/user"
)

const (
	accessTokenKey  = "userToken"
	refreshTokenKey = "refreshToken"
	contextUserKey  = "user"

	tokenTypeRefresh = "refresh"
)

// Claims represents the authorization claims transmitted via an access token.
type Claims struct {
	jwt.StandardClaims
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	IsAdmin   bool     `json:"is_admin,omitempty"`
	IsTeacher bool     `json:"is_teacher,omitempty"`
	IsStudent bool     `json:"is_student,omitempty"`
	TokenType string   `json:"typ,omitempty"`
}

// RefreshClaims only identifies the user; a refresh token cannot be used as an access token.
type RefreshClaims struct {
	jwt.StandardClaims
	TokenType string `json:"typ"`
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpires int64     `json:"token_expires"` // unix ms
	User         user.User `json:"user"`
}

func accessJWTMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return accessOnly(middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    accessTokenKey,
		Claims:        new(Claims),
	}))
}

// accessOnly rejects refresh tokens, which the jwt middleware accepts when both secrets are equal.
func accessOnly(jwtMiddleware echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil || claims.TokenType == tokenTypeRefresh {
				return errInvalidAccessToken
			}
			return next(ctx)
		})
	}
}

func refreshJWTMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.RefreshSecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    refreshTokenKey,
		Claims:        new(RefreshClaims),
	})
}

// queryJWTMiddleware reads the access token from the `token` query param, for websockets.
func queryJWTMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return accessOnly(middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    accessTokenKey,
		Claims:        new(Claims),
		TokenLookup:   "query:token",
	}))
}

func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:  usr.Username,
		Email:     usr.Email,
		Roles:     usr.Roles,
		IsAdmin:   usr.IsAdmin(),
		IsTeacher: usr.IsTeacher(),
		IsStudent: usr.IsStudent(),
	}
}

func getRefreshClaims(conf *core.Config, usr user.User) *RefreshClaims {
	now := time.Now()
	return &RefreshClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTRefreshExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		TokenType: tokenTypeRefresh,
	}
}

// GenerateToken signs claims with key using HS256.
func GenerateToken(claims jwt.Claims, key string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(key))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// NewTokenPair issues an access token and a refresh token for usr.
func NewTokenPair(conf *core.Config, usr user.User) (TokenPair, error) {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(claims, conf.SecretKey)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := GenerateToken(getRefreshClaims(conf, usr), conf.RefreshSecretKey)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		Token:        token,
		RefreshToken: refresh,
		TokenExpires: claims.ExpiresAt * 1000,
		User:         usr,
	}, nil
}

func authenticate(ctx context.Context, email, pwd string, svc user.ServiceInterface) (user.User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	if !usr.IsActive() {
		return user.User{}, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(accessTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.ServiceInterface) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

type authApi struct {
	conf     *core.Config
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := authApi{conf: conf, svc: svc, validate: validate}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)
	ag.POST("/refresh", api.refreshToken, refreshJWTMiddleware(conf))

	// authed endpoints
	ag.GET("/me", api.me, jwt)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	pair, err := NewTokenPair(api.conf, usr)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}
	return ctx.JSON(http.StatusOK, pair)
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, ok := ctx.Get(refreshTokenKey).(*jwt.Token)
	if !ok {
		return errInvalidRefreshToken
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || claims.TokenType != tokenTypeRefresh {
		return errInvalidRefreshToken
	}

	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) || errors.As(err, new(*core.InvalidIDError)) {
			return errInvalidRefreshToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	// check if user is still active
	if !usr.IsActive() {
		return errAccountDeactivated
	}

	pair, err := NewTokenPair(api.conf, usr)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}
	return ctx.JSON(http.StatusOK, pair)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
