package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/progress"
	"github.com/trezcool/educryption/core/user"
)

type activityApi struct {
	svc         *activity.Service
	progressSvc *progress.Service
	usrSvc      user.ServiceInterface
	validate    *validator.Validate
}

func registerActivityAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *activity.Service,
	progressSvc *progress.Service,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := activityApi{svc: svc, progressSvc: progressSvc, usrSvc: usrSvc, validate: validate}

	ag := g.Group("/activities", jwt)
	ag.GET("", api.query)
	ag.GET("/unit/:unitId", api.queryByUnit)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/submit", api.submit)

	// staff endpoints
	ag.POST("", api.create, staffMiddleware())
	ag.PUT("/:id", api.update, staffMiddleware())
	ag.DELETE("/:id", api.destroy, staffMiddleware())
}

func (api *activityApi) create(ctx echo.Context) error {
	var data activity.NewActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewActivity")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *activityApi) query(ctx echo.Context) error {
	activities, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	return ctx.JSON(http.StatusOK, activities)
}

func (api *activityApi) queryByUnit(ctx echo.Context) error {
	activities, err := api.svc.QueryByUnit(ctx.Request().Context(), ctx.Param("unitId"))
	if err != nil {
		return errors.Wrap(err, "querying unit activities")
	}
	return ctx.JSON(http.StatusOK, activities)
}

func (api *activityApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding activity by ID")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *activityApi) update(ctx echo.Context) error {
	var data activity.UpdateActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateActivity")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating activity")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *activityApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// submit completes the activity for the submitting user (the context user by default).
func (api *activityApi) submit(ctx echo.Context) error {
	var data SubmitActivityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitActivityRequest")
	}
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if data.UserID == "" {
		data.UserID = ctxUsr.ID
	}
	if _, err = canActFor(ctx, api.usrSvc, data.UserID); err != nil {
		return err
	}

	sub, err := api.progressSvc.SubmitActivity(ctx.Request().Context(), ctx.Param("id"), data.UserID)
	if err != nil {
		return errors.Wrap(err, "submitting activity")
	}
	return ctx.JSON(http.StatusOK, sub)
}

type SubmitActivityRequest struct {
	UserID string `json:"user_id"`
}
