package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core/comment"
	"github.com/trezcool/educryption/core/user"
)

type commentApi struct {
	svc      *comment.Service
	usrSvc   user.ServiceInterface
	validate *validator.Validate
	hub      *commentHub
}

func registerCommentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *comment.Service,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
	hub *commentHub,
) {
	api := commentApi{svc: svc, usrSvc: usrSvc, validate: validate, hub: hub}

	cg := g.Group("/comments", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/content/:contentId", api.queryByContent)
	cg.GET("/user/:userId", api.queryByUser)

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.GET("/replies", api.queryReplies)
	dg.PUT("", api.update, authorOrAdminMiddleware(svc, usrSvc))
	dg.DELETE("", api.destroy, authorOrAdminMiddleware(svc, usrSvc))
}

// authorOrAdminMiddleware loads the comment of the `id` path param into the context "object",
// when the context user posted it or is an admin.
func authorOrAdminMiddleware(svc *comment.Service, usrSvc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding comment by ID")
			}
			if _, err = canActFor(ctx, usrSvc, c.UserID); err != nil {
				return err
			}
			ctx.Set(contextObjectKey, c)
			return next(ctx)
		}
	}
}

func contextComment(ctx echo.Context) (comment.Comment, error) {
	c, ok := ctx.Get(contextObjectKey).(comment.Comment)
	if !ok {
		return comment.Comment{}, errors.New("comment object not found in echo.Context")
	}
	return c, nil
}

// create posts a comment as the context user, unless an admin posts on behalf of user_id.
func (api *commentApi) create(ctx echo.Context) error {
	var data comment.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if data.UserID == "" {
		data.UserID = ctxUsr.ID
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if _, err = canActFor(ctx, api.usrSvc, data.UserID); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating comment")
	}
	if c.ContentID != "" {
		api.hub.publish(c.ContentID, liveEventCreated, c)
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *commentApi) query(ctx echo.Context) error {
	comments, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *commentApi) queryByContent(ctx echo.Context) error {
	comments, err := api.svc.QueryByContent(ctx.Request().Context(), ctx.Param("contentId"))
	if err != nil {
		return errors.Wrap(err, "querying content comments")
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *commentApi) queryByUser(ctx echo.Context) error {
	comments, err := api.svc.QueryByUser(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "querying user comments")
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *commentApi) queryReplies(ctx echo.Context) error {
	replies, err := api.svc.QueryReplies(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying replies")
	}
	return ctx.JSON(http.StatusOK, replies)
}

func (api *commentApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding comment by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *commentApi) update(ctx echo.Context) error {
	c, err := contextComment(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data comment.UpdateComment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateComment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if c, err = api.svc.Update(ctx.Request().Context(), c, data); err != nil {
		return errors.Wrap(err, "updating comment")
	}
	if c.ContentID != "" {
		api.hub.publish(c.ContentID, liveEventUpdated, c)
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *commentApi) destroy(ctx echo.Context) error {
	c, err := contextComment(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	if err = api.svc.Delete(ctx.Request().Context(), c); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if c.ContentID != "" {
		api.hub.publish(c.ContentID, liveEventDeleted, comment.Comment{ID: c.ID, ContentID: c.ContentID})
	}
	return ctx.NoContent(http.StatusNoContent)
}
