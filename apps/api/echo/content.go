package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core/content"
)

// uploadFormOverhead leaves room for the other form fields of an upload.
const uploadFormOverhead = 1 << 20

type contentApi struct {
	svc         *content.Service
	validate    *validator.Validate
	maxFileSize int64
}

func registerContentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *content.Service,
	validate *validator.Validate,
	maxFileSize int64,
) {
	api := contentApi{svc: svc, validate: validate, maxFileSize: maxFileSize}

	cg := g.Group("/contents", jwt)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/comments/:commentId", api.addComment)

	// staff endpoints
	cg.POST("", api.create, staffMiddleware(), uploadBodyLimit(maxFileSize))
	cg.PUT("/:id", api.update, staffMiddleware(), uploadBodyLimit(maxFileSize))
	cg.DELETE("/:id", api.destroy, staffMiddleware())
}

// uploadBodyLimit rejects bodies bigger than a maximum size file and its form fields,
// before they are parsed.
func uploadBodyLimit(maxFileSize int64) echo.MiddlewareFunc {
	if maxFileSize <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.BodyLimit(strconv.FormatInt(maxFileSize+uploadFormOverhead, 10) + "B")
}

// formFile opens the optional `file` part of a multipart request.
func (api *contentApi) formFile(ctx echo.Context) (*content.File, io.Closer, error) {
	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil, nil
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrap(err, "reading form file")
	}
	if api.maxFileSize > 0 && fh.Size > api.maxFileSize {
		return nil, nil, errFileTooLarge
	}

	var f multipart.File
	if f, err = fh.Open(); err != nil {
		return nil, nil, errors.Wrap(err, "opening form file")
	}
	return &content.File{Name: fh.Filename, Reader: f}, f, nil
}

func (api *contentApi) create(ctx echo.Context) error {
	var data content.NewContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	file, closer, err := api.formFile(ctx)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	data.File = file

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating content")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// query lists every content, or the contents of `?unitId=`.
func (api *contentApi) query(ctx echo.Context) error {
	var (
		contents []content.Content
		err      error
	)
	if unitID := ctx.QueryParam("unitId"); unitID != "" {
		contents, err = api.svc.QueryByUnit(ctx.Request().Context(), unitID)
	} else {
		contents, err = api.svc.QueryAll(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying contents")
	}
	if contents == nil {
		contents = []content.Content{}
	}
	return ctx.JSON(http.StatusOK, contents)
}

func (api *contentApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding content by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contentApi) update(ctx echo.Context) error {
	var data content.UpdateContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	file, closer, err := api.formFile(ctx)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	data.File = file

	c, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating content")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) addComment(ctx echo.Context) error {
	c, err := api.svc.AddComment(ctx.Request().Context(), ctx.Param("id"), ctx.Param("commentId"))
	if err != nil {
		return errors.Wrap(err, "adding comment to content")
	}
	return ctx.JSON(http.StatusOK, c)
}
