// Package shared wires the domain services both apps run on.
package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/comment"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/progress"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
	"github.com/trezcool/educryption/storage/database"
)

type Services struct {
	Users      user.ServiceInterface
	Units      *unit.Service
	Activities *activity.Service
	Contents   *content.Service
	Comments   *comment.Service
	Progress   *progress.Service
}

func NewServices(
	conf *core.Config,
	repos *database.Repos,
	mailSvc core.EmailService,
	files content.FileStore,
	logger core.Logger,
) *Services {
	users := user.NewService(conf, repos.Users, mailSvc)
	units := unit.NewService(repos.Units)
	activities := activity.NewService(repos.Activities, units)
	contents := content.NewService(repos.Contents, units, files, logger)

	return &Services{
		Users:      users,
		Units:      units,
		Activities: activities,
		Contents:   contents,
		Comments:   comment.NewService(repos.Comments, users, contents),
		Progress:   progress.NewService(users, units, contents, activities),
	}
}

// NewValidator returns a validator knowing every custom validation of the domain.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	return validate, translator
}
