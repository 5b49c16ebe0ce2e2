package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
	appfs "github.com/trezcool/educryption/fs"
)

const defaultSeedFile = "seeds/default.yaml"

type (
	fixtures struct {
		Users []user.NewUser `yaml:"users"`
		Units []unitFixture  `yaml:"units"`
	}

	unitFixture struct {
		Title      string         `yaml:"title"`
		UnlockKey  string         `yaml:"unlock_key"`
		Contents   []titleFixture `yaml:"contents"`
		Activities []titleFixture `yaml:"activities"`
	}

	titleFixture struct {
		Title string `yaml:"title"`
	}

	seedReport struct {
		users, units, contents, activities int
	}
)

func (r seedReport) String() string {
	return fmt.Sprintf("seeded %d user(s), %d unit(s), %d content(s), %d activity(ies)",
		r.users, r.units, r.contents, r.activities)
}

func loadFixtures(file string) (fixtures, error) {
	var (
		data []byte
		err  error
	)
	if file == "" {
		data, err = appfs.FS.ReadFile(defaultSeedFile)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return fixtures{}, errors.Wrap(err, "reading fixtures")
	}

	var fx fixtures
	if err = yaml.Unmarshal(data, &fx); err != nil {
		return fixtures{}, errors.Wrap(err, "parsing fixtures")
	}
	return fx, nil
}

// seed loads fixtures. Existing users (same username or email) and units (same title) are
// skipped, so seeding twice is harmless.
func (cli *commandLine) seed(file string) (seedReport, error) {
	var report seedReport
	fx, err := loadFixtures(file)
	if err != nil {
		return report, err
	}
	ctx := context.Background()

	for _, nu := range fx.Users {
		nu.Username = core.CleanString(nu.Username, true /* lower */)
		nu.Email = core.CleanString(nu.Email, true /* lower */)
		if err = cli.svcs.Users.CheckUniqueness(ctx, nu.Username, nu.Email); err != nil {
			if _, ok := errors.Cause(err).(*core.ValidationError); ok {
				continue
			}
			return report, err
		}
		if _, err = cli.svcs.Users.Create(ctx, nu); err != nil {
			return report, errors.Wrapf(err, "creating user %q", nu.Username)
		}
		report.users++
	}

	existing := make(map[string]struct{})
	units, err := cli.svcs.Units.QueryAll(ctx)
	if err != nil && !core.IsNotFound(err) {
		return report, err
	}
	for _, u := range units {
		existing[u.Title] = struct{}{}
	}

	for _, uf := range fx.Units {
		if _, ok := existing[uf.Title]; ok {
			continue
		}
		u, err := cli.svcs.Units.Create(ctx, unit.NewUnit{Title: uf.Title, UnlockKey: uf.UnlockKey})
		if err != nil {
			return report, errors.Wrapf(err, "creating unit %q", uf.Title)
		}
		report.units++

		for _, cf := range uf.Contents {
			if _, err = cli.svcs.Contents.Create(ctx, content.NewContent{Title: cf.Title, UnitID: u.ID}); err != nil {
				return report, errors.Wrapf(err, "creating content %q", cf.Title)
			}
			report.contents++
		}
		for _, af := range uf.Activities {
			if _, err = cli.svcs.Activities.Create(ctx, activity.NewActivity{Title: af.Title, UnitID: u.ID}); err != nil {
				return report, errors.Wrapf(err, "creating activity %q", af.Title)
			}
			report.activities++
		}
	}
	return report, nil
}
