package main

import (
	"context"
	"time"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/user"
)

// addUser updates or creates an active user.User; the password policy does not apply.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin, isTeacher bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	roles := []string{user.RoleStudent}
	switch {
	case isAdmin:
		roles = []string{user.RoleAdmin}
	case isTeacher:
		roles = []string{user.RoleTeacher}
	}

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if core.IsNotFound(err) {
		usr, err = cli.usrRepo.GetUserByUsernameOrEmail(ctx, email)
	}
	now := time.Now().UTC()
	switch {
	case err == nil:
		usr.Username = uname
		usr.Email = email
		if isAdmin || isTeacher {
			usr.Roles = roles
		}
		usr.Status = user.StatusActive
		usr.UpdatedAt = now
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	case core.IsNotFound(err):
		usr = user.User{
			Username:            uname,
			Email:               email,
			Roles:               roles,
			Status:              user.StatusActive,
			UnitsUnlocked:       []string{},
			UnitsCompleted:      []string{},
			ContentsRead:        []string{},
			ActivitiesCompleted: []string{},
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	default:
		return err
	}
}
