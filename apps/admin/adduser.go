package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/user"
)

var roleFlags = map[string][]string{
	"admin":   {user.RoleAdminOwner},
	"teacher": {user.RoleTeacher},
	"student": {user.RoleStudent},
}

// addUser updates the password and roles of an existing user.User, or creates a new one.
func (cli *commandLine) addUser(schoolID, name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, lookup)
	if err == nil {
		if usr.SchoolID != schoolID {
			return errors.Errorf("%q belongs to another school", lookup)
		}
		usr.Roles = roles
		usr.IsActive = true
		usr.UpdatedAt = user.NowFunc().UTC()
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	}
	if errors.Cause(err) != user.ErrNotFound {
		return err
	}

	if name == "" {
		name = uname
	}
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	}
	if err = nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	_, err = cli.usrSvc.Create(ctx, schoolID, nu)
	return err
}
