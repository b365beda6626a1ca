package main

import (
	"context"

	"github.com/jkamau/darasa/core/user"
)

// addUser creates a user.User after running the usual validation.
func (cli *commandLine) addUser(name, uname, email, role, pwd string) error {
	ctx := context.Background()

	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nu.Validate(ctx, cli.usrSvc); err != nil {
		return err
	}
	if _, err := cli.usrSvc.Create(ctx, nu); err != nil {
		return err
	}
	return nil
}
