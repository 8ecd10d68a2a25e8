package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		name, email string
		roles       []string
		admin       bool
	)
	cmd := &cobra.Command{
		Use:   "adduser USERNAME",
		Short: "Create a user, or reactivate and update an existing one. The password is prompted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if admin {
				roles = append(roles, user.RoleAdminOwner)
			}
			pwd, err := cli.promptPassword("Password")
			if err != nil {
				return err
			}
			usr, err := cli.addUser(context.Background(), args[0], name, email, pwd, roles)
			if err != nil {
				return err
			}
			cli.printf("user %q (%s) saved\n", usr.Username, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the username)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role to grant, e.g. counsellor: (repeatable)")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin owner role")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, uname, name, email, pwd string, roles []string) (user.User, error) {
	svc := cli.svcs.Users
	uname = core.CleanString(uname, true /* lower */)

	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, err
		}
		if name == "" {
			name = uname
		}
		return svc.Create(ctx, user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
	}

	active := true
	uu := user.UpdateUser{Name: name, Email: email, IsActive: &active}
	if len(roles) > 0 {
		uu.Roles = roles
	}
	if usr, err = svc.Update(ctx, usr, uu); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return svc.SetPassword(ctx, usr, pwd)
}
