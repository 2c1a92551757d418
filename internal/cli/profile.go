package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/domain/model"
)

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the member profile or password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(a.profileUpdateCmd(), a.profilePasswdCmd())
	return cmd
}

func (a *app) profileUpdateCmd() *cobra.Command {
	var (
		upd model.ProfileUpdate
		dob string
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		Long: `Update profile fields. Only the flags that are passed are sent.

Example:
  luckyctl profile update --city Pokhara --address "Lakeside 7"
  luckyctl profile update --clear address,dateOfBirth`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := parseDate(dob)
			if err != nil {
				return a.fail(auth.NoticeFor(err), err)
			}
			upd.DateOfBirth = date

			gw, err := a.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			res := gw.UpdateProfile(cmd.Context(), upd)
			if !res.OK {
				return a.fail(res.Notice, res.Err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, a.out.ok.Render(a.text(res.Notice)))
			a.writeUserText(w, gw.Store().Snapshot().User)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&upd.Name, "name", "", "full name")
	f.StringVar(&upd.Email, "email", "", "email")
	f.StringVar(&upd.Phone, "phone", "", "phone")
	f.StringVar(&upd.City, "city", "", "city")
	f.StringVar(&upd.Address, "address", "", "address")
	f.StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD")
	f.StringSliceVar(&upd.Clear, "clear", nil, "optional fields to clear: address, dateOfBirth")
	return cmd
}

func (a *app) profilePasswdCmd() *cobra.Command {
	var pc model.PasswordChange
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password",
		Long: `Change the password. The new password must be at least 6 characters
and match the confirmation.

Example:
  luckyctl profile passwd --current old-secret --new new-secret --confirm new-secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := a.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			res := gw.ChangePassword(cmd.Context(), pc)
			if !res.OK {
				return a.fail(res.Notice, res.Err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.out.ok.Render(a.text(res.Notice)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&pc.CurrentPassword, "current", "", "current password")
	f.StringVar(&pc.NewPassword, "new", "", "new password")
	f.StringVar(&pc.ConfirmPassword, "confirm", "", "new password confirmation")
	return cmd
}
