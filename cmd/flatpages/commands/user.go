package commands

import (
	"fmt"
	"text/tabwriter"

	"flatpages/internal/service"

	"github.com/spf13/cobra"
)

var (
	// User flags
	userEmail    string
	userPassword string
	userStaff    bool
	userLimit    int
)

// userCmd groups account management
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create USERNAME",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		user, err := a.auth.CreateUser(cmd.Context(), service.CreateUserInput{
			Username: args[0],
			Email:    userEmail,
			Password: userPassword,
			IsStaff:  userStaff,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, user)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, staff=%t)\n", user.Username, user.ID, user.IsStaff)
		return err
	},
}

func staffCmd(use, short string, staff bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " USERNAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			user, err := a.auth.SetStaff(cmd.Context(), args[0], staff)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, user)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: staff=%t\n", user.Username, user.IsStaff)
			return err
		},
	}
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		users, err := a.auth.ListUsers(cmd.Context(), userLimit, 0)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, users)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tSTAFF\tACTIVE")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", u.ID, u.Username, u.Email, u.IsStaff, u.IsActive)
		}
		return w.Flush()
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password")
	userCreateCmd.Flags().BoolVar(&userStaff, "staff", false, "Grant staff rights")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userListCmd.Flags().IntVar(&userLimit, "limit", 100, "Maximum number of users")

	userCmd.AddCommand(
		userCreateCmd,
		staffCmd("promote", "Grant staff rights", true),
		staffCmd("demote", "Revoke staff rights", false),
		userListCmd,
	)
	rootCmd.AddCommand(userCmd)
}
