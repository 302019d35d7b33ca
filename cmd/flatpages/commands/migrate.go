package commands

import (
	"fmt"

	"flatpages/internal/database"

	"github.com/spf13/cobra"
)

// migrateCmd brings the schema up to date and creates the default rows
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the database schema",
	Long: `Migrate creates or updates the tables for users, sites, tags and pages,
then makes sure the current site and the default page owner exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%d models)\n", len(database.PersistentModels()))
		return err
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
