package commands

import (
	"errors"
	"fmt"

	"flatpages/internal/seed"

	"github.com/spf13/cobra"
)

var (
	// Seed flags
	fixturesPath string
	demoPages    int
	demoSeed     int64
	clean        bool
)

// seedCmd loads fixtures and demo content
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed pages from fixtures or generated demo content",
	Long: `Seed creates pages from a YAML fixtures file, generated demo content, or both.
Pages whose URL already exists are skipped.

Examples:
  flatpages seed --fixtures fixtures/pages.yml
  flatpages seed --demo 50 --seed 7
  flatpages seed --clean --demo 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fixturesPath == "" && demoPages <= 0 && !clean {
			return errors.New("nothing to do: pass --fixtures, --demo or --clean")
		}

		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()

		if clean {
			if err := a.seeder.ClearAll(ctx); err != nil {
				return err
			}
		}

		var total seed.Result
		if fixturesPath != "" {
			set, err := seed.LoadFixturesFile(fixturesPath)
			if err != nil {
				return err
			}
			res, err := a.seeder.Apply(ctx, set)
			if err != nil {
				return err
			}
			total.Created += res.Created
			total.Skipped += res.Skipped
		}
		if demoPages > 0 {
			res, err := a.seeder.Demo(ctx, demoPages, demoSeed)
			if err != nil {
				return err
			}
			total.Created += res.Created
			total.Skipped += res.Skipped
		}

		if jsonOutput {
			return printJSON(cmd, total)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %d pages, skipped %d\n", total.Created, total.Skipped)
		return err
	},
}

func init() {
	seedCmd.Flags().StringVar(&fixturesPath, "fixtures", "", "YAML fixtures file to load")
	seedCmd.Flags().IntVar(&demoPages, "demo", 0, "Number of demo pages to generate")
	seedCmd.Flags().Int64Var(&demoSeed, "seed", 0, "Random seed for demo content (0 picks one)")
	seedCmd.Flags().BoolVar(&clean, "clean", false, "Delete all pages and tags first")
	rootCmd.AddCommand(seedCmd)
}
