package commands

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"flatpages/internal/models"
	"flatpages/internal/query"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// composerFlags are the page query options shared by listing and export.
type composerFlags struct {
	values map[string]*string
	preset string
	drafts bool
}

func addComposerFlags(fs *pflag.FlagSet) *composerFlags {
	cf := &composerFlags{values: map[string]*string{}}
	usage := map[string]string{
		query.KeySort:       "Sort order (" + strings.Join(query.SortNames(), ", ") + ")",
		query.KeyTags:       "Comma separated tags a page must have",
		query.KeyNotTags:    "Comma separated tags a page must not have",
		query.KeyStartsWith: "URL prefix",
		query.KeyOwners:     "Comma separated owner IDs",
		query.KeyLimit:      "Maximum number of pages (0 for all)",
		query.KeyRemove:     "Comma separated page IDs to leave out",
	}
	for _, key := range query.Keys {
		cf.values[key] = fs.String(strings.ReplaceAll(key, "_", "-"), "", usage[key])
	}
	fs.StringVar(&cf.preset, "preset", "", "Named listing ("+strings.Join(query.PresetNames(), ", ")+"); not combined with --sort")
	fs.BoolVar(&cf.drafts, "drafts", false, "Include draft pages")
	return cf
}

// options parses the flags that were set.
func (cf *composerFlags) options(fs *pflag.FlagSet) (query.Options, error) {
	args := map[string]any{}
	for key, v := range cf.values {
		if fs.Changed(strings.ReplaceAll(key, "_", "-")) {
			args[key] = *v
		}
	}
	opts, err := query.ParseOptions(args)
	if err != nil {
		return query.Options{}, err
	}
	if cf.preset != "" {
		if fs.Changed(query.KeySort) {
			return query.Options{}, models.NewInvalidArgumentError("preset", errors.New("cannot be combined with --sort"))
		}
		preset, err := query.Preset(cf.preset, opts.Limit)
		if err != nil {
			return query.Options{}, err
		}
		opts.Sort = preset.Sort
	}
	opts.PublishedOnly = !cf.drafts
	return opts, nil
}

var listFlags *composerFlags

// pagesCmd groups page commands
var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Query pages",
}

var pagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pages of the current site",
	Long: `List runs a page query with the same options templates and the API accept.

Examples:
  flatpages pages list --sort views --limit 10
  flatpages pages list --preset most-recently-modified --limit 5
  flatpages pages list --tags news,press --not-tags archive
  flatpages pages list --starts-with /docs/ --drafts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := listFlags.options(cmd.Flags())
		if err != nil {
			return err
		}

		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		pages, err := a.pages.Fetch(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, pages)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tTITLE\tSTATUS\tVIEWS\tTAGS")
		for _, p := range pages {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
				p.ID, p.URL, p.Title, p.Status.Label(), p.Views, strings.Join(p.TagNames(), ","))
		}
		return w.Flush()
	},
}

func init() {
	listFlags = addComposerFlags(pagesListCmd.Flags())
	pagesCmd.AddCommand(pagesListCmd)
	rootCmd.AddCommand(pagesCmd)
}
