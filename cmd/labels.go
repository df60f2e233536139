package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/track-analysis/internal/app"
	"github.com/RyanBlaney/track-analysis/pkg/labels"
)

var labelsQuery string

// labelsCmd represents the labels command
var labelsCmd = &cobra.Command{
	Use:   "labels [genre]",
	Short: "List the label catalog or match a genre",
	Long: `Without arguments, print every label in the catalog with the genres it accepts.
With a genre, print the labels that accept it, best match first.

Examples:
  track-analysis labels
  track-analysis labels "deep house" -o table`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLabels,
}

func init() {
	rootCmd.AddCommand(labelsCmd)

	labelsCmd.Flags().StringVarP(&labelsQuery, "query", "q", "",
		"jq expression applied to the output document")
}

func runLabels(cmd *cobra.Command, args []string) error {
	appConfig, err := loadAppConfig()
	if err != nil {
		return err
	}

	renderer, err := app.NewRenderer(appConfig, labelsQuery, noColor)
	if err != nil {
		return err
	}

	catalog, err := app.LoadCatalog(appConfig)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return renderer.RenderCatalog(os.Stdout, catalog.Entries())
	}

	genre := labels.Normalize(args[0])
	return renderer.RenderMatches(os.Stdout, genre, catalog.Match(genre))
}
