package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type listedScenario struct {
	Title         string   `json:"title"`
	Tags          []string `json:"tags,omitempty"`
	Steps         []string `json:"steps"`
	Observational bool     `json:"observational,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON, withSteps bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the selected scenarios without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := loadSuite(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitConfigError, "load suite", err)
			}

			listed := make([]listedScenario, 0, len(suite.Scenarios))
			for _, sc := range suite.Scenarios {
				ls := listedScenario{Title: sc.Title, Tags: sc.Tags, Observational: sc.Observational}
				for _, st := range sc.Steps {
					ls.Steps = append(ls.Steps, st.Describe())
				}
				listed = append(listed, ls)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listed)
			}
			fmt.Fprintf(out, "%s (%d scenarios)\n", suite.Name, len(listed))
			for i, ls := range listed {
				tags := ""
				if len(ls.Tags) > 0 {
					tags = " [" + strings.Join(ls.Tags, ", ") + "]"
				}
				fmt.Fprintf(out, "%2d. %s%s\n", i+1, ls.Title, tags)
				if withSteps {
					for j, st := range ls.Steps {
						fmt.Fprintf(out, "      %d. %s\n", j+1, st)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scenarios as JSON")
	cmd.Flags().BoolVar(&withSteps, "steps", false, "print each scenario's steps")

	return cmd
}
