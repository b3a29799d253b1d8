package cli

import (
	"fmt"

	"github.com/dgnsrekt/pagecheck/internal/artifacts"
	"github.com/spf13/cobra"
)

// NewArtifactsCommand creates the artifacts command.
func NewArtifactsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts",
		Short: "List screenshots captured by previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := artifacts.NewStore(rootOpts.Config.ArtifactDir)
			if err != nil {
				return WrapExitError(ExitConfigError, "open artifact store", err)
			}
			metas, err := store.List()
			if err != nil {
				return WrapExitError(ExitFailure, "list artifacts", err)
			}

			out := cmd.OutOrStdout()
			if len(metas) == 0 {
				fmt.Fprintf(out, "no artifacts in %s\n", store.Dir())
				return nil
			}
			for _, m := range metas {
				fmt.Fprintf(out, "%s  %-7s %s  %s (%d bytes)\n",
					m.CreatedAt.Local().Format("2006-01-02 15:04:05"), m.Kind, m.Scenario, m.Path, m.SizeBytes)
			}
			return nil
		},
	}
}
