package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyraxabir/minio-anomaly-detector/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "minio-anomaly-detector %s\n", version.String())
			return nil
		},
	}
}
