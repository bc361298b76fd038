// Package version prints build metadata.
package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
)

// Command returns the version command.
func Command(build buildinfo.BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := buildinfo.Summarize(build)
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(s)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "streampuffer %s (built %s, %s, %s)\n",
				s.Version, s.BuildDate, s.GoVersion, s.Platform)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
