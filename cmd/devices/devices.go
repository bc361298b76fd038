// Package devices lists audio capture devices.
package devices

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DA1F/RoAnalyzer/internal/ingest"
)

// Command returns the devices command.
func Command() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devs, err := ingest.ListDevices()
			if err != nil {
				return err
			}
			return printDevices(cmd.OutOrStdout(), devs, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")
	return cmd
}

func printDevices(w io.Writer, devs []ingest.AudioDeviceInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(devs)
	}

	if len(devs) == 0 {
		_, err := fmt.Fprintln(w, "No capture devices found")
		return err
	}
	for _, d := range devs {
		marker := ""
		if d.IsDefault {
			marker = " (default)"
		}
		if _, err := fmt.Fprintf(w, "%d: %s%s\n   id: %s\n", d.Index, d.Name, marker, d.ID); err != nil {
			return err
		}
	}
	return nil
}
