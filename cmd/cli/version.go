package cli

import (
	"encoding/json"
	"fmt"

	"github.com/flowbaker/misoca-monthly/internal/version"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			info := version.Get()
			if !asJSON {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s)\n", version.Name, version.GetShortVersion(), info.GoVersion, info.Platform)
				return nil
			}

			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}
