package configcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryanreadbooks/primon/config"
	"github.com/ryanreadbooks/primon/pkg/schema"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the primon configuration.",
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of config.yaml.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := schema.Indented[config.Config]()
		if err != nil {
			return fmt.Errorf("failed to render schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path of config.yaml.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetWorkspaceConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(schemaCmd)
	ConfigCmd.AddCommand(pathCmd)
}
