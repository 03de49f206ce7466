package config

import "github.com/spf13/cobra"

// ServerCmd writes the server configuration template.
var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Generate server configuration file",
	Args:  cobra.NoArgs,
	RunE:  runServerGenerate,
}

func runServerGenerate(cmd *cobra.Command, args []string) error {
	return writeTemplate("server")
}
