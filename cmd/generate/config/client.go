package config

import "github.com/spf13/cobra"

// ClientCmd writes the client configuration template.
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Generate client configuration file",
	Args:  cobra.NoArgs,
	RunE:  runClientGenerate,
}

func runClientGenerate(cmd *cobra.Command, args []string) error {
	return writeTemplate("client")
}
