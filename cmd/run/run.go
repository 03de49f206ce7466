package run

import (
	"github.com/Mmx233/lptf/config"
	"github.com/Mmx233/lptf/tools"
	"github.com/spf13/cobra"
)

var (
	configFile string
	Cmd        = &cobra.Command{
		Use:   "run",
		Short: "Run lptf server or client",
		Args:  cobra.NoArgs,
	}
)

func init() {
	Cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path of config file (default $"+config.EnvPrefix+"CONFIG or config.yaml)")
	Cmd.AddCommand(serverCmd)
	Cmd.AddCommand(clientCmd)
}

// configPath resolves the config file once the env file has been loaded.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return tools.GetenvDefault(config.EnvPrefix+"CONFIG", "config.yaml")
}
