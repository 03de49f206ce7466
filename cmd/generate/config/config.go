package config

import (
	"fmt"
	"os"

	"github.com/Mmx233/lptf/examples"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configFile string // --config flag value
	force      bool   // --force flag value

	Cmd = &cobra.Command{
		Use:   "config",
		Short: "Generate LPTF configuration files",
		Args:  cobra.NoArgs,
	}
)

func init() {
	Cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "output config file path")
	Cmd.PersistentFlags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	Cmd.AddCommand(ServerCmd, ClientCmd)
}

// GetConfigFile returns the value of the --config flag
func GetConfigFile() string {
	return configFile
}

// writeTemplate writes the embedded template for kind to the output path.
func writeTemplate(kind string) error {
	logger := log.With().Str("com", "generate").Logger()
	outputPath := GetConfigFile()

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", outputPath)
		}
	}

	content, err := examples.Template(kind)
	if err != nil {
		return fmt.Errorf("load %s config template: %w", kind, err)
	}
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	logger.Info().Str("kind", kind).Str("file", outputPath).Msg("generated configuration")
	return nil
}
