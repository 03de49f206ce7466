package cmd

import (
	"fmt"

	"github.com/Mmx233/lptf/cmd/generate"
	"github.com/Mmx233/lptf/cmd/run"
	"github.com/Mmx233/lptf/protocol"
	"github.com/Mmx233/lptf/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"

	showVersion bool
	debug       bool
	envFile     string

	rootCmd = &cobra.Command{
		Use:   "lptf",
		Short: "Chat server and client speaking the LPTF binary protocol",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			SetLogLevel()
			if err := tools.LoadEnv(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			if showVersion {
				fmt.Println(Version)
				fmt.Println(protocol.ProtocolInfoString())
				return
			}
			cmd.Help()
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("failed to execute")
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print version information")
	rootCmd.AddCommand(run.Cmd)
	rootCmd.AddCommand(generate.Cmd)
}

// SetLogLevel sets the global log level based on debug flag.
// Call this after flags are parsed.
func SetLogLevel() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
