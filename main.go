package main

import (
	"os"
	"time"

	"github.com/Mmx233/lptf/cmd"
	"github.com/Mmx233/lptf/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
		// https://no-color.org
		NoColor: tools.GetenvDefault("NO_COLOR", "") != "",
	})
}

func main() {
	cmd.Execute()
}
