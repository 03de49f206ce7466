package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Mmx233/lptf/client"
	"github.com/Mmx233/lptf/config"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	clientCmd = &cobra.Command{
		Use:   "client",
		Short: "Start interactive client",
		Args:  cobra.NoArgs,
		RunE:  runClient,
	}

	shutdownGrace = time.Second
)

func runClient(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "client-cmd").Logger()

	// Load configuration with validation
	path := configPath()
	logger.Info().Str("config", path).Msg("loading configuration")
	cfg, err := config.LoadClientConfig(path)
	if err != nil {
		return err
	}

	c, err := client.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	return session(ctx, c, os.Stdin, cmd.OutOrStdout(), logger)
}

// session pumps input lines to the server and server messages to out until
// the user quits, the input ends, ctx is done or the server hangs up.
func session(ctx context.Context, c *client.Client, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	var outMu sync.Mutex
	printf := func(format string, a ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, format, a...)
	}

	received := make(chan error, 1)
	go func() { received <- receiveLoop(c, printf) }()

	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-quit:
				return
			}
		}
	}()

	if err := c.Hello(); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	var result error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-received:
			// the server hung up first
			if !errors.Is(err, io.EOF) {
				result = err
			}
			return result
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if line == "" {
				continue
			}
			act, err := parseLine(line, c.Username())
			if err != nil {
				printf("%s\n", err)
				continue
			}
			if act.quit {
				break loop
			}
			if act.packet != nil {
				err = c.SendPacket(act.packet)
			} else {
				err = c.SendText(act.text)
			}
			if err != nil {
				result = fmt.Errorf("send: %w", err)
				break loop
			}
		}
	}

	if err := c.Disconnect(""); err != nil {
		logger.Debug().Err(err).Msg("send disconnect")
	}
	select {
	case <-received:
	case <-time.After(shutdownGrace):
		_ = c.Shutdown()
		<-received
	}
	return result
}

func receiveLoop(c *client.Client, printf func(string, ...any)) error {
	for {
		msg, err := c.Receive()
		if errors.Is(err, client.ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		if !msg.IsPacket() {
			printf("%s\n", msg)
			continue
		}
		data, err := json.Marshal(msg.Packet)
		if err != nil {
			printf("%s\n", msg)
			continue
		}
		printf("%s\n", data)
	}
}
