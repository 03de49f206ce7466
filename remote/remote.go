// Package remote answers the remote control requests of the LPTF protocol:
// host introspection, process listing, command execution and a synthetic
// input capture demo.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Mmx233/lptf/config"
	"github.com/Mmx233/lptf/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedRequest = errors.New("unsupported remote request")

// Controller implements server.Facility.
type Controller struct {
	config  config.Remote
	capture *capture
	logger  zerolog.Logger
}

func New(conf config.Remote) *Controller {
	conf.ApplyDefaults()
	logger := log.With().Str("com", "remote").Logger()
	return &Controller{
		config:  conf,
		capture: newCapture(conf.CaptureInterval, conf.CaptureLimit, logger),
		logger:  logger,
	}
}

// Handle serves one request and returns the packet to send back.
func (c *Controller) Handle(ctx context.Context, req *protocol.Packet) (*protocol.Packet, error) {
	switch t := req.Type(); t {
	case protocol.MsgTypeHostInfoRequest:
		info, err := HostInfoWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("host info: %w", err)
		}
		return info.Packet(), nil

	case protocol.MsgTypeProcessListRequest:
		procs, err := ListProcesses(ctx, c.config.ProcessLimit)
		if err != nil {
			return nil, fmt.Errorf("process list: %w", err)
		}
		return processListPacket(procs), nil

	case protocol.MsgTypeExecCommandRequest:
		return c.exec(ctx, req)

	case protocol.MsgTypeCaptureStart:
		if c.capture.Start() {
			return captureStatusPacket(true, "capture started"), nil
		}
		return captureStatusPacket(true, "capture already running"), nil

	case protocol.MsgTypeCaptureStop:
		if c.capture.Stop() {
			return captureStatusPacket(false, "capture stopped"), nil
		}
		return captureStatusPacket(false, "capture not running"), nil

	case protocol.MsgTypeCaptureDataRequest:
		p := protocol.NewPacket(protocol.MsgTypeCaptureData)
		p.SetString("captured_keys", truncate(c.capture.Captured(), protocol.MaxValueLength))
		p.SetUint64("timestamp", uint64(time.Now().Unix()))
		return p, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRequest, t)
	}
}

func (c *Controller) exec(ctx context.Context, req *protocol.Packet) (*protocol.Packet, error) {
	if !c.config.AllowExec {
		c.logger.Warn().Msg("command execution requested while disabled")
		return protocol.NewError(protocol.ErrCodeForbidden, "command execution disabled"), nil
	}
	command, err := req.String("command")
	if err != nil || command == "" {
		return protocol.NewError(protocol.ErrCodeBadRequest, "missing command"), nil
	}

	res, err := Run(ctx, command, c.config.ExecTimeout)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	c.logger.Info().
		Str("command", command).
		Uint32("exit_code", res.ExitCode).
		Bool("timed_out", res.TimedOut).
		Msg("command executed")

	p := protocol.NewPacket(protocol.MsgTypeExecCommandResponse)
	p.SetString("output", truncate(res.Output, protocol.MaxValueLength))
	p.SetUint32("exit_code", res.ExitCode)
	p.SetUint64("timestamp", uint64(time.Now().Unix()))
	return p, nil
}

// Capturing reports whether the capture worker is running.
func (c *Controller) Capturing() bool { return c.capture.Active() }

// Close stops the capture worker and waits for it to exit.
func (c *Controller) Close() error {
	c.capture.Stop()
	return nil
}

func captureStatusPacket(active bool, message string) *protocol.Packet {
	p := protocol.NewPacket(protocol.MsgTypeCaptureStatus)
	var flag uint32
	if active {
		flag = 1
	}
	p.SetUint32("active", flag)
	p.SetString("message", message)
	p.SetUint64("timestamp", uint64(time.Now().Unix()))
	return p
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
