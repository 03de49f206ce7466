package run

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mmx233/lptf/protocol"
)

const commandHelp = `commands:
  /chat <message>          send a chat packet
  /hello                   announce the username
  /info                    request protocol information
  /ping                    measure a round trip
  /host                    request host information
  /ps                      request the process list
  /exec <command>          run a command on the server
  /capture start|stop|dump control the capture demo
  /quit                    leave
anything else is sent as plain text`

var errUsage = errors.New(commandHelp)

// action is what one input line asks the client to do.
type action struct {
	packet *protocol.Packet
	text   string
	quit   bool
}

func parseLine(line, username string) (action, error) {
	if !strings.HasPrefix(line, "/") {
		return action{text: line}, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	now := uint64(time.Now().UnixMilli())

	switch name {
	case "chat":
		if arg == "" {
			return action{}, fmt.Errorf("usage: /chat <message>")
		}
		return action{packet: protocol.NewChat(username, arg, now)}, nil
	case "hello":
		return action{packet: protocol.NewHello(username)}, nil
	case "info":
		return action{packet: protocol.NewPacket(protocol.MsgTypeProtocolInfo)}, nil
	case "ping":
		return action{packet: protocol.NewPing(now)}, nil
	case "host":
		return action{packet: protocol.NewPacket(protocol.MsgTypeHostInfoRequest)}, nil
	case "ps":
		return action{packet: protocol.NewPacket(protocol.MsgTypeProcessListRequest)}, nil
	case "exec":
		if arg == "" {
			return action{}, fmt.Errorf("usage: /exec <command>")
		}
		p := protocol.NewPacket(protocol.MsgTypeExecCommandRequest)
		p.SetString("command", arg)
		return action{packet: p}, nil
	case "capture":
		switch arg {
		case "start":
			return action{packet: protocol.NewPacket(protocol.MsgTypeCaptureStart)}, nil
		case "stop":
			return action{packet: protocol.NewPacket(protocol.MsgTypeCaptureStop)}, nil
		case "dump":
			return action{packet: protocol.NewPacket(protocol.MsgTypeCaptureDataRequest)}, nil
		}
		return action{}, fmt.Errorf("usage: /capture start|stop|dump")
	case "quit", "exit":
		return action{quit: true}, nil
	}
	return action{}, errUsage
}
