package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Mmx233/lptf/config"
	"github.com/Mmx233/lptf/socket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a Server.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// NoExclude broadcasts to every peer.
const NoExclude = -1

var ErrNotRunning = errors.New("server not running")

// Server multiplexes one listening socket and its peers on a single event loop.
type Server struct {
	config   *config.Server
	facility Facility
	registry *Registry
	logger   zerolog.Logger

	listener *socket.Socket
	polls    socket.PollSet
	readBuf  []byte
	ctx      context.Context

	state atomic.Int32

	mu       sync.Mutex // guards lifecycle transitions and the fields below
	addr     string
	looping  bool
	loopDone chan struct{}
}

// New creates a server. facility may be nil, in which case remote control
// requests are answered with an error packet.
func New(conf *config.Server, facility Facility) *Server {
	// Apply defaults to ensure all required fields have values
	conf.ApplyDefaults()

	logger := log.With().Str("com", "server").Logger()
	return &Server{
		config:   conf,
		facility: facility,
		registry: NewRegistry(conf.MaxClients, logger),
		logger:   logger,
		readBuf:  make([]byte, conf.ReadBufferSize),
		ctx:      context.Background(),
	}
}

// Serve creates, starts and runs a server until ctx is done.
func Serve(ctx context.Context, conf *config.Server, facility Facility) error {
	srv := New(conf, facility)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	return srv.Run(ctx)
}

// Start opens the listening socket. On failure the server stays stopped and
// the error names the failing step. Starting a running server is a no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if State(s.state.Load()) != StateStopped {
		return nil
	}
	s.state.Store(int32(StateStarting))

	ln, addr, err := s.listen()
	if err != nil {
		s.state.Store(int32(StateStopped))
		return err
	}
	s.listener = ln
	s.addr = addr
	s.state.Store(int32(StateRunning))

	s.logger.Info().
		Str("addr", addr).
		Int("max_clients", s.config.MaxClients).
		Str("full_policy", s.config.FullPolicy).
		Msg("server started")
	return nil
}

func (s *Server) listen() (*socket.Socket, string, error) {
	ln, err := socket.New(s.config.Listen.IP, s.config.Listen.Port)
	if err != nil {
		return nil, "", fmt.Errorf("resolve listen address: %w", err)
	}
	if err := ln.Create(); err != nil {
		return nil, "", fmt.Errorf("create socket: %w", err)
	}
	fail := func(step string, err error) (*socket.Socket, string, error) {
		_ = ln.Close()
		return nil, "", fmt.Errorf("%s: %w", step, err)
	}
	if err := ln.Bind(); err != nil {
		return fail("bind socket", err)
	}
	if err := ln.Listen(s.config.Backlog); err != nil {
		return fail("listen socket", err)
	}
	if err := ln.SetNonBlocking(true); err != nil {
		return fail("configure socket", err)
	}
	addr, err := ln.LocalAddr()
	if err != nil {
		return fail("resolve bound address", err)
	}
	return ln, addr, nil
}

// Run drives the event loop until Stop is called or ctx is done. Every peer
// and the listener are closed when it returns.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if State(s.state.Load()) != StateRunning || s.looping {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.looping = true
	s.loopDone = make(chan struct{})
	s.ctx = ctx
	done := s.loopDone
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.looping = false
		s.mu.Unlock()
		s.shutdown()
		close(done)
	}()

	s.logger.Debug().Msg("event loop started")
	for State(s.state.Load()) == StateRunning {
		if ctx.Err() != nil {
			s.state.Store(int32(StateStopped))
			return nil
		}
		if err := s.poll(); err != nil {
			s.state.Store(int32(StateStopped))
			s.logger.Error().Err(err).Msg("event loop failed")
			return err
		}
	}
	return nil
}

// Stop stops the server. When the event loop is running Stop waits for it to
// release every connection, otherwise it releases them itself. Peers are not
// notified. Stop is idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	prev := State(s.state.Swap(int32(StateStopped)))
	looping, done := s.looping, s.loopDone
	s.mu.Unlock()

	if looping {
		<-done
		return
	}
	if prev != StateStopped || s.registry.Count() > 0 {
		s.shutdown()
	}
}

// shutdown closes every peer, then the listener.
func (s *Server) shutdown() {
	peers := s.registry.Clear()
	for _, p := range peers {
		if err := p.conn.Close(); err != nil {
			p.logger.Debug().Err(err).Msg("close peer")
		}
	}

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln == nil {
		return
	}
	if err := ln.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("close listener")
	}
	s.logger.Info().Int("closed_peers", len(peers)).Msg("server stopped")
}

func (s *Server) State() State { return State(s.state.Load()) }

// Addr returns the bound "ip:port" of the listener once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) ClientCount() int { return s.registry.Count() }

// Clients returns the "ip:port" of every connected peer in arrival order.
func (s *Server) Clients() []string { return s.registry.Displays() }
