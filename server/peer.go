package server

import (
	"time"

	"github.com/Mmx233/lptf/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Conn is the transport the event loop drives. *socket.Socket implements it.
type Conn interface {
	Fd() int
	Addr() string
	Send(b []byte) (int, error)
	Receive(b []byte) (int, error)
	Valid() bool
	Connected() bool
	Close() error
}

// Peer is one registered connection.
type Peer struct {
	conn       Conn
	fd         int
	display    string
	session    string
	acceptedAt time.Time
	nickname   string

	// bytes of a packet not yet complete
	pending []byte
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func newPeer(conn Conn, limit config.RateLimit, logger zerolog.Logger) *Peer {
	p := &Peer{
		conn:       conn,
		fd:         conn.Fd(),
		display:    conn.Addr(),
		session:    uuid.NewString(),
		acceptedAt: time.Now(),
	}
	if limit.MessagesPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(limit.MessagesPerSecond), limit.Burst)
	}
	p.logger = logger.With().
		Str("remote", p.display).
		Int("fd", p.fd).
		Str("session", p.session).
		Logger()
	return p
}

// Fd returns the handle the peer was registered under.
func (p *Peer) Fd() int { return p.fd }

// Display returns the "ip:port" shown to other peers.
func (p *Peer) Display() string { return p.display }

func (p *Peer) Session() string { return p.session }
func (p *Peer) Nickname() string { return p.nickname }
func (p *Peer) AcceptedAt() time.Time { return p.acceptedAt }

// allow reports whether the peer is within its message rate.
func (p *Peer) allow() bool {
	return p.limiter == nil || p.limiter.Allow()
}

// name is what chat messages are attributed to.
func (p *Peer) name() string {
	if p.nickname != "" {
		return p.nickname
	}
	return p.display
}
