package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is a step of the supervisor's listening cycle.
type State int32

const (
	StateIdle State = iota
	StateSocketCreated
	StateBound
	StateListening
	StateFaulted
	// StateStopped is entered when Run returns.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSocketCreated:
		return "socket_created"
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateFaulted:
		return "faulted"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	Family AddressFamily
	// Port to bind on the wildcard address. Zero picks an ephemeral port.
	Port            int
	MaxDatagramSize int
	PollInterval    time.Duration
	// Factory creates sockets; nil uses the real network.
	Factory UDPSocketFactory
	// Handler receives every datagram.
	Handler PacketHandler
	Stats   Stats
	// OnStateChange, if set, is called on the supervisor goroutine at every
	// transition.
	OnStateChange func(State)
}

// Supervisor owns the listening socket. It creates and binds a socket, runs
// the receive loop, and after a receive failure closes the socket and starts
// over immediately. Failing to create or bind a socket stops it for good.
//
// There is no backoff and no restart budget: a socket that fails every
// receive is recreated as fast as the kernel allows.
type Supervisor struct {
	cfg     SupervisorConfig
	factory UDPSocketFactory
	stats   Stats

	state    atomic.Int32
	restarts atomic.Uint64

	// announced is set once OnStateChange has seen a state. Only the Run
	// goroutine touches it.
	announced bool

	mu        sync.Mutex
	sessionID string
	localAddr net.Addr
}

// NewSupervisor returns a Supervisor for cfg. Handler is required.
func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if cfg.Handler == nil {
		return nil, errors.New("supervisor requires a packet handler")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	factory := cfg.Factory
	if factory == nil {
		factory = NewRealUDPSocketFactory()
	}
	return &Supervisor{
		cfg:     cfg,
		factory: factory,
		stats:   statsOrNoop(cfg.Stats),
	}, nil
}

// Run executes the listening cycle until ctx is done or socket setup fails.
// It returns ctx.Err() on cancellation and a *SocketError for a create or
// bind failure.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.setState(StateStopped)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.setState(StateIdle)

		sock, openErr := s.open()
		if openErr != nil {
			s.stats.AddSocketError(openErr.Stage)
			logger.Printf("unable to start listener: %v", openErr)
			return openErr
		}

		s.setState(StateListening)
		listener := NewUDPListener(sock, UDPListenerConfig{
			MaxDatagramSize: s.cfg.MaxDatagramSize,
			PollInterval:    s.cfg.PollInterval,
			Stats:           s.stats,
		})
		err := listener.Listen(ctx, s.cfg.Handler)

		if ctx.Err() != nil {
			s.closeSocket(sock)
			logger.Printf("listener stopping due to context cancellation")
			return ctx.Err()
		}

		s.setState(StateFaulted)
		s.stats.AddSocketError(StageReceive)
		logger.Printf("%v (session %s)", err, s.SessionID())
		logger.Printf("shutting down socket and restarting...")
		s.closeSocket(sock)
		s.restarts.Add(1)
		s.stats.AddRestart()
	}
}

func (s *Supervisor) open() (UDPSocket, *SocketError) {
	network := s.cfg.Family.Network()
	laddr := s.cfg.Family.WildcardAddr(s.cfg.Port)

	sock, err := s.factory.ListenUDP(network, laddr)
	if err != nil {
		return nil, classifyListenError(err)
	}
	// net.ListenUDP creates and binds in one step, so both states are
	// entered once it succeeds.
	s.setState(StateSocketCreated)
	id := uuid.NewString()
	s.mu.Lock()
	s.sessionID = id
	s.localAddr = sock.LocalAddr()
	s.mu.Unlock()
	logger.Printf("socket created, session %s", id)

	s.setState(StateBound)
	logger.Printf("socket bound, %s %v", network, sock.LocalAddr())
	return sock, nil
}

func (s *Supervisor) closeSocket(sock UDPSocket) {
	if err := sock.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Printf("failed to close socket: %v", err)
	}
	s.mu.Lock()
	s.localAddr = nil
	s.mu.Unlock()
}

func (s *Supervisor) setState(st State) {
	if State(s.state.Swap(int32(st))) == st && s.announced {
		return
	}
	s.announced = true
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}

// State returns the current state. Safe for concurrent use.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Restarts returns how many restart cycles have run.
func (s *Supervisor) Restarts() uint64 {
	return s.restarts.Load()
}

// SessionID identifies the most recently bound socket.
func (s *Supervisor) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// LocalAddr returns the bound address of the live socket, or nil.
func (s *Supervisor) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localAddr
}
