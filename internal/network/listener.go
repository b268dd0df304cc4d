package network

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/banshee-data/robot.frontend/internal/monitoring"
)

var logger = monitoring.Tag("udpsrv")

// DefaultPollInterval bounds how long one blocking read waits before the
// listener rechecks its context.
const DefaultPollInterval = 250 * time.Millisecond

// Datagram is the payload of one receive call together with its sender.
type Datagram struct {
	Data []byte
	Addr *net.UDPAddr
}

// UDPListener receives datagrams from one bound socket.
type UDPListener struct {
	sock         UDPSocket
	maxSize      int
	pollInterval time.Duration
	stats        Stats
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	// MaxDatagramSize caps the bytes kept from each datagram. Zero means
	// MaxDatagramSize.
	MaxDatagramSize int
	// PollInterval is the read deadline used to observe cancellation. Zero
	// means DefaultPollInterval.
	PollInterval time.Duration
	Stats        Stats
}

// NewUDPListener wraps a bound socket.
func NewUDPListener(sock UDPSocket, config UDPListenerConfig) *UDPListener {
	maxSize := config.MaxDatagramSize
	if maxSize <= 0 || maxSize > MaxDatagramSize {
		maxSize = MaxDatagramSize
	}
	poll := config.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &UDPListener{
		sock:         sock,
		maxSize:      maxSize,
		pollInterval: poll,
		stats:        statsOrNoop(config.Stats),
	}
}

// Receive blocks until a datagram arrives. Datagrams longer than the maximum
// size are truncated silently. It returns ctx.Err() once ctx is done and a
// *SocketError with StageReceive on any other failure.
func (l *UDPListener) Receive(ctx context.Context) (Datagram, error) {
	// Scoped to this call so no datagram aliases another.
	buf := make([]byte, l.maxSize)
	for {
		if err := ctx.Err(); err != nil {
			return Datagram{}, err
		}
		if err := l.sock.SetReadDeadline(time.Now().Add(l.pollInterval)); err != nil {
			return Datagram{}, l.receiveError(ctx, err)
		}

		n, addr, err := l.sock.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return Datagram{}, l.receiveError(ctx, err)
		}

		l.stats.AddPacket(n)
		return Datagram{Data: buf[:n], Addr: addr}, nil
	}
}

func (l *UDPListener) receiveError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &SocketError{Stage: StageReceive, Err: err}
}

// Listen runs the receive loop, passing each datagram to h, until ctx is done
// or a receive fails.
func (l *UDPListener) Listen(ctx context.Context, h PacketHandler) error {
	for {
		logger.Debugf("waiting for data")
		dg, err := l.Receive(ctx)
		if err != nil {
			return err
		}
		h.HandleDatagram(dg)
	}
}
