package network

import (
	"errors"
	"net"
	"sync"
	"time"
)

// UDPSocket defines an interface for UDP socket operations.
// This abstraction enables unit testing without real network connections.
type UDPSocket interface {
	// ReadFromUDP reads a UDP packet from the socket. Datagrams longer than b
	// are truncated to len(b).
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)

	// SetReadDeadline sets the deadline for future Read calls.
	SetReadDeadline(t time.Time) error

	// Close closes the socket.
	Close() error

	// LocalAddr returns the local network address.
	LocalAddr() net.Addr
}

// UDPSocketFactory creates bound UDP sockets.
type UDPSocketFactory interface {
	// ListenUDP creates a socket for network and binds it to laddr.
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// RealUDPSocketFactory implements UDPSocketFactory using net.ListenUDP.
type RealUDPSocketFactory struct{}

// NewRealUDPSocketFactory creates a new RealUDPSocketFactory.
func NewRealUDPSocketFactory() *RealUDPSocketFactory {
	return &RealUDPSocketFactory{}
}

// ListenUDP creates a new UDP socket. *net.UDPConn already satisfies UDPSocket.
func (f *RealUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MockRead is one scripted result of MockUDPSocket.ReadFromUDP: either a
// datagram or an error.
type MockRead struct {
	Data []byte
	Addr *net.UDPAddr
	Err  error
}

// MockUDPSocket implements UDPSocket for testing. Reads are served from Script
// in order; once it is exhausted reads block until the read deadline passes
// or the socket is closed, like an idle real socket.
type MockUDPSocket struct {
	mu           sync.Mutex
	script       []MockRead
	readIndex    int
	closed       bool
	closedCh     chan struct{}
	readDeadline time.Time
	localAddr    *net.UDPAddr
}

// NewMockUDPSocket creates a MockUDPSocket serving script.
func NewMockUDPSocket(script ...MockRead) *MockUDPSocket {
	return &MockUDPSocket{
		script:   script,
		closedCh: make(chan struct{}),
		localAddr: &net.UDPAddr{
			IP:   net.IPv4zero,
			Port: DefaultPort,
		},
	}
}

// ReadFromUDP returns the next scripted read.
func (m *MockUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, nil, net.ErrClosed
	}
	if m.readIndex < len(m.script) {
		r := m.script[m.readIndex]
		m.readIndex++
		m.mu.Unlock()
		if r.Err != nil {
			return 0, nil, r.Err
		}
		return copy(b, r.Data), r.Addr, nil
	}
	deadline := m.readDeadline
	m.mu.Unlock()

	wait := time.Until(deadline)
	if deadline.IsZero() || wait > time.Second {
		wait = time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: &timeoutError{}}
	case <-m.closedCh:
		return 0, nil, net.ErrClosed
	}
}

// SetReadDeadline records the deadline.
func (m *MockUDPSocket) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return net.ErrClosed
	}
	m.readDeadline = t
	return nil
}

// Close marks the socket as closed and wakes any blocked read.
func (m *MockUDPSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return net.ErrClosed
	}
	m.closed = true
	close(m.closedCh)
	return nil
}

// Closed reports whether Close was called.
func (m *MockUDPSocket) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reads reports how many scripted reads have been consumed.
func (m *MockUDPSocket) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readIndex
}

// LocalAddr returns the mock local address.
func (m *MockUDPSocket) LocalAddr() net.Addr {
	return m.localAddr
}

// MockUDPSocketFactory implements UDPSocketFactory for testing. Each
// ListenUDP call consumes the next entry of Results.
type MockUDPSocketFactory struct {
	mu      sync.Mutex
	results []MockListenResult
	calls   []MockListenCall
}

// MockListenResult is the outcome of one ListenUDP call.
type MockListenResult struct {
	Socket *MockUDPSocket
	Err    error
}

// MockListenCall records a call to ListenUDP.
type MockListenCall struct {
	Network string
	Addr    *net.UDPAddr
}

// ErrNoMockSocket is returned once a MockUDPSocketFactory runs out of results,
// or for a result with neither Socket nor Err.
var ErrNoMockSocket = errors.New("mock factory has no more sockets")

// NewMockUDPSocketFactory creates a factory returning results in order.
func NewMockUDPSocketFactory(results ...MockListenResult) *MockUDPSocketFactory {
	return &MockUDPSocketFactory{results: results}
}

// ListenUDP returns the next configured result.
func (f *MockUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, MockListenCall{Network: network, Addr: laddr})
	if len(f.calls) > len(f.results) {
		return nil, ErrNoMockSocket
	}
	r := f.results[len(f.calls)-1]
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Socket == nil {
		return nil, ErrNoMockSocket
	}
	return r.Socket, nil
}

// Calls returns the recorded ListenUDP calls.
func (f *MockUDPSocketFactory) Calls() []MockListenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MockListenCall(nil), f.calls...)
}

// timeoutError implements net.Error for timeout simulation.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
