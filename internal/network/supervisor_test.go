package network

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/robot.frontend/internal/dispatch"
	"github.com/banshee-data/robot.frontend/internal/robotpb"
)

type motorCall struct {
	Left, Right int32
	Timeout     uint32
}

// recordingMotor is a thread-safe MotorActionHandler for supervisor tests.
type recordingMotor struct {
	mu    sync.Mutex
	calls []motorCall
}

func (r *recordingMotor) OnMotorAction(left, right int32, timeout uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, motorCall{left, right, timeout})
	return nil
}

func (r *recordingMotor) Calls() []motorCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]motorCall(nil), r.calls...)
}

// stateLog records supervisor transitions.
type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (s *stateLog) record(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *stateLog) Get() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.states...)
}

func mustMarshal(t *testing.T, req *robotpb.RobotRequest) []byte {
	t.Helper()
	b, err := robotpb.Marshal(req)
	require.NoError(t, err)
	return b
}

func newTestSupervisor(t *testing.T, factory UDPSocketFactory, motor dispatch.MotorActionHandler, states *stateLog) *Supervisor {
	t.Helper()
	cfg := SupervisorConfig{
		Family:       IPv4,
		Port:         DefaultPort,
		PollInterval: 5 * time.Millisecond,
		Factory:      factory,
		Handler:      NewRequestPipeline(dispatch.NewDispatcher(motor), nil),
	}
	if states != nil {
		cfg.OnStateChange = states.record
	}
	s, err := NewSupervisor(cfg)
	require.NoError(t, err)
	return s
}

func runSupervisor(s *Supervisor) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func TestNewSupervisor_RequiresHandler(t *testing.T) {
	_, err := NewSupervisor(SupervisorConfig{})
	assert.Error(t, err)

	_, err = NewSupervisor(SupervisorConfig{Handler: PacketHandlerFunc(func(Datagram) {}), Port: 70000})
	assert.Error(t, err)
}

func TestSupervisor_DispatchesAction(t *testing.T) {
	sock := NewMockUDPSocket(MockRead{Data: mustMarshal(t, robotpb.NewActionRequest(50, -50, 2000)), Addr: testSender})
	factory := NewMockUDPSocketFactory(MockListenResult{Socket: sock})
	motor := &recordingMotor{}
	s := newTestSupervisor(t, factory, motor, nil)

	cancel, done := runSupervisor(s)
	require.Eventually(t, func() bool { return len(motor.Calls()) == 1 }, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []motorCall{{50, -50, 2000}}, motor.Calls())
	assert.True(t, sock.Closed())
	assert.Equal(t, StateStopped, s.State())

	calls := factory.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "udp4", calls[0].Network)
	assert.Equal(t, DefaultPort, calls[0].Addr.Port)
	assert.True(t, calls[0].Addr.IP.Equal(net.IPv4zero))
}

func TestSupervisor_PingAndGarbageDoNotDispatch(t *testing.T) {
	sock := NewMockUDPSocket(
		MockRead{Data: mustMarshal(t, robotpb.NewPingRequest())},
		MockRead{Data: []byte{0xde, 0xad, 0xbe, 0xef}},
		MockRead{Data: nil},
		MockRead{Data: mustMarshal(t, robotpb.NewActionRequest(1, 2, 3))},
	)
	factory := NewMockUDPSocketFactory(MockListenResult{Socket: sock})
	motor := &recordingMotor{}
	s := newTestSupervisor(t, factory, motor, nil)

	cancel, done := runSupervisor(s)
	require.Eventually(t, func() bool { return sock.Reads() == 4 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(motor.Calls()) == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []motorCall{{1, 2, 3}}, motor.Calls(), "only the action reaches the motor")
	assert.Zero(t, s.Restarts(), "decode failures never restart the socket")
}

func TestSupervisor_RestartsAfterReceiveFailure(t *testing.T) {
	first := NewMockUDPSocket(
		MockRead{Data: mustMarshal(t, robotpb.NewActionRequest(10, 10, 100))},
		MockRead{Err: &net.OpError{Op: "read", Net: "udp", Err: os.NewSyscallError("recvfrom", syscall.ECONNRESET)}},
	)
	second := NewMockUDPSocket(
		MockRead{Data: mustMarshal(t, robotpb.NewActionRequest(20, 20, 200))},
	)
	factory := NewMockUDPSocketFactory(
		MockListenResult{Socket: first},
		MockListenResult{Socket: second},
	)
	motor := &recordingMotor{}
	states := &stateLog{}
	s := newTestSupervisor(t, factory, motor, states)

	cancel, done := runSupervisor(s)
	require.Eventually(t, func() bool { return len(motor.Calls()) == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return s.State() == StateListening }, time.Second, time.Millisecond)
	firstSession := s.SessionID()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	assert.True(t, first.Closed(), "faulted socket is closed")
	assert.True(t, second.Closed())
	assert.Len(t, factory.Calls(), 2)
	assert.Equal(t, uint64(1), s.Restarts())
	assert.NotEmpty(t, firstSession)
	assert.Equal(t, []motorCall{{10, 10, 100}, {20, 20, 200}}, motor.Calls())

	assert.Equal(t, []State{
		StateIdle,
		StateSocketCreated, StateBound, StateListening,
		StateFaulted, StateIdle,
		StateSocketCreated, StateBound, StateListening,
		StateStopped,
	}, states.Get())
}

func TestSupervisor_OutOfBandCloseRestarts(t *testing.T) {
	first := NewMockUDPSocket()
	second := NewMockUDPSocket()
	factory := NewMockUDPSocketFactory(
		MockListenResult{Socket: first},
		MockListenResult{Socket: second},
	)
	s := newTestSupervisor(t, factory, nil, nil)

	cancel, done := runSupervisor(s)
	defer cancel()
	require.Eventually(t, func() bool { return s.State() == StateListening }, time.Second, time.Millisecond)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return s.Restarts() == 1 && s.State() == StateListening }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Len(t, factory.Calls(), 2)
}

func TestSupervisor_BindFailureIsFatal(t *testing.T) {
	bindErr := &net.OpError{Op: "listen", Net: "udp4", Err: os.NewSyscallError("bind", syscall.EADDRINUSE)}
	unused := NewMockUDPSocket(MockRead{Data: mustMarshal(t, robotpb.NewActionRequest(1, 1, 1))})
	factory := NewMockUDPSocketFactory(
		MockListenResult{Err: bindErr},
		MockListenResult{Socket: unused},
	)
	motor := &recordingMotor{}
	s := newTestSupervisor(t, factory, motor, nil)

	err := s.Run(context.Background())

	var sockErr *SocketError
	require.ErrorAs(t, err, &sockErr)
	assert.Equal(t, StageBind, sockErr.Stage)
	assert.True(t, errors.Is(err, syscall.EADDRINUSE))
	assert.Len(t, factory.Calls(), 1, "no retry after a bind failure")
	assert.Zero(t, unused.Reads())
	assert.Empty(t, motor.Calls())
	assert.Equal(t, StateStopped, s.State())
}

func TestSupervisor_CreateFailureIsFatal(t *testing.T) {
	createErr := &net.OpError{Op: "listen", Net: "udp6", Err: os.NewSyscallError("socket", syscall.EAFNOSUPPORT)}
	factory := NewMockUDPSocketFactory(MockListenResult{Err: createErr})
	s := newTestSupervisor(t, factory, nil, nil)

	err := s.Run(context.Background())

	var sockErr *SocketError
	require.ErrorAs(t, err, &sockErr)
	assert.Equal(t, StageCreate, sockErr.Stage)
}

func TestSupervisor_FirstStateIsReported(t *testing.T) {
	states := &stateLog{}
	factory := NewMockUDPSocketFactory(MockListenResult{Err: errors.New("bind refused")})
	s := newTestSupervisor(t, factory, nil, states)

	_ = s.Run(context.Background())
	assert.Equal(t, []State{StateIdle, StateStopped}, states.Get())
}

func TestSupervisor_CancelledBeforeStart(t *testing.T) {
	factory := NewMockUDPSocketFactory()
	s := newTestSupervisor(t, factory, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Empty(t, factory.Calls())
}

// TestSupervisor_RealSocket exercises the real network path on loopback.
func TestSupervisor_RealSocket(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	var kinds []robotpb.Kind
	handler := PacketHandlerFunc(func(dg Datagram) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(dg.Data))
		if req, err := robotpb.Decode(dg.Data); err == nil {
			kinds = append(kinds, req.Kind())
		}
	})

	s, err := NewSupervisor(SupervisorConfig{
		Family:       IPv4,
		Port:         0,
		PollInterval: 10 * time.Millisecond,
		Handler:      handler,
	})
	require.NoError(t, err)

	cancel, done := runSupervisor(s)
	defer cancel()
	require.Eventually(t, func() bool { return s.State() == StateListening && s.LocalAddr() != nil }, 2*time.Second, time.Millisecond)

	port := s.LocalAddr().(*net.UDPAddr).Port
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)
	defer conn.Close()

	exact := make([]byte, MaxDatagramSize)
	_, err = conn.Write(exact)
	require.NoError(t, err)
	_, err = conn.Write(make([]byte, 200))
	require.NoError(t, err)
	_, err = conn.Write(mustMarshal(t, robotpb.NewPingRequest()))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sizes) == 3
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{MaxDatagramSize, MaxDatagramSize, 2}, sizes)
	assert.Equal(t, []robotpb.Kind{robotpb.KindPing}, kinds)
}
