package network

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSender = &net.UDPAddr{IP: net.ParseIP("192.168.4.2"), Port: 40000}

func TestNewUDPListener_Defaults(t *testing.T) {
	l := NewUDPListener(NewMockUDPSocket(), UDPListenerConfig{})

	assert.Equal(t, MaxDatagramSize, l.maxSize)
	assert.Equal(t, DefaultPollInterval, l.pollInterval)
	assert.NotNil(t, l.stats)
}

func TestNewUDPListener_ClampsMaxSize(t *testing.T) {
	l := NewUDPListener(NewMockUDPSocket(), UDPListenerConfig{MaxDatagramSize: 4096})
	assert.Equal(t, MaxDatagramSize, l.maxSize)

	l = NewUDPListener(NewMockUDPSocket(), UDPListenerConfig{MaxDatagramSize: 64})
	assert.Equal(t, 64, l.maxSize)
}

func TestReceive_ReturnsPayloadAndSender(t *testing.T) {
	sock := NewMockUDPSocket(MockRead{Data: []byte{0x12, 0x00}, Addr: testSender})
	l := NewUDPListener(sock, UDPListenerConfig{PollInterval: 10 * time.Millisecond})

	dg, err := l.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x00}, dg.Data)
	assert.Equal(t, testSender, dg.Addr)
}

func TestReceive_Boundary(t *testing.T) {
	exact := bytes.Repeat([]byte{0xaa}, MaxDatagramSize)
	oversized := bytes.Repeat([]byte{0xbb}, 200)
	sock := NewMockUDPSocket(
		MockRead{Data: exact, Addr: testSender},
		MockRead{Data: oversized, Addr: testSender},
	)
	l := NewUDPListener(sock, UDPListenerConfig{PollInterval: 10 * time.Millisecond})

	dg, err := l.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exact, dg.Data, "127-byte datagram is accepted in full")

	dg, err = l.Receive(context.Background())
	require.NoError(t, err)
	assert.Len(t, dg.Data, MaxDatagramSize, "200-byte datagram is truncated")
	assert.Equal(t, oversized[:MaxDatagramSize], dg.Data)
}

func TestReceive_BuffersAreNotShared(t *testing.T) {
	sock := NewMockUDPSocket(
		MockRead{Data: []byte{1, 2, 3}},
		MockRead{Data: []byte{9, 9, 9}},
	)
	l := NewUDPListener(sock, UDPListenerConfig{PollInterval: 10 * time.Millisecond})

	first, err := l.Receive(context.Background())
	require.NoError(t, err)
	_, err = l.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, first.Data)
}

func TestReceive_TimeoutIsNotAnError(t *testing.T) {
	sock := NewMockUDPSocket()
	l := NewUDPListener(sock, UDPListenerConfig{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReceive_ReadFailure(t *testing.T) {
	readErr := errors.New("recvfrom failed: errno 9")
	sock := NewMockUDPSocket(MockRead{Err: readErr})
	l := NewUDPListener(sock, UDPListenerConfig{PollInterval: 10 * time.Millisecond})

	_, err := l.Receive(context.Background())
	var sockErr *SocketError
	require.ErrorAs(t, err, &sockErr)
	assert.Equal(t, StageReceive, sockErr.Stage)
	assert.False(t, sockErr.Fatal())
	assert.ErrorIs(t, err, readErr)
}

func TestReceive_ClosedSocket(t *testing.T) {
	sock := NewMockUDPSocket()
	require.NoError(t, sock.Close())
	l := NewUDPListener(sock, UDPListenerConfig{PollInterval: 10 * time.Millisecond})

	_, err := l.Receive(context.Background())
	var sockErr *SocketError
	require.ErrorAs(t, err, &sockErr)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestListen_StopsOnFailure(t *testing.T) {
	sock := NewMockUDPSocket(
		MockRead{Data: []byte{0x12, 0x00}},
		MockRead{Data: []byte{0x12, 0x00}},
		MockRead{Err: errors.New("boom")},
		MockRead{Data: []byte{0x12, 0x00}},
	)
	l := NewUDPListener(sock, UDPListenerConfig{PollInterval: 10 * time.Millisecond})

	var got int
	err := l.Listen(context.Background(), PacketHandlerFunc(func(Datagram) { got++ }))

	require.Error(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, 3, sock.Reads(), "no reads after the failure")
}
