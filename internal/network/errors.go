package network

import (
	"errors"
	"fmt"
	"os"
)

// Stage names the socket operation that failed.
type Stage int

const (
	StageCreate Stage = iota
	StageBind
	StageReceive
)

func (s Stage) String() string {
	switch s {
	case StageCreate:
		return "create"
	case StageBind:
		return "bind"
	case StageReceive:
		return "receive"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// SocketError is a socket-level failure. Create and bind failures stop the
// supervisor; receive failures restart it.
type SocketError struct {
	Stage Stage
	Err   error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("socket %s failed: %v", e.Stage, e.Err)
}

func (e *SocketError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the supervisor must stop rather than restart.
func (e *SocketError) Fatal() bool {
	return e.Stage != StageReceive
}

// classifyListenError maps a ListenUDP failure onto the create or bind stage.
// net.ListenUDP performs socket(2) and bind(2) in one call; the syscall name
// in the wrapped *os.SyscallError tells them apart.
func classifyListenError(err error) *SocketError {
	var sockErr *SocketError
	if errors.As(err, &sockErr) {
		return sockErr
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Syscall == "socket" {
		return &SocketError{Stage: StageCreate, Err: err}
	}
	return &SocketError{Stage: StageBind, Err: err}
}
