// Package motor provides motor-action handlers that drive real hardware or
// record commands.
package motor

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/robot.frontend/internal/dispatch"
	"github.com/banshee-data/robot.frontend/internal/monitoring"
)

var logger = monitoring.Tag("motor")

// ErrWriteFailed reports a short write to the motor controller.
var ErrWriteFailed = errors.New("failed to write to motor controller")

// SerialDriver forwards motor actions to an external controller over a serial
// line, one ASCII command per action:
//
//	M <left> <right> <timeout>\n
type SerialDriver struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// NewSerialDriver wraps an already open port.
func NewSerialDriver(port io.WriteCloser) *SerialDriver {
	return &SerialDriver{port: port}
}

// OpenSerialDriver opens the serial device at path.
func OpenSerialDriver(path string, opts PortOptions) (*SerialDriver, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open motor serial port %s: %w", path, err)
	}
	return NewSerialDriver(port), nil
}

// FormatCommand renders the controller command for one action.
func FormatCommand(left, right int32, timeout uint32) string {
	return fmt.Sprintf("M %d %d %d\n", left, right, timeout)
}

// OnMotorAction writes the command for the action.
func (d *SerialDriver) OnMotorAction(left, right int32, timeout uint32) error {
	command := FormatCommand(left, right, timeout)

	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

var _ dispatch.MotorActionHandler = (*SerialDriver)(nil)

// Close closes the serial port.
func (d *SerialDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.Close()
}

// LogDriver logs every action and, when Next is set, passes it on.
type LogDriver struct {
	Next dispatch.MotorActionHandler
}

func (d LogDriver) OnMotorAction(left, right int32, timeout uint32) error {
	logger.Printf("motor action: left=%d right=%d timeout=%d", left, right, timeout)
	if d.Next == nil {
		return nil
	}
	return d.Next.OnMotorAction(left, right, timeout)
}
