// Package dispatch routes decoded robot requests to the motor-action
// capability supplied by the hardware layer.
package dispatch

import (
	"fmt"

	"github.com/banshee-data/robot.frontend/internal/monitoring"
	"github.com/banshee-data/robot.frontend/internal/robotpb"
)

var logger = monitoring.Tag("dispatch")

// MotorActionHandler applies a motor action to the drive hardware. It is
// called synchronously from the receive loop, so a slow handler delays the
// next receive.
type MotorActionHandler interface {
	OnMotorAction(left, right int32, timeout uint32) error
}

// MotorActionFunc adapts a plain function to MotorActionHandler.
type MotorActionFunc func(left, right int32, timeout uint32) error

// OnMotorAction calls f.
func (f MotorActionFunc) OnMotorAction(left, right int32, timeout uint32) error {
	return f(left, right, timeout)
}

// NoopMotorHandler accepts and discards every action.
type NoopMotorHandler struct{}

func (NoopMotorHandler) OnMotorAction(int32, int32, uint32) error { return nil }

// Outcome records what Dispatch did with a request.
type Outcome int

const (
	// OutcomeIgnored means the request carried no known variant.
	OutcomeIgnored Outcome = iota
	// OutcomeAction means the handler was invoked and returned nil.
	OutcomeAction
	// OutcomeDropped means an action arrived with no handler registered.
	OutcomeDropped
	// OutcomePing means a liveness probe was received.
	OutcomePing
	// OutcomeHandlerError means the handler was invoked and failed.
	OutcomeHandlerError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeAction:
		return "action"
	case OutcomeDropped:
		return "dropped"
	case OutcomePing:
		return "ping"
	case OutcomeHandlerError:
		return "handler_error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Dispatcher invokes the registered handler for each decoded request. No reply
// is ever produced for the sender.
type Dispatcher struct {
	handler MotorActionHandler
}

// NewDispatcher returns a Dispatcher calling h. A nil h is allowed: actions
// are then logged and dropped.
func NewDispatcher(h MotorActionHandler) *Dispatcher {
	return &Dispatcher{handler: h}
}

// Dispatch routes req to the handler.
func (d *Dispatcher) Dispatch(req *robotpb.RobotRequest) Outcome {
	switch req.Kind() {
	case robotpb.KindAction:
		act := req.GetAct()
		logger.Debugf("got action request: %s", act)
		if d.handler == nil {
			logger.Printf("no motor handler registered, dropping action %s", act)
			return OutcomeDropped
		}
		if err := d.handler.OnMotorAction(act.LeftMotorAction, act.RightMotorAction, act.ActionTimeout); err != nil {
			logger.Printf("motor handler failed for action %s: %v", act, err)
			return OutcomeHandlerError
		}
		return OutcomeAction
	case robotpb.KindPing:
		logger.Debugf("got ping request")
		return OutcomePing
	default:
		return OutcomeIgnored
	}
}
