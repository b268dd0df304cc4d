// Package robotpb implements the RobotRequest wire schema spoken by robot
// controllers: a protobuf message carrying a oneof of Action and Ping.
//
// The schema lives in proto/robotsystemcommunication. Decoding is hand-written
// on top of protowire so that untrusted datagrams are validated field by field
// without reflection or allocation beyond the returned request.
package robotpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of RobotRequest.
const (
	fieldAct  protowire.Number = 1
	fieldPing protowire.Number = 2
)

// Field numbers of Action.
const (
	fieldLeftMotorAction  protowire.Number = 1
	fieldRightMotorAction protowire.Number = 2
	fieldActionTimeout    protowire.Number = 3
)

// Action commands both drive motors. ActionTimeout is the duration after
// which the hardware layer must stop applying the command.
type Action struct {
	LeftMotorAction  int32
	RightMotorAction int32
	ActionTimeout    uint32
}

func (a Action) String() string {
	return fmt.Sprintf("left=%d right=%d timeout=%d", a.LeftMotorAction, a.RightMotorAction, a.ActionTimeout)
}

// Ping is a liveness probe. It carries no data.
type Ping struct{}

// RobotRequest is one decoded datagram. Req holds the active variant, either
// *RobotRequestAct or *RobotRequestPing; nil means no variant was set.
type RobotRequest struct {
	Req isRobotRequestReq
}

type isRobotRequestReq interface {
	isRobotRequestReq()
}

// RobotRequestAct is the Action variant of RobotRequest.
type RobotRequestAct struct {
	Act *Action
}

// RobotRequestPing is the Ping variant of RobotRequest.
type RobotRequestPing struct {
	Ping *Ping
}

func (*RobotRequestAct) isRobotRequestReq()  {}
func (*RobotRequestPing) isRobotRequestReq() {}

// NewActionRequest builds a RobotRequest with the Action variant set.
func NewActionRequest(left, right int32, timeout uint32) *RobotRequest {
	return &RobotRequest{Req: &RobotRequestAct{Act: &Action{
		LeftMotorAction:  left,
		RightMotorAction: right,
		ActionTimeout:    timeout,
	}}}
}

// NewPingRequest builds a RobotRequest with the Ping variant set.
func NewPingRequest() *RobotRequest {
	return &RobotRequest{Req: &RobotRequestPing{Ping: &Ping{}}}
}

// GetAct returns the Action variant, or nil if another variant is active.
func (r *RobotRequest) GetAct() *Action {
	if r == nil {
		return nil
	}
	if v, ok := r.Req.(*RobotRequestAct); ok {
		return v.Act
	}
	return nil
}

// GetPing returns the Ping variant, or nil if another variant is active.
func (r *RobotRequest) GetPing() *Ping {
	if r == nil {
		return nil
	}
	if v, ok := r.Req.(*RobotRequestPing); ok {
		return v.Ping
	}
	return nil
}

// Kind identifies the active variant of a RobotRequest.
type Kind int

const (
	KindUnset Kind = iota
	KindAction
	KindPing
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindAction:
		return "action"
	case KindPing:
		return "ping"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Kind reports which variant is active.
func (r *RobotRequest) Kind() Kind {
	if r == nil {
		return KindUnset
	}
	switch v := r.Req.(type) {
	case *RobotRequestAct:
		if v != nil && v.Act != nil {
			return KindAction
		}
	case *RobotRequestPing:
		if v != nil && v.Ping != nil {
			return KindPing
		}
	}
	return KindUnset
}
