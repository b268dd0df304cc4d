package robotpb

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrEmptyRequest is returned when marshalling a request with no variant set.
var ErrEmptyRequest = errors.New("robotpb: request has no variant set")

// Marshal encodes req in canonical field order. Zero-valued Action fields are
// omitted, as proto3 does.
func Marshal(req *RobotRequest) ([]byte, error) {
	return AppendRobotRequest(nil, req)
}

// AppendRobotRequest appends the encoding of req to b.
func AppendRobotRequest(b []byte, req *RobotRequest) ([]byte, error) {
	switch req.Kind() {
	case KindAction:
		b = protowire.AppendTag(b, fieldAct, protowire.BytesType)
		b = protowire.AppendBytes(b, appendAction(nil, req.GetAct()))
	case KindPing:
		b = protowire.AppendTag(b, fieldPing, protowire.BytesType)
		b = protowire.AppendVarint(b, 0)
	default:
		return b, ErrEmptyRequest
	}
	return b, nil
}

func appendAction(b []byte, a *Action) []byte {
	if a.LeftMotorAction != 0 {
		b = protowire.AppendTag(b, fieldLeftMotorAction, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(a.LeftMotorAction)))
	}
	if a.RightMotorAction != 0 {
		b = protowire.AppendTag(b, fieldRightMotorAction, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(a.RightMotorAction)))
	}
	if a.ActionTimeout != 0 {
		b = protowire.AppendTag(b, fieldActionTimeout, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.ActionTimeout))
	}
	return b
}
