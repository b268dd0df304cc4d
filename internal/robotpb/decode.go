package robotpb

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrDecode is wrapped by every error Decode returns.
var ErrDecode = errors.New("robotpb: decode failed")

// ErrNoRequest reports a well-formed buffer that selected no variant.
var ErrNoRequest = fmt.Errorf("%w: no request variant set", ErrDecode)

// Decode parses one RobotRequest from b. It holds no state between calls and
// never retains b.
//
// Unknown fields are skipped. A known field carrying the wrong wire type, or
// an actionTimeout above the uint32 range, is a schema violation. int32
// fields keep the low 32 bits of the varint.
// When the oneof appears more than once the last variant wins, and repeated
// act fields merge into one Action.
func Decode(b []byte) (*RobotRequest, error) {
	req := &RobotRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: tag: %v", ErrDecode, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldAct:
			v, n, err := consumeMessage(num, typ, b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			act := req.GetAct()
			if act == nil {
				act = &Action{}
			}
			if err := decodeAction(v, act); err != nil {
				return nil, err
			}
			req.Req = &RobotRequestAct{Act: act}
		case fieldPing:
			v, n, err := consumeMessage(num, typ, b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			if err := skipFields(v); err != nil {
				return nil, fmt.Errorf("%w (in ping)", err)
			}
			req.Req = &RobotRequestPing{Ping: &Ping{}}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrDecode, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if req.Kind() == KindUnset {
		return nil, ErrNoRequest
	}
	return req, nil
}

func decodeAction(b []byte, act *Action) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: action tag: %v", ErrDecode, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldLeftMotorAction, fieldRightMotorAction:
			v, n, err := consumeVarint(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
			// int32 varints truncate, so both the 10-byte sign-extended
			// form and the 5-byte form of a negative value decode.
			if num == fieldLeftMotorAction {
				act.LeftMotorAction = int32(v)
			} else {
				act.RightMotorAction = int32(v)
			}
		case fieldActionTimeout:
			v, n, err := consumeVarint(num, typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
			if v > math.MaxUint32 {
				return fmt.Errorf("%w: action field %d: value %d overflows uint32", ErrDecode, num, v)
			}
			act.ActionTimeout = uint32(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: action field %d: %v", ErrDecode, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

func consumeMessage(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("%w: field %d: wire type %d, want %d", ErrDecode, num, typ, protowire.BytesType)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: field %d: %v", ErrDecode, num, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("%w: action field %d: wire type %d, want %d", ErrDecode, num, typ, protowire.VarintType)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: action field %d: %v", ErrDecode, num, protowire.ParseError(n))
	}
	return v, n, nil
}

// skipFields validates that b is a well-formed sequence of fields.
func skipFields(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: tag: %v", ErrDecode, protowire.ParseError(n))
		}
		b = b[n:]
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrDecode, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}
