package motor

import (
	"fmt"
	"slices"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is the line rate of the drive controller firmware.
const DefaultBaudRate = 115200

// SupportedBaudRates are the rates the drive controller can be strapped to.
var SupportedBaudRates = []int{9600, 19200, 38400, 57600, 115200}

// PortOptions describes the serial connection to the motor controller. Zero
// fields mean 115200 8N1.
type PortOptions struct {
	BaudRate int    `json:"baud_rate" yaml:"baud_rate"`
	DataBits int    `json:"data_bits" yaml:"data_bits"`
	StopBits int    `json:"stop_bits" yaml:"stop_bits"`
	Parity   string `json:"parity" yaml:"parity"`
}

var parities = map[string]struct {
	code   string
	parity serial.Parity
}{
	"":     {"N", serial.NoParity},
	"n":    {"N", serial.NoParity},
	"none": {"N", serial.NoParity},
	"e":    {"E", serial.EvenParity},
	"even": {"E", serial.EvenParity},
	"o":    {"O", serial.OddParity},
	"odd":  {"O", serial.OddParity},
}

// Normalize fills in defaults and rejects framings the controller cannot
// speak. Parity comes back as N, E or O.
func (o PortOptions) Normalize() (PortOptions, error) {
	out := PortOptions{
		BaudRate: defaultInt(o.BaudRate, DefaultBaudRate),
		DataBits: defaultInt(o.DataBits, 8),
		StopBits: defaultInt(o.StopBits, 1),
	}
	if !slices.Contains(SupportedBaudRates, out.BaudRate) {
		return out, fmt.Errorf("unsupported baud rate %d: want one of %v", out.BaudRate, SupportedBaudRates)
	}
	if out.DataBits != 7 && out.DataBits != 8 {
		return out, fmt.Errorf("unsupported data bits %d: want 7 or 8", out.DataBits)
	}
	if out.StopBits != 1 && out.StopBits != 2 {
		return out, fmt.Errorf("unsupported stop bits %d: want 1 or 2", out.StopBits)
	}
	p, ok := parities[strings.ToLower(strings.TrimSpace(o.Parity))]
	if !ok {
		return out, fmt.Errorf("unsupported parity %q: want none, even or odd", o.Parity)
	}
	out.Parity = p.code
	return out, nil
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// SerialMode returns the go.bug.st/serial mode for the options.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	// serial.StopBits is an enum, not a count.
	stop := serial.OneStopBit
	if opts.StopBits == 2 {
		stop = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   parities[strings.ToLower(opts.Parity)].parity,
		StopBits: stop,
	}, nil
}
