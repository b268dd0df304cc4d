package network

import (
	"github.com/banshee-data/robot.frontend/internal/dispatch"
	"github.com/banshee-data/robot.frontend/internal/robotpb"
)

// PacketHandler consumes received datagrams. It runs on the receive
// goroutine; the datagram must not be retained after it returns.
type PacketHandler interface {
	HandleDatagram(dg Datagram)
}

// PacketHandlerFunc adapts a function to PacketHandler.
type PacketHandlerFunc func(dg Datagram)

func (f PacketHandlerFunc) HandleDatagram(dg Datagram) { f(dg) }

// RequestPipeline decodes each datagram and dispatches the resulting request.
// Decode failures are logged and dropped.
type RequestPipeline struct {
	dispatcher *dispatch.Dispatcher
	stats      Stats
}

// NewRequestPipeline returns a pipeline feeding d.
func NewRequestPipeline(d *dispatch.Dispatcher, stats Stats) *RequestPipeline {
	return &RequestPipeline{dispatcher: d, stats: statsOrNoop(stats)}
}

// HandleDatagram implements PacketHandler.
func (p *RequestPipeline) HandleDatagram(dg Datagram) {
	p.Process(dg)
}

// Process decodes and dispatches one datagram. The error is the decode
// failure, if any; dispatch is skipped in that case.
func (p *RequestPipeline) Process(dg Datagram) (dispatch.Outcome, error) {
	logger.Debugf("received %d bytes from %v", len(dg.Data), dg.Addr)

	req, err := robotpb.Decode(dg.Data)
	if err != nil {
		p.stats.AddDecodeError()
		logger.Printf("decoding failed for %d bytes from %v: %v", len(dg.Data), dg.Addr, err)
		return dispatch.OutcomeIgnored, err
	}

	logger.Debugf("got request type: %s", req.Kind())
	out := p.dispatcher.Dispatch(req)
	p.stats.AddOutcome(out)
	return out, nil
}
