package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReplayStats summarises one capture replay.
type ReplayStats struct {
	Packets   int // packets read from the capture
	Datagrams int // UDP payloads handed to the handler
	Skipped   int // non-UDP or other-port packets
}

// ReplayPCAP reads a pcap capture from r and feeds every UDP payload sent to
// port (any port when zero) through h, truncated to maxSize bytes just as the
// live listener would. Empty payloads are delivered too, as a live read
// returns them. It stops at end of file or when ctx is done.
func ReplayPCAP(ctx context.Context, r io.Reader, port, maxSize int, h PacketHandler) (ReplayStats, error) {
	var st ReplayStats
	if maxSize <= 0 || maxSize > MaxDatagramSize {
		maxSize = MaxDatagramSize
	}

	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return st, fmt.Errorf("failed to open capture: %w", err)
	}
	packetSource := gopacket.NewPacketSource(reader, reader.LinkType())

	for {
		if err := ctx.Err(); err != nil {
			logger.Printf("replay stopping due to context cancellation (processed %d packets)", st.Packets)
			return st, err
		}

		packet, err := packetSource.NextPacket()
		if errors.Is(err, io.EOF) {
			logger.Printf("capture replay complete: %d packets, %d datagrams", st.Packets, st.Datagrams)
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("failed to read capture packet %d: %w", st.Packets+1, err)
		}
		st.Packets++

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			st.Skipped++
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || (port != 0 && int(udp.DstPort) != port) {
			st.Skipped++
			continue
		}

		payload := udp.Payload
		if len(payload) > maxSize {
			payload = payload[:maxSize]
		}
		st.Datagrams++
		h.HandleDatagram(Datagram{Data: payload, Addr: sourceAddr(packet, udp)})
	}
}

func sourceAddr(packet gopacket.Packet, udp *layers.UDP) *net.UDPAddr {
	addr := &net.UDPAddr{Port: int(udp.SrcPort)}
	switch ip := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		addr.IP = ip.SrcIP
	case *layers.IPv6:
		addr.IP = ip.SrcIP
	}
	return addr
}
