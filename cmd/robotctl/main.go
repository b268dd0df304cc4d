// Command robotctl sends RobotRequest datagrams to a robot controller.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/banshee-data/robot.frontend/internal/robotpb"
)

var (
	addr     = flag.String("addr", "localhost:50052", "Controller UDP address")
	left     = flag.Int("left", 0, "Left motor action")
	right    = flag.Int("right", 0, "Right motor action")
	timeout  = flag.Uint("timeout", 0, "Action timeout")
	ping     = flag.Bool("ping", false, "Send a ping instead of an action")
	count    = flag.Int("count", 1, "Number of datagrams to send")
	interval = flag.Duration("interval", 100*time.Millisecond, "Delay between datagrams")
)

func buildRequest(ping bool, left, right int, timeout uint) (*robotpb.RobotRequest, error) {
	if ping {
		return robotpb.NewPingRequest(), nil
	}
	if int(int32(left)) != left || int(int32(right)) != right {
		return nil, fmt.Errorf("motor action out of range: left=%d right=%d", left, right)
	}
	if uint(uint32(timeout)) != timeout {
		return nil, fmt.Errorf("timeout out of range: %d", timeout)
	}
	return robotpb.NewActionRequest(int32(left), int32(right), uint32(timeout)), nil
}

func main() {
	flag.Parse()

	req, err := buildRequest(*ping, *left, *right, *timeout)
	if err != nil {
		log.Fatal(err)
	}
	payload, err := robotpb.Marshal(req)
	if err != nil {
		log.Fatalf("failed to encode request: %v", err)
	}

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *addr, err)
	}
	defer conn.Close()

	for i := 0; i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		if _, err := conn.Write(payload); err != nil {
			log.Fatalf("failed to send: %v", err)
		}
		log.Printf("sent %d bytes to %s", len(payload), conn.RemoteAddr())
	}
}
