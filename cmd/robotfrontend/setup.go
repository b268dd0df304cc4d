package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/robot.frontend/internal/config"
	"github.com/banshee-data/robot.frontend/internal/dispatch"
	"github.com/banshee-data/robot.frontend/internal/motor"
	"github.com/banshee-data/robot.frontend/internal/network"
)

// applyFlagOverrides copies explicitly set flags over file values. visit is
// flag.Visit in production.
func applyFlagOverrides(cfg *config.Config, visit func(func(*flag.Flag))) {
	visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			v := *port
			cfg.Port = &v
		case "family":
			v := *family
			cfg.AddressFamily = &v
		case "admin":
			v := *admin
			cfg.AdminListen = &v
		case "settings-db":
			v := *settingsDB
			cfg.SettingsDB = &v
		case "motor-port":
			v := *motorPort
			cfg.MotorSerialPort = &v
		case "log-motor":
			v := *logMotor
			cfg.LogMotorActions = &v
		}
	})
}

// newMotorHandler opens the serial driver when one is configured. With no
// serial port and no logging it returns nil, so actions are dropped.
func newMotorHandler(cfg *config.Config) (dispatch.MotorActionHandler, func(), error) {
	var h dispatch.MotorActionHandler
	closeFn := func() {}

	if path := cfg.GetMotorSerialPort(); path != "" {
		d, err := motor.OpenSerialDriver(path, cfg.MotorSerial)
		if err != nil {
			return nil, closeFn, err
		}
		log.Printf("motor controller on %s", path)
		h = d
		closeFn = func() {
			if err := d.Close(); err != nil {
				log.Printf("failed to close motor port: %v", err)
			}
		}
	}
	if cfg.GetLogMotorActions() {
		h = motor.LogDriver{Next: h}
	}
	return h, closeFn, nil
}

// superviseListener runs s until ctx is done or socket setup fails. A setup
// failure is logged and returned without cancelling ctx.
func superviseListener(ctx context.Context, s *network.Supervisor) error {
	err := s.Run(ctx)
	var sockErr *network.SocketError
	if errors.As(err, &sockErr) && sockErr.Fatal() {
		log.Printf("listener stopped until the controller is restarted: %v", err)
	}
	return err
}

func replayCapture(ctx context.Context, path string, cfg *config.Config, h network.PacketHandler) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	st, err := network.ReplayPCAP(ctx, f, cfg.GetPort(), cfg.GetMaxDatagramSize(), h)
	if err != nil {
		return err
	}
	log.Printf("replayed %s: %d packets, %d datagrams, %d skipped", path, st.Packets, st.Datagrams, st.Skipped)
	return nil
}
