package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/robot.frontend/internal/config"
	"github.com/banshee-data/robot.frontend/internal/dispatch"
	"github.com/banshee-data/robot.frontend/internal/monitoring"
	"github.com/banshee-data/robot.frontend/internal/network"
	"github.com/banshee-data/robot.frontend/internal/provision"
	"github.com/banshee-data/robot.frontend/internal/settings"
	"github.com/banshee-data/robot.frontend/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to a .json or .yaml config file")
	port       = flag.Int("port", network.DefaultPort, "UDP port to listen on")
	family     = flag.String("family", "ipv4", "Address family: ipv4 or ipv6")
	admin      = flag.String("admin", config.DefaultAdminListen, "Debug HTTP listen address (empty disables)")
	settingsDB = flag.String("settings-db", config.DefaultSettingsDB, "Path to the settings database")
	motorPort  = flag.String("motor-port", "", "Serial port of the motor controller (empty disables)")
	logMotor   = flag.Bool("log-motor", false, "Log every motor action")
	replay     = flag.String("replay", "", "Replay a pcap capture through the dispatcher and exit")
	noConsole  = flag.Bool("no-console", false, "Do not run the provisioning console on stdin")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	monitoring.SetVerbose(*verbose)

	fmt.Println("*** Robot Uprising: Micro-Invaders ***")
	log.Printf("robotfrontend %s", version.String())

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	applyFlagOverrides(cfg, flag.Visit)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	motorHandler, closeMotor, err := newMotorHandler(cfg)
	if err != nil {
		log.Fatalf("failed to open motor controller: %v", err)
	}
	defer closeMotor()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	stats := network.NewPromStats(reg)
	pipeline := network.NewRequestPipeline(dispatch.NewDispatcher(motorHandler), stats)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *replay != "" {
		if err := replayCapture(ctx, *replay, cfg, pipeline); err != nil {
			log.Printf("replay failed: %v", err)
			stop()
			closeMotor()
			os.Exit(1)
		}
		return
	}

	store, err := settings.Open(cfg.GetSettingsDB())
	if err != nil {
		log.Fatalf("failed to open settings database: %v", err)
	}
	defer store.Close()

	supervisor, err := network.NewSupervisor(network.SupervisorConfig{
		Family:          cfg.GetAddressFamily(),
		Port:            cfg.GetPort(),
		MaxDatagramSize: cfg.GetMaxDatagramSize(),
		PollInterval:    cfg.GetPollInterval(),
		Handler:         pipeline,
		Stats:           stats,
		OnStateChange: func(st network.State) {
			monitoring.Tag("udpsrv").Debugf("state %s", st)
		},
	})
	if err != nil {
		log.Fatalf("failed to create listener: %v", err)
	}

	var wg sync.WaitGroup

	// The console and admin server outlive a listener that cannot bind.
	wg.Add(1)
	go func() {
		defer wg.Done()
		superviseListener(ctx, supervisor)
		log.Print("listener routine terminated")
	}()

	// The console blocks on stdin, so it is not waited for on shutdown.
	if !*noConsole {
		ns, err := store.Namespace(provision.StorageNamespace)
		if err != nil {
			log.Fatalf("failed to open settings namespace: %v", err)
		}
		console := provision.NewConsole(os.Stdin, os.Stdout, ns, provision.UnmanagedWiFi{})
		go func() {
			if err := console.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("console stopped: %v", err)
			}
		}()
	}

	if addr := cfg.GetAdminListen(); addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveAdmin(ctx, addr, reg, supervisor, store)
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func serveAdmin(ctx context.Context, addr string, reg *prometheus.Registry, supervisor *network.Supervisor, store *settings.Store) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	supervisor.AttachAdminRoutes(mux)
	store.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start admin server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down admin server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("admin server force close error: %v", err)
		}
	}
	log.Printf("admin server routine stopped")
}
