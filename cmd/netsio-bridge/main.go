package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	netsio "github.com/fujinet-community/netsio-bridge"
	"github.com/fujinet-community/netsio-bridge/pkg/config"
)

func main() {
	fs := flag.NewFlagSet("netsio-bridge", flag.ExitOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Printf("invalid log level %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	log.SetLevel(level)

	bridge, err := netsio.Init(cfg)
	if err != nil {
		log.Fatalf("failed to start bridge: %v", err)
	}

	bridge.SetOnEnabledChanged(func(enabled bool) {
		log.Infof("netsio: peer enabled=%v", enabled)
	})

	log.Infof("netsio-bridge listening on %v", bridge.LocalAddr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("netsio-bridge shutting down")
	if err := bridge.Close(); err != nil {
		log.Warnf("error during shutdown: %v", err)
	}
}
