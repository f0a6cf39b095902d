package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	port := flag.Int("port", 9000, "simulator server port")
	logLevel := flag.String("log-level", "info", "log level")
	pattern := flag.String("pattern", "daily", "light pattern: daily, day, night, dusk, random, fast_cycle")
	channel := flag.String("channel", "1", "default channel id")
	interval := flag.Duration("sample-interval", 15*time.Second, "sensor sampling interval")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting streetlight simulator")

	sim := simulator.New(simulator.Config{
		Port:           *port,
		DefaultChannel: *channel,
		WriteAPIKey:    os.Getenv("STREETLIGHT_ACTUATOR_WRITE_API_KEY"),
		Pattern:        *pattern,
		SampleInterval: *interval,
	})

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down simulator")
	return sim.Stop()
}
