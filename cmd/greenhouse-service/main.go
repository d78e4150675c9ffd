package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/physic"

	"greenhouse-service/internal/core"
	"greenhouse-service/internal/devnode"
	"greenhouse-service/internal/hardware"
	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/messaging"
)

func main() {
	// Service log level
	var serviceLogLevel int
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")

	redisHost := flag.String("redis-host", "127.0.0.1", "Redis host")
	redisPort := flag.Int("redis-port", 6379, "Redis port")
	gpioChip := flag.String("gpio-chip", hardware.DefaultGpioChip, "GPIO chip carrying the output and light-status lines")
	spiPort := flag.String("spi-port", hardware.DefaultSPIPort, "SPI port of the temperature ADC")
	spiHz := flag.Int64("spi-hz", int64(hardware.DefaultSPISpeed/physic.Hertz), "SPI clock in Hz")
	busTimeout := flag.Duration("bus-timeout", 500*time.Millisecond, "Timeout of one temperature transfer (0 disables)")
	attachRetry := flag.Duration("attach-retry", time.Second, "Delay between SPI attach attempts")
	nodeDir := flag.String("node-dir", hardware.DefaultNodeDir, "Directory for the driver nodes")
	sampleInterval := flag.Duration("sample-interval", 0, "Publish a sample to Redis at this interval (0 disables)")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	// Create leveled logger
	l := logger.NewLogger(stdLogger, logger.ClampLevel(serviceLogLevel))

	l.Infof("Starting greenhouse service...")

	chip := hardware.NewChip(*gpioChip, l.WithTag("gpio"))
	attacher := hardware.NewSPIAttacher(*spiPort, physic.Frequency(*spiHz)*physic.Hertz, l.WithTag("spi"))
	nodes := devnode.NewDir(*nodeDir, l.WithTag("node"))
	redis := messaging.NewRedisClient(*redisHost, *redisPort, l.WithTag("redis"), messaging.Callbacks{})

	system := core.NewGreenhouseSystem(core.Config{
		BusTimeout:     *busTimeout,
		AttachRetry:    *attachRetry,
		SampleInterval: *sampleInterval,
	}, chip, attacher, nodes, redis, l)

	if err := system.Start(context.Background()); err != nil {
		chip.Close()
		l.Fatalf("Failed to start system: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		l.Infof("Received signal %v, shutting down...", sig)
	case <-system.Done():
		l.Errorf("System stopped: %v", system.Err())
		exitCode = 1
	}

	if err := system.Shutdown(); err != nil {
		l.Errorf("Shutdown: %v", err)
		exitCode = 1
	}
	if err := chip.Close(); err != nil {
		l.Warnf("Failed to close GPIO chip: %v", err)
	}
	l.Infof("Shutdown complete")
	os.Exit(exitCode)
}
