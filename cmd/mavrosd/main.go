package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/musyafaarif/mavros/mavconn"
	"github.com/musyafaarif/mavros/mavlink"
	"github.com/musyafaarif/mavros/mqttbridge"
	"github.com/musyafaarif/mavros/plugin"
)

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "serial device path")
	baud := flag.Int("baud", 57600, "baud rate")
	sysID := flag.Uint("sysid", 255, "local system id")
	compID := flag.Uint("compid", 190, "local component id")
	txqDepth := flag.Int("txq", 0, "transmit queue depth (0 = default)")
	broker := flag.String("mqtt", "", "MQTT broker URL; empty disables bridging")
	topicPrefix := flag.String("topic-prefix", "mavros", "MQTT topic prefix")
	logFile := flag.String("log-file", "", "log to a rotated file instead of stderr")
	hbInterval := flag.Duration("heartbeat", time.Second, "outgoing heartbeat interval (0 disables)")
	reportInterval := flag.Duration("report", 10*time.Second, "link health report interval")
	debug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if *logFile != "" {
		out = &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()

	router := plugin.NewRouter(&logger)
	status := plugin.NewSystemStatus(&logger)
	router.Register(status)

	if *broker != "" {
		pub, disconnect, err := mqttbridge.Connect(*broker, fmt.Sprintf("mavrosd-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("mqtt connect: %v", err)
		}
		defer disconnect()
		router.Register(mqttbridge.New(pub, *topicPrefix, &logger))
	}

	parser := mavlink.NewParser(router.HandleFrame)

	link, err := mavconn.Open(mavconn.Config{
		Device:       *device,
		BaudRate:     mavconn.BaudRate(*baud),
		SystemID:     uint8(*sysID),
		ComponentID:  uint8(*compID),
		TxQueueDepth: *txqDepth,
		Logger:       &logger,
	}, parser)
	if err != nil {
		log.Fatalf("open: %v", err)
	}

	linkDown := make(chan struct{})
	link.OnClosed(func() { close(linkDown) })

	var hbTick <-chan time.Time
	if *hbInterval > 0 {
		t := time.NewTicker(*hbInterval)
		defer t.Stop()
		hbTick = t.C
	}
	reportTick := time.NewTicker(*reportInterval)
	defer reportTick.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-hbTick:
			err := link.SendMessage(&mavlink.Heartbeat{
				Type:           6, // GCS
				Autopilot:      8, // invalid / not an autopilot
				SystemStatus:   4, // active
				MavlinkVersion: 3,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("heartbeat send failed")
			}

		case <-reportTick.C:
			rep := status.Report()
			ev := logger.Info()
			if rep.Summary != plugin.HeartbeatNormal {
				ev = logger.Warn()
			}
			ev.Str("summary", string(rep.Summary)).
				Float64("freq_hz", rep.Frequency).
				Int("events", rep.EventsInWindow).
				Uint64("rx_bytes", link.Stats().RxBytes).
				Uint64("tx_bytes", link.Stats().TxBytes).
				Uint64("frames", parser.Frames()).
				Uint64("crc_errors", parser.CRCErrors()).
				Msg("link health")
			if bat, ok := status.Battery(); ok {
				logger.Info().
					Uint16("voltage_mv", bat.VoltageMV).
					Int8("remaining_pc", bat.RemainingPc).
					Msg("battery")
			}

		case <-linkDown:
			logger.Error().Msg("link closed, exiting")
			os.Exit(1)

		case <-sigCh:
			logger.Info().Msg("shutting down")
			_ = link.Close()
			return
		}
	}
}
