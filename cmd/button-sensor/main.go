// Command button-sensor polls a push button on a GPIO line and publishes
// press, hold, release and click events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/sweeney/button-sensor/internal/applog"
	"github.com/sweeney/button-sensor/internal/clock"
	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// options is the parsed command line.
type options struct {
	cfg        config.Config
	configPath string
	printState bool

	// override re-applies explicitly set flags on top of a reloaded file.
	override func(*config.Config)
}

// parseFlags layers explicitly set flags over the config file (if any) and
// the built-in defaults.
func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	def := config.Default()

	configPath := fs.String("config", "", "YAML config file, watched for changes (optional)")
	name := fs.String("name", def.Name, "Button name included in event payloads")
	chip := fs.String("chip", def.Chip, "GPIO chip")
	pin := fs.Int("pin", def.Pin, "BCM pin number of the button")
	poll := fs.Duration("poll", def.Poll, "GPIO polling interval")
	debounce := fs.Duration("debounce", def.Debounce, "Debounce timeout")
	hold := fs.Duration("hold", def.Hold, "Hold timeout, measured from the first contact")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	broker := fs.String("broker", def.Broker, "MQTT broker address")
	clientID := fs.String("client-id", def.ClientID, "MQTT client ID")
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	logLevel := fs.String("log-level", def.LogLevel, "Log level: trace, debug, info, warn, error, off")
	printState := fs.Bool("print-state", false, "Print the current button level and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	override := func(c *config.Config) {
		if set["name"] {
			c.Name = *name
		}
		if set["chip"] {
			c.Chip = *chip
		}
		if set["pin"] {
			c.Pin = *pin
		}
		if set["poll"] {
			c.Poll = *poll
		}
		if set["debounce"] {
			c.Debounce = *debounce
		}
		if set["hold"] {
			c.Hold = *hold
		}
		if set["heartbeat"] {
			c.Heartbeat = *heartbeat
		}
		if set["broker"] {
			c.Broker = *broker
		}
		if set["client-id"] {
			c.ClientID = *clientID
		}
		if set["http"] {
			c.HTTPAddr = *httpAddr
		}
		if set["log-level"] {
			c.LogLevel = *logLevel
		}
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return options{}, err
		}
		cfg = loaded
	}
	override(&cfg)

	if err := cfg.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return options{
		cfg:        cfg,
		configPath: *configPath,
		printState: *printState,
		override:   override,
	}, nil
}

func run(opts options) error {
	cfg := opts.cfg
	clk := clock.NewSystem()
	logger := applog.New(os.Stderr, "button-sensor", cfg.Level(), clk)

	// Initialize GPIO
	gpioReader, err := gpio.NewRealReader(cfg.Chip, cfg.Pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	// Print state mode
	if opts.printState {
		high, err := gpioReader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("pin %d: %s\n", cfg.Pin, levelString(high))
		return nil
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, cfg.Name, logger)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Name:        cfg.Name,
		Pin:         cfg.Pin,
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HoldMs:      cfg.Hold.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		LogLevel:    cfg.Level().String(),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warnf("failed to publish startup event: %v", err)
	} else {
		logger.Infof("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infof("http status server listening on %s", cfg.HTTPAddr)
	}

	// Watch the config file for live changes to the timeouts
	var reload <-chan config.Config
	if opts.configPath != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		changes, err := config.Watch(ctx, opts.configPath, logger)
		if err != nil {
			logger.Warnf("config reload disabled: %v", err)
		} else {
			reload = withOverrides(changes, opts.override)
		}
	}

	logger.Infof("started: pin=%d poll=%v debounce=%v hold=%v heartbeat=%v broker=%s",
		cfg.Pin, cfg.Poll, cfg.Debounce, cfg.Hold, cfg.Heartbeat, cfg.Broker)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(gpioReader, publisher, publisher, tracker, clk, cfg.Tunables(), time.Now, ticker.C, reload, sigCh, logger)
}

// withOverrides applies flag overrides to every reloaded config.
func withOverrides(in <-chan config.Config, override func(*config.Config)) <-chan config.Config {
	out := make(chan config.Config)
	go func() {
		defer close(out)
		for cfg := range in {
			if override != nil {
				override(&cfg)
			}
			out <- cfg
		}
	}()
	return out
}

func runLoop(gpioReader gpio.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, clk clock.Clock, tun logic.Tunables, now func() time.Time, tick <-chan time.Time, reload <-chan config.Config, sig <-chan os.Signal, logger *applog.Logger) error {
	log := logger.Named("loop")

	// The detector samples this level; each tick latches a fresh read.
	level := true
	line := logic.LineFunc(func() bool { return level })

	startTime := now()
	detector := logic.NewDetector(line, clk, tun, startTime)

	readErrors := rate.NewLimiter(rate.Every(time.Second), 1)
	suppressed := 0

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Errorf("failed to publish shutdown event: %v", err)
			} else {
				log.Infof("published shutdown event")
			}
			return nil

		case cfg, ok := <-reload:
			if !ok {
				reload = nil
				continue
			}
			detector.Configure(cfg.Tunables())
			logger.SetLevel(cfg.Level())
			if tracker != nil {
				tracker.SetTunables(cfg.Tunables())
				tracker.SetLogLevel(cfg.Level().String())
			}
			log.Infof("config applied: debounce=%v hold=%v heartbeat=%v log=%s",
				cfg.Debounce, cfg.Hold, cfg.Heartbeat, cfg.Level())

		case <-tick:
			t := now()
			high, err := gpioReader.Read()
			if err != nil {
				if readErrors.Allow() {
					if suppressed > 0 {
						log.Errorf("gpio read error: %v (%d more suppressed)", err, suppressed)
					} else {
						log.Errorf("gpio read error: %v", err)
					}
					suppressed = 0
				} else {
					suppressed++
				}
				continue
			}
			level = high

			for _, event := range detector.Poll(t) {
				log.Infof("event: %s (state=%s)", event.Type, event.State)
				if err := publisher.Publish(event); err != nil {
					log.Warnf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(t); hbData != nil {
				log.Debugf("heartbeat: uptime=%v presses=%d holds=%d clicks=%d releases=%d",
					hbData.Uptime, hbData.Counts.Presses, hbData.Counts.Holds, hbData.Counts.Clicks, hbData.Counts.Releases)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(detector.CurrentState(), detector.EventCountsSnapshot(), detector.HeartbeatRemaining())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warnf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(detector.CurrentState(), detector.EventCountsSnapshot(), detector.HeartbeatRemaining())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// levelString describes a raw level of the active-low input.
func levelString(high bool) string {
	if high {
		return "HIGH (released)"
	}
	return "LOW (pressed)"
}
