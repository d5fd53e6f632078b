package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/panelgrid/internal/config"
	"github.com/example/panelgrid/internal/frame"
	"github.com/example/panelgrid/internal/ingest"
	"github.com/example/panelgrid/internal/layout"
	"github.com/example/panelgrid/internal/led"
	"github.com/example/panelgrid/internal/panel"
	"github.com/example/panelgrid/internal/pipeline"
	"github.com/example/panelgrid/internal/power"
	"github.com/example/panelgrid/internal/ws"
)

func main() {
	// ---- Flags (config.yaml can override most) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		layoutPath = flag.String("layout", "layout.json", "path to panel layout JSON")
		driver     = flag.String("driver", "sim", "driver: spi | screen | sim")
		brightness = flag.Int("brightness", 128, "global brightness 0..255")
		udpPort    = flag.Int("udp-port", 5568, "UDP frame port (0 disables)")
		pipePath   = flag.String("pipe", "", "named pipe path (empty disables)")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		limitAmps  = flag.Float64("limit-amps", 8.5, "max supply current in amps")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	cfg := config.Default()
	cfg.LayoutPath = *layoutPath
	cfg.Driver = *driver
	cfg.Brightness = *brightness
	cfg.UDP = config.UDPCfg{Enabled: *udpPort > 0, Port: *udpPort}
	cfg.Pipe = config.PipeCfg{Enabled: *pipePath != "", Path: *pipePath}
	cfg.HTTPAddr = *addr
	cfg.Power.LimitAmps = *limitAmps

	// Config overrides flags where set; a partial file leaves the rest
	// of the flag-derived values alone.
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = config.Merge(cfg, c)
	}
	if *simOnly {
		cfg.Driver = "sim"
	}
	if cfg.Brightness < 0 || cfg.Brightness > 255 {
		log.Fatal().Int("brightness", cfg.Brightness).Msg("brightness out of range")
	}

	// ---- Layout (invalid layout is fatal) ----
	lay, err := layout.Load(cfg.LayoutPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.LayoutPath).Msg("invalid panel layout")
	}
	width, height := lay.Dimensions()
	ledCount := lay.LEDCount()
	log.Info().Int("width", width).Int("height", height).
		Int("panels", len(lay.Panels)).Int("leds", ledCount).Msg("layout loaded")

	// ---- Core pipeline pieces ----
	comp := panel.NewComposer(lay)
	queue := frame.NewQueue(cfg.QueueSize)
	limiter := power.NewLimiter(ledCount, cfg.Power.LimitAmps, cfg.Power.Enabled, log.Logger)

	// ---- Driver selection ----
	var drv led.Driver
	switch cfg.Driver {
	case "spi":
		d, err := led.OpenSPI(cfg.SPI.Dev, ledCount)
		if err != nil {
			log.Warn().Err(err).Str("dev", cfg.SPI.Dev).Msg("SPI init failed; falling back to SIM")
			drv = led.NewSim()
		} else {
			drv = d
		}
	case "screen":
		drv = led.NewScreen(ledCount)
	case "sim":
		drv = led.NewSim()
	default:
		log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using SIM")
		drv = led.NewSim()
	}

	pipe := pipeline.New(queue, comp, limiter, drv, uint8(cfg.Brightness), log.Logger)

	// ---- Receivers ----
	receivers := map[string]ingest.Receiver{}
	if cfg.UDP.Enabled {
		receivers["udp"] = ingest.NewUDPReceiver(cfg.UDP.Port, queue, width, height, log.Logger)
	}
	if cfg.Pipe.Enabled {
		receivers["pipe"] = ingest.NewPipeReceiver(cfg.Pipe.Path, queue, width, height, log.Logger)
	}
	if len(receivers) == 0 {
		log.Warn().Msg("no frame receivers enabled")
	}

	// ---- Monitoring surface ----
	state := ws.NewState(width, height, ledCount, cfg.Driver, receivers, limiter, pipe, queue)
	pipe.OnFrame = state.PublishFrame

	mux := http.NewServeMux()
	mux.HandleFunc("/frames", state.HandleFramesWS)
	mux.HandleFunc("/stats", state.HandleStatsWS)
	mux.HandleFunc("/health", state.HandleHealth)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run ----
	for name, r := range receivers {
		if err := r.Start(); err != nil {
			log.Fatal().Err(err).Str("receiver", name).Msg("receiver start failed")
		}
	}
	pipe.Start()
	go state.RunStatsBroadcast(time.Second)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.Driver).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	for _, r := range receivers {
		r.Stop()
	}
	pipe.Stop()
	state.Close()
	_ = srv.Close()
	if err := drv.Close(); err != nil {
		log.Warn().Err(err).Msg("driver close failed")
	}
}
