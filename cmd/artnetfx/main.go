package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/artnetfx/internal/artnet"
	"github.com/coreman2200/artnetfx/internal/config"
	"github.com/coreman2200/artnetfx/internal/controller"
	"github.com/coreman2200/artnetfx/internal/session"
	"github.com/coreman2200/artnetfx/internal/ws"
)

func main() {
	// ---- Flags (config.yaml and ARTNETFX_* fill in whatever is not set here) ----
	def := config.Defaults()
	fps := def.Rate()
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", def.Driver, "driver: artnet | sim")
		host       = flag.String("host", def.Host, "Art-Net node address")
		port       = flag.Int("port", def.Port, "Art-Net UDP port")
		leds       = flag.Int("leds", def.Leds, "LED count")
		universe   = flag.Int("universe", def.Universe, "DMX universe")
		address    = flag.Int("address", def.Address, "first DMX slot (1-based)")
		addr       = flag.String("addr", def.HTTPAddr, "HTTP listen address")
		logLevel   = flag.String("log-level", def.LogLevel, "trace | debug | info | warn | error")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no network output)")
	)
	flag.Var(&fps, "fps", "frame rate, e.g. 30Hz")
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Effective config: defaults < yaml < env < explicit flags ----
	cfg := &def
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}
	if err := config.ApplyEnv(cfg); err != nil {
		log.Warn().Err(err).Msg("ignoring environment")
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "leds":
			cfg.Leds = *leds
		case "universe":
			cfg.Universe = *universe
		case "address":
			cfg.Address = *address
		case "addr":
			cfg.HTTPAddr = *addr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "fps":
			cfg.FPS = float64(fps) / float64(physic.Hertz)
		}
	})
	if *simOnly {
		cfg.Driver = "sim"
	}

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level; using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(lvl)
	}

	// ---- Driver selection ----
	selected := cfg.Driver
	var tr artnet.Transport
	switch selected {
	case "sim":
		tr = artnet.NewSim()

	case "artnet":
		target := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		if _, err := net.ResolveUDPAddr("udp", target); err != nil {
			log.Warn().Err(err).
				Str("driver", "artnet").
				Str("target", target).
				Msg("Art-Net target unusable; falling back to SIM")
			selected = "sim"
			tr = artnet.NewSim()
		} else {
			tr = artnet.UDP{}
		}

	default:
		log.Warn().Str("driver", selected).Msg("unknown driver; using SIM")
		selected = "sim"
		tr = artnet.NewSim()
	}

	// ---- Session & hub ----
	hub := ws.NewHub(selected)
	hub.ConfigPath = *configPath
	hub.Config = *cfg
	sess := session.New(tr, session.Options{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Rate:          cfg.Rate(),
		JoinTimeout:   cfg.JoinTimeout,
		BridgeTimeout: cfg.BridgeTimeout,
		OnFrame:       hub.PublishFrame,
		OnStatus:      hub.PublishStatus,
	})
	hub.Attach(sess)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.RestartForLeds(ctx, cfg.Leds); err != nil {
		log.Error().Err(err).Int("leds", cfg.Leds).Msg("led count not applied")
	}
	if err := sess.SetAddressConfig(ctx, session.AddressConfig{Universe: cfg.Universe, Address: cfg.Address}); err != nil {
		log.Error().Err(err).
			Int("universe", cfg.Universe).
			Int("address", cfg.Address).
			Msg("address config not applied; using defaults")
	}

	if cfg.Startup.Player != 0 {
		res, err := controller.New(sess).Apply(ctx, controller.Request{
			PlayerID: cfg.Startup.Player,
			Leds:     cfg.Leds,
			Freq:     cfg.Startup.Freq,
			Address:  cfg.Address,
			Universe: cfg.Universe,
		})
		if err != nil {
			log.Error().Err(err).Int("player", cfg.Startup.Player).Msg("startup player failed")
		} else {
			log.Info().Str("player", res.Player).Int("channels", res.DMX.Channels).Msg("startup player applied")
		}
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleFramesWS)
	mux.HandleFunc("/diag", hub.HandleDiagWS)
	mux.HandleFunc("/control", hub.HandleControlWS)
	mux.HandleFunc("/health", hub.HandleHealth)
	mux.HandleFunc("/players", hub.HandlePlayers)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run preview loop & server ----
	go hub.Run(ctx)
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("driver", selected).
			Str("fps", cfg.Rate().String()).
			Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sess.Close(shutdownCtx)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
