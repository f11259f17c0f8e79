// Command artnetprobe pushes a fixed colour, or one of the effects, to a
// fixture so the wiring and addressing can be checked without the daemon.
// With -listen it logs the ArtDmx traffic that arrives instead.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/artnetfx/internal/artnet"
	"github.com/coreman2200/artnetfx/internal/dmx"
	"github.com/coreman2200/artnetfx/internal/render"
)

func main() {
	var (
		host     = flag.String("host", "192.168.178.99", "Art-Net node address")
		port     = flag.Int("port", artnet.Port, "Art-Net UDP port")
		leds     = flag.Int("leds", 1, "LED count")
		universe = flag.Int("universe", 0, "DMX universe")
		address  = flag.Int("address", 1, "first DMX slot (1-based)")
		cycles   = flag.Int("cycles", 1000, "frames to send")
		fade     = flag.Duration("fade", 50*time.Millisecond, "fade time per frame")
		r        = flag.Uint("r", 100, "red")
		g        = flag.Uint("g", 255, "green")
		b        = flag.Uint("b", 255, "blue")
		w        = flag.Uint("w", 0, "white")
		effect   = flag.String("effect", "", "render this effect (static | bouncy | gradient | chase) instead of the fixed colour")
		freq     = flag.Float64("freq", 1.0, "effect frequency in Hz")
		level    = flag.Int("level", 255, "static effect level")
		listen   = flag.String("listen", "", "listen on this address (e.g. :6454) and log ArtDmx instead of sending")
	)
	rate := 30 * physic.Hertz
	flag.Var(&rate, "fps", "send rate, e.g. 30Hz")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listen != "" {
		if err := monitor(ctx, *listen); err != nil {
			log.Fatal().Err(err).Str("addr", *listen).Msg("listen failed")
		}
		return
	}

	log.Info().Str("host", *host).Int("port", *port).Msg("initializing node")
	node, err := artnet.UDP{}.NewNode(*host, *port)
	if err != nil {
		log.Fatal().Err(err).Msg("node")
	}
	defer node.Close()

	log.Info().Int("universe", *universe).Msg("adding universe")
	uni, err := node.AddUniverse(*universe)
	if err != nil {
		log.Fatal().Err(err).Msg("universe")
	}

	log.Info().Int("address", *address).Int("width", dmx.Width(*leds)).Msg("creating channel")
	ch, err := uni.AddChannel(*address, dmx.Width(*leds))
	if err != nil {
		log.Fatal().Err(err).Msg("channel")
	}

	fixed := dmx.PackRGBW(*leds, byte(*r), byte(*g), byte(*b), byte(*w))
	next, err := frameSource(*effect, *leds, *level, *freq, fixed)
	if err != nil {
		log.Fatal().Err(err).Msg("effect")
	}
	if *effect != "" {
		log.Info().Str("effect", *effect).Float64("freq", *freq).Msg("rendering effect")
	}

	t0 := time.Now()
	period := rate.Period()
	for i := 0; i < *cycles; i++ {
		if ctx.Err() != nil {
			break
		}
		frame := next(time.Since(t0).Seconds())
		log.Debug().Int("cycle", i+1).Int("of", *cycles).Msg("sending")
		if err := ch.Fade(frame, *fade); err != nil {
			log.Error().Err(err).Msg("fade")
			return
		}
		time.Sleep(period)
	}
	log.Info().Int("cycles", *cycles).Msg("done")
}

// frameSource returns the frame to send at t seconds. An empty effect
// always yields fixed.
func frameSource(effect string, leds, level int, freq float64, fixed dmx.Frame) (func(t float64) dmx.Frame, error) {
	if effect == "" {
		return func(float64) dmx.Frame { return fixed }, nil
	}
	v, err := render.ParseVariant(effect)
	if err != nil {
		return nil, err
	}
	e := render.NewEngine(leds)
	e.SetEffect(v)
	e.SetStaticLevel(level)
	e.SetBouncyFreq(freq)
	e.SetGradientSpeed(freq)
	e.SetChaseFreq(freq)
	return e.Render, nil
}

func monitor(ctx context.Context, addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	defer pc.Close()
	log.Info().Str("addr", pc.LocalAddr().String()).Msg("listening for ArtDmx")

	return artnet.Listen(ctx, pc, func(from net.Addr, p artnet.DMXPacket) {
		log.Info().
			Str("from", from.String()).
			Uint16("universe", p.Universe).
			Uint8("seq", p.Sequence).
			Int("len", len(p.Data)).
			Hex("head", head(p.Data, 16)).
			Msg("artdmx")
	})
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
