package artnet

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Listen reads ArtDmx packets on pc until ctx is done, handing each to fn.
// Non-ArtDmx traffic is skipped.
func Listen(ctx context.Context, pc net.PacketConn, fn func(from net.Addr, p DMXPacket)) error {
	buf := make([]byte, 2048)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		_ = pc.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p, err := ParseDMX(buf[:n])
		if err != nil {
			log.Trace().Err(err).Str("from", from.String()).Msg("skipping packet")
			continue
		}
		fn(from, p)
	}
}
