package artnet

import (
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog/log"
)

// UDP sends ArtDmx packets unicast to the node address.
type UDP struct{}

func (UDP) NewNode(host string, port int) (Node, error) {
	if port == 0 {
		port = Port
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("artnet: resolve %s: %w", host, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("artnet: dial %s: %w", addr, err)
	}
	log.Debug().Str("node", addr.String()).Msg("artnet node opened")

	send := func(packet []byte) error {
		_, err := conn.Write(packet)
		return err
	}
	return newNode(addr.String(), send, conn.Close), nil
}
