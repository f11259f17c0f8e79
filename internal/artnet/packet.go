package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Port is the standard Art-Net UDP port.
	Port = 6454

	OpDmx           uint16 = 0x5000
	ProtocolVersion uint16 = 14

	// MaxUniverse is the largest 15-bit port-address.
	MaxUniverse = 0x7FFF

	headerSize = 18
)

var packetID = []byte("Art-Net\x00")

var ErrNotArtDmx = errors.New("not an ArtDmx packet")

// DMXPacket is a decoded ArtDmx packet.
type DMXPacket struct {
	Sequence uint8
	Physical uint8
	Universe uint16
	Data     []byte
}

// BuildDMX encodes an ArtDmx packet. Payloads longer than 512 bytes are
// truncated; odd lengths are padded to an even length as the protocol asks.
func BuildDMX(seq uint8, universe uint16, data []byte) []byte {
	if len(data) > 512 {
		data = data[:512]
	}
	n := len(data)
	if n < 2 {
		n = 2
	}
	if n%2 == 1 {
		n++
	}
	packet := make([]byte, headerSize+n)
	copy(packet[0:8], packetID)
	binary.LittleEndian.PutUint16(packet[8:10], OpDmx)
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)
	packet[12] = seq
	packet[13] = 0
	binary.LittleEndian.PutUint16(packet[14:16], universe&MaxUniverse)
	binary.BigEndian.PutUint16(packet[16:18], uint16(n))
	copy(packet[headerSize:], data)
	return packet
}

// ParseDMX decodes an ArtDmx packet.
func ParseDMX(packet []byte) (DMXPacket, error) {
	if len(packet) < headerSize || !bytes.Equal(packet[0:8], packetID) {
		return DMXPacket{}, ErrNotArtDmx
	}
	if op := binary.LittleEndian.Uint16(packet[8:10]); op != OpDmx {
		return DMXPacket{}, fmt.Errorf("%w: opcode 0x%04x", ErrNotArtDmx, op)
	}
	n := int(binary.BigEndian.Uint16(packet[16:18]))
	if n > 512 || headerSize+n > len(packet) {
		return DMXPacket{}, fmt.Errorf("artdmx: length %d exceeds packet", n)
	}
	data := make([]byte, n)
	copy(data, packet[headerSize:headerSize+n])
	return DMXPacket{
		Sequence: packet[12],
		Physical: packet[13],
		Universe: binary.LittleEndian.Uint16(packet[14:16]),
		Data:     data,
	}, nil
}
