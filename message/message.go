package message

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Variant indices as they appear on the wire.
const (
	variantPing        uint32 = 0
	variantPong        uint32 = 0
	variantUnknownPong uint32 = 1
)

const (
	tagSize   = 4
	countSize = 8
)

var (
	ErrUnexpectedLength = errors.New("unexpected length of buffer")
	ErrUnknownVariant   = errors.New("unknown message variant")
)

// ClientMessage is sent from the client to the server. Ping is the only
// variant.
type ClientMessage uint32

const (
	Ping ClientMessage = ClientMessage(variantPing)
)

func (m ClientMessage) String() string {
	switch m {
	case Ping:
		return "Ping"
	default:
		return fmt.Sprintf("ClientMessage(%d)", uint32(m))
	}
}

// ServerMessage is sent from the server to the client. Count is only
// meaningful when Unknown is false.
type ServerMessage struct {
	Unknown bool
	Count   uint64
}

// Pong is the reply for a sender the server keeps a counter for.
func Pong(count uint64) ServerMessage {
	return ServerMessage{Count: count}
}

// UnknownPong is the reply for a sender without per-connection state.
func UnknownPong() ServerMessage {
	return ServerMessage{Unknown: true}
}

func (m ServerMessage) String() string {
	if m.Unknown {
		return "UnknownPong"
	}
	return fmt.Sprintf("Pong(%d)", m.Count)
}

// EncodeClient encodes m as a little-endian uint32 variant index.
func EncodeClient(m ClientMessage) []byte {
	buf := make([]byte, tagSize)
	binary.LittleEndian.PutUint32(buf, uint32(m))
	return buf
}

func DecodeClient(buf []byte) (ClientMessage, error) {
	if len(buf) != tagSize {
		return 0, fmt.Errorf("client message of %d bytes: %w", len(buf), ErrUnexpectedLength)
	}

	switch tag := binary.LittleEndian.Uint32(buf); tag {
	case variantPing:
		return Ping, nil
	default:
		return 0, fmt.Errorf("client message variant %d: %w", tag, ErrUnknownVariant)
	}
}

// EncodeServer encodes m as the variant index followed, for Pong, by the
// count as a little-endian uint64.
func EncodeServer(m ServerMessage) []byte {
	if m.Unknown {
		buf := make([]byte, tagSize)
		binary.LittleEndian.PutUint32(buf, variantUnknownPong)
		return buf
	}

	buf := make([]byte, tagSize+countSize)
	binary.LittleEndian.PutUint32(buf[:tagSize], variantPong)
	binary.LittleEndian.PutUint64(buf[tagSize:], m.Count)
	return buf
}

func DecodeServer(buf []byte) (ServerMessage, error) {
	if len(buf) < tagSize {
		return ServerMessage{}, fmt.Errorf("server message of %d bytes: %w", len(buf), ErrUnexpectedLength)
	}

	switch tag := binary.LittleEndian.Uint32(buf[:tagSize]); tag {
	case variantPong:
		if len(buf) != tagSize+countSize {
			return ServerMessage{}, fmt.Errorf("pong of %d bytes: %w", len(buf), ErrUnexpectedLength)
		}
		return Pong(binary.LittleEndian.Uint64(buf[tagSize:])), nil
	case variantUnknownPong:
		if len(buf) != tagSize {
			return ServerMessage{}, fmt.Errorf("unknown pong of %d bytes: %w", len(buf), ErrUnexpectedLength)
		}
		return UnknownPong(), nil
	default:
		return ServerMessage{}, fmt.Errorf("server message variant %d: %w", tag, ErrUnknownVariant)
	}
}
