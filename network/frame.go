package network

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// MaxFrameSize bounds a single FramedTCP message.
const MaxFrameSize = 1 << 20

// MaxDatagramSize is the largest payload a single UDP send can carry.
const MaxDatagramSize = 65507

var (
	ErrFrameTooLarge    = errors.New("network: frame payload too large")
	ErrDatagramTooLarge = errors.New("network: datagram payload too large")
)

// WriteFrame writes payload prefixed with its uvarint encoded length.
//
// Wire format:
//
//	┌──────────────────────────┬──────────────────────────┐
//	│ Payload Length (uvarint) │ Payload (length bytes)   │
//	└──────────────────────────┴──────────────────────────┘
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var header [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(header[:], uint64(len(payload)))
	if _, err := w.Write(header[:n]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one frame written by WriteFrame. It returns io.EOF only
// when the stream ends cleanly between frames.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
