// Package wire defines the binary encoding of the application payloads
// exchanged over the gossip channel.
//
// A PubsubMessage is serialized as a 4-byte little-endian discriminant
// followed by the payload's own encoding. Decoding is offset-based so a
// consumer can unpack values laid out back-to-back in one buffer.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Message tags. The tag space is append-only; never reuse a value.
const (
	tagBlock       uint32 = 0
	tagAttestation uint32 = 1
)

var (
	// ErrTruncated reports input shorter than the encoding requires.
	ErrTruncated = errors.New("wire: input truncated")
	// ErrInvalidTag reports an unknown message discriminant.
	ErrInvalidTag = errors.New("wire: invalid message tag")
)

// PubsubMessage is the tagged union of payloads carried by gossip.
// Implemented by Block and Attestation.
type PubsubMessage interface {
	tag() uint32
	appendPayload(dst []byte) []byte
}

// Encode serializes msg into a fresh buffer.
func Encode(msg PubsubMessage) []byte {
	dst := binary.LittleEndian.AppendUint32(nil, msg.tag())
	return msg.appendPayload(dst)
}

// Decode reconstructs a PubsubMessage from b starting at off and returns
// it together with the offset immediately past the consumed bytes. It
// never reads beyond len(b).
func Decode(b []byte, off int) (PubsubMessage, int, error) {
	tag, off, err := readUint32(b, off)
	if err != nil {
		return nil, 0, err
	}
	switch tag {
	case tagBlock:
		blk, next, err := decodeBlock(b, off)
		if err != nil {
			return nil, 0, err
		}
		return blk, next, nil
	case tagAttestation:
		att, next, err := decodeAttestation(b, off)
		if err != nil {
			return nil, 0, err
		}
		return att, next, nil
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidTag, tag)
	}
}

// Block notifies peers of a newly produced block.
type Block struct {
	Slot       uint64
	ParentRoot [32]byte
	StateRoot  [32]byte
	Body       []byte
}

func (Block) tag() uint32 { return tagBlock }

func (b Block) appendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, b.Slot)
	dst = append(dst, b.ParentRoot[:]...)
	dst = append(dst, b.StateRoot[:]...)
	return appendBytes(dst, b.Body)
}

func decodeBlock(buf []byte, off int) (Block, int, error) {
	var b Block
	var err error
	if b.Slot, off, err = readUint64(buf, off); err != nil {
		return Block{}, 0, err
	}
	if off, err = readRoot(buf, off, &b.ParentRoot); err != nil {
		return Block{}, 0, err
	}
	if off, err = readRoot(buf, off, &b.StateRoot); err != nil {
		return Block{}, 0, err
	}
	if b.Body, off, err = readBytes(buf, off); err != nil {
		return Block{}, 0, err
	}
	return b, off, nil
}

// Attestation notifies peers of a new attestation for a block.
type Attestation struct {
	Slot            uint64
	CommitteeIndex  uint64
	BeaconBlockRoot [32]byte
	Signature       []byte
}

func (Attestation) tag() uint32 { return tagAttestation }

func (a Attestation) appendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, a.Slot)
	dst = binary.LittleEndian.AppendUint64(dst, a.CommitteeIndex)
	dst = append(dst, a.BeaconBlockRoot[:]...)
	return appendBytes(dst, a.Signature)
}

func decodeAttestation(buf []byte, off int) (Attestation, int, error) {
	var a Attestation
	var err error
	if a.Slot, off, err = readUint64(buf, off); err != nil {
		return Attestation{}, 0, err
	}
	if a.CommitteeIndex, off, err = readUint64(buf, off); err != nil {
		return Attestation{}, 0, err
	}
	if off, err = readRoot(buf, off, &a.BeaconBlockRoot); err != nil {
		return Attestation{}, 0, err
	}
	if a.Signature, off, err = readBytes(buf, off); err != nil {
		return Attestation{}, 0, err
	}
	return a, off, nil
}

// Variable-length byte strings carry a 4-byte little-endian length prefix.

func appendBytes(dst, v []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v)))
	return append(dst, v...)
}

func readBytes(b []byte, off int) ([]byte, int, error) {
	n, off, err := readUint32(b, off)
	if err != nil {
		return nil, 0, err
	}
	if uint64(n) > uint64(len(b)-off) {
		return nil, 0, ErrTruncated
	}
	if n == 0 {
		return nil, off, nil
	}
	v := make([]byte, n)
	copy(v, b[off:off+int(n)])
	return v, off + int(n), nil
}

func readUint32(b []byte, off int) (uint32, int, error) {
	if off < 0 || len(b)-off < 4 {
		return 0, 0, ErrTruncated
	}
	return binary.LittleEndian.Uint32(b[off:]), off + 4, nil
}

func readUint64(b []byte, off int) (uint64, int, error) {
	if off < 0 || len(b)-off < 8 {
		return 0, 0, ErrTruncated
	}
	return binary.LittleEndian.Uint64(b[off:]), off + 8, nil
}

func readRoot(b []byte, off int, dst *[32]byte) (int, error) {
	if off < 0 || len(b)-off < 32 {
		return 0, ErrTruncated
	}
	copy(dst[:], b[off:off+32])
	return off + 32, nil
}
