package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func sampleBlock() Block {
	return Block{
		Slot:       42,
		ParentRoot: [32]byte{1, 2, 3},
		StateRoot:  [32]byte{4, 5, 6},
		Body:       []byte("block body"),
	}
}

func sampleAttestation() Attestation {
	return Attestation{
		Slot:            43,
		CommitteeIndex:  7,
		BeaconBlockRoot: [32]byte{9, 9, 9},
		Signature:       bytes.Repeat([]byte{0xab}, 96),
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  PubsubMessage
	}{
		{"block", sampleBlock()},
		{"block empty body", Block{Slot: 1}},
		{"attestation", sampleAttestation()},
		{"attestation empty signature", Attestation{Slot: 2, CommitteeIndex: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := Encode(tc.msg)
			got, next, err := Decode(enc, 0)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if next != len(enc) {
				t.Fatalf("next offset = %d, want %d", next, len(enc))
			}
			if !reflect.DeepEqual(got, tc.msg) {
				t.Fatalf("round trip mismatch: got %#v, want %#v", got, tc.msg)
			}
		})
	}
}

func TestDiscriminantLayout(t *testing.T) {
	enc := Encode(sampleBlock())
	if got := binary.LittleEndian.Uint32(enc[:4]); got != 0 {
		t.Fatalf("block discriminant = %d, want 0", got)
	}
	enc = Encode(sampleAttestation())
	if got := binary.LittleEndian.Uint32(enc[:4]); got != 1 {
		t.Fatalf("attestation discriminant = %d, want 1", got)
	}
}

func TestInvalidTag(t *testing.T) {
	for _, tag := range []uint32{2, 3, 100, 0xffffffff} {
		buf := binary.LittleEndian.AppendUint32(nil, tag)
		buf = append(buf, []byte("trailing bytes that must not matter")...)
		_, _, err := Decode(buf, 0)
		if !errors.Is(err, ErrInvalidTag) {
			t.Fatalf("tag %d: err = %v, want ErrInvalidTag", tag, err)
		}
	}
}

func TestTruncatedInput(t *testing.T) {
	blockEnc := Encode(sampleBlock())
	attEnc := Encode(sampleAttestation())

	cases := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short discriminant", []byte{0, 0}},
		{"tag only", blockEnc[:4]},
		{"mid fixed fields", blockEnc[:20]},
		{"missing length prefix", blockEnc[:4+8+32+32+2]},
		{"body shorter than length", blockEnc[:len(blockEnc)-3]},
		{"attestation mid fields", attEnc[:10]},
		{"attestation short signature", attEnc[:len(attEnc)-1]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode(tc.buf, 0)
			if !errors.Is(err, ErrTruncated) {
				t.Fatalf("err = %v, want ErrTruncated", err)
			}
		})
	}
}

func TestBodyLengthBeyondInput(t *testing.T) {
	// Fixed fields intact, but the declared body length runs past the end.
	enc := Encode(Block{Slot: 9, Body: []byte("abc")})
	lenOff := len(enc) - 3 - 4
	binary.LittleEndian.PutUint32(enc[lenOff:], 1<<30)
	_, _, err := Decode(enc, 0)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestOffsetChaining(t *testing.T) {
	msgs := []PubsubMessage{sampleBlock(), sampleAttestation(), Block{Slot: 99}}
	var buf []byte
	for _, m := range msgs {
		buf = append(buf, Encode(m)...)
	}

	off := 0
	for i, want := range msgs {
		got, next, err := Decode(buf, off)
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("message %d mismatch: got %#v, want %#v", i, got, want)
		}
		off = next
	}
	if off != len(buf) {
		t.Fatalf("final offset = %d, want %d", off, len(buf))
	}
}

func TestDecodeNeverPanics(t *testing.T) {
	enc := Encode(sampleAttestation())
	for i := 0; i <= len(enc); i++ {
		// Every prefix either decodes or errors; none may panic.
		if _, _, err := Decode(enc[:i], 0); err == nil && i != len(enc) {
			t.Fatalf("prefix of %d bytes decoded without error", i)
		}
	}
}
