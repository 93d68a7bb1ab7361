package p2p

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"

	"beaconp2p/internal/behaviour"
)

func TestRPCFrameRoundTrip(t *testing.T) {
	cases := []behaviour.RPCEvent{
		{ID: 1, Method: "status", Body: []byte("hello")},
		{ID: 0, Method: "", Body: nil},
		{ID: ^uint64(0), Method: "blocks_by_range", Body: bytes.Repeat([]byte{7}, 1024)},
	}
	for _, ev := range cases {
		var buf bytes.Buffer
		if err := writeRPCFrame(&buf, ev); err != nil {
			t.Fatalf("write %v: %v", ev.Method, err)
		}
		got, err := readRPCFrame(&buf)
		if err != nil {
			t.Fatalf("read %v: %v", ev.Method, err)
		}
		if !reflect.DeepEqual(got, ev) {
			t.Fatalf("round trip: got %#v, want %#v", got, ev)
		}
	}
}

func TestRPCFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	events := []behaviour.RPCEvent{
		{ID: 1, Method: "hello"},
		{ID: 2, Method: "status", Body: []byte("x")},
	}
	for _, ev := range events {
		if err := writeRPCFrame(&buf, ev); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for i, want := range events {
		got, err := readRPCFrame(&buf)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("frame %d: got %#v, want %#v", i, got, want)
		}
	}
	if _, err := readRPCFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after last frame, got %v", err)
	}
}

func TestRPCFrameRejectsOversizedBody(t *testing.T) {
	ev := behaviour.RPCEvent{ID: 1, Body: make([]byte, maxRPCFrame+1)}
	if err := writeRPCFrame(io.Discard, ev); !errors.Is(err, errFrameTooLarge) {
		t.Fatalf("err = %v, want errFrameTooLarge", err)
	}
}

func TestRPCFrameTruncatedRead(t *testing.T) {
	var buf bytes.Buffer
	if err := writeRPCFrame(&buf, behaviour.RPCEvent{ID: 9, Method: "status", Body: []byte("abcd")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	full := buf.Bytes()
	for _, cut := range []int{1, 9, 11, len(full) - 1} {
		if _, err := readRPCFrame(bytes.NewReader(full[:cut])); err == nil {
			t.Fatalf("cut %d: expected error", cut)
		}
	}
}
