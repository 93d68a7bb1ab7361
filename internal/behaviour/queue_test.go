package behaviour

import (
	"fmt"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
)

func TestQueueFIFOAcrossGrowth(t *testing.T) {
	var q eventQueue
	const n = 1000
	for i := 0; i < n; i++ {
		q.push(PeerDialed{Peer: peer.ID(fmt.Sprintf("peer-%d", i))})
	}
	if q.len() != n {
		t.Fatalf("len = %d, want %d", q.len(), n)
	}
	for i := 0; i < n; i++ {
		ev, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: queue empty", i)
		}
		want := peer.ID(fmt.Sprintf("peer-%d", i))
		if got := ev.(PeerDialed).Peer; got != want {
			t.Fatalf("pop %d = %s, want %s", i, got, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Fatal("pop on empty queue returned ok")
	}
}

func TestQueueWraparound(t *testing.T) {
	var q eventQueue
	next := 0 // next value to push
	want := 0 // next value expected from pop

	// Interleave pushes and pops so head circles the buffer repeatedly
	// without triggering growth.
	for round := 0; round < 50; round++ {
		for i := 0; i < 10; i++ {
			q.push(PeerDialed{Peer: peer.ID(fmt.Sprintf("p%d", next))})
			next++
		}
		for i := 0; i < 10; i++ {
			ev, ok := q.pop()
			if !ok {
				t.Fatalf("round %d: unexpected empty queue", round)
			}
			if got := ev.(PeerDialed).Peer; got != peer.ID(fmt.Sprintf("p%d", want)) {
				t.Fatalf("round %d: got %s, want p%d", round, got, want)
			}
			want++
		}
	}
	if q.len() != 0 {
		t.Fatalf("len = %d after balanced push/pop, want 0", q.len())
	}
}

func TestQueueGrowthPreservesWrappedOrder(t *testing.T) {
	var q eventQueue
	// Wrap head past zero, then grow while wrapped.
	for i := 0; i < minQueueCap; i++ {
		q.push(PeerDialed{Peer: peer.ID(fmt.Sprintf("a%d", i))})
	}
	for i := 0; i < minQueueCap/2; i++ {
		q.pop()
	}
	for i := 0; i < minQueueCap; i++ {
		q.push(PeerDialed{Peer: peer.ID(fmt.Sprintf("b%d", i))})
	}

	var got []string
	for {
		ev, ok := q.pop()
		if !ok {
			break
		}
		got = append(got, string(ev.(PeerDialed).Peer))
	}

	var want []string
	for i := minQueueCap / 2; i < minQueueCap; i++ {
		want = append(want, fmt.Sprintf("a%d", i))
	}
	for i := 0; i < minQueueCap; i++ {
		want = append(want, fmt.Sprintf("b%d", i))
	}
	if len(got) != len(want) {
		t.Fatalf("drained %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}
