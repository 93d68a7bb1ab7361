package behaviour

// eventQueue is an unbounded FIFO of outward events backed by a ring
// buffer: O(1) amortized push and pop, no shifting on removal.
type eventQueue struct {
	buf  []OutwardEvent
	head int
	n    int
}

const minQueueCap = 16

func (q *eventQueue) len() int { return q.n }

func (q *eventQueue) push(ev OutwardEvent) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = ev
	q.n++
}

func (q *eventQueue) pop() (OutwardEvent, bool) {
	if q.n == 0 {
		return nil, false
	}
	ev := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return ev, true
}

func (q *eventQueue) grow() {
	newCap := len(q.buf) * 2
	if newCap < minQueueCap {
		newCap = minQueueCap
	}
	buf := make([]OutwardEvent, newCap)
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
