// Package fifo implements the byte queue carrying NetSIO payload bytes from
// the network receive loop to the emulator-facing bridge.
package fifo

import "sync"

// defaultCapacity is large enough to hold several in-flight DATA_BLOCK
// payloads (max 512 bytes each) without the producer ever blocking.
const defaultCapacity = 4096

// Queue is a thread-safe circular byte queue. One goroutine (the network
// receive loop) pushes; one goroutine (the emulator) pops. Push never
// blocks or drops; Pop and PopBlocking never block the producer.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	buffer   []byte
	readPos  int
	writePos int
	size     int
}

// New creates a queue with the given capacity. A capacity of 0 selects
// defaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	q := &Queue{buffer: make([]byte, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends bytes to the tail of the queue, growing the backing buffer
// if necessary. It never blocks and never drops data.
func (q *Queue) Push(data []byte) {
	if len(data) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size+len(data) > len(q.buffer) {
		q.grow(q.size + len(data))
	}
	for _, b := range data {
		q.buffer[q.writePos] = b
		q.writePos = (q.writePos + 1) % len(q.buffer)
	}
	q.size += len(data)
	q.notEmpty.Signal()
}

// grow doubles the backing buffer until it can hold need bytes, relocating
// the currently buffered bytes to start at index 0.
func (q *Queue) grow(need int) {
	newCap := len(q.buffer)
	if newCap == 0 {
		newCap = defaultCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	relocated := make([]byte, newCap)
	for i := 0; i < q.size; i++ {
		relocated[i] = q.buffer[(q.readPos+i)%len(q.buffer)]
	}
	q.buffer = relocated
	q.readPos = 0
	q.writePos = q.size
}

// Pop removes and returns the next byte, non-blocking. ok is false when the
// queue is empty.
func (q *Queue) Pop() (b byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue) popLocked() (b byte, ok bool) {
	if q.size == 0 {
		return 0, false
	}
	b = q.buffer[q.readPos]
	q.readPos = (q.readPos + 1) % len(q.buffer)
	q.size--
	return b, true
}

// PopBlocking waits until at least one byte is available and returns it.
// It retries internally on spurious wakeups, per the "retries on spurious
// wakeups" requirement placed on get_byte's RX queue read.
func (q *Queue) PopBlocking() byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.size == 0 {
		q.notEmpty.Wait()
	}
	b, _ := q.popLocked()
	return b
}

// Available reports the number of bytes currently buffered.
func (q *Queue) Available() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Reset discards all buffered bytes.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.readPos = 0
	q.writePos = 0
	q.size = 0
}
