package message

import (
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
)

// Queue holds messages sorted ascending by timer until a subsystem claims
// them or they are pruned. Immediate messages form the front segment of the
// queue in insertion order; timed messages follow, ordered by timer and then
// by insertion.
//
// Queue is not safe for concurrent use; the engine touches it from the tick
// goroutine only.
type Queue struct {
	clock    Clock
	items    []Message
	log      *zap.Logger
	recorder *recorder
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLogger sets the logger used for queue diagnostics.
func WithLogger(log *zap.Logger) QueueOption {
	return func(q *Queue) {
		if log != nil {
			q.log = log
		}
	}
}

// NewQueue creates an empty queue reading time from clock.
func NewQueue(clock Clock, opts ...QueueOption) *Queue {
	q := &Queue{
		clock: clock,
		items: make([]Message, 0, 64),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Now returns the queue's current tick.
func (q *Queue) Now() int64 {
	return q.clock.Now()
}

// Add inserts msg keeping the queue sorted by timer. Equal timers keep their
// insertion order, so immediate messages are read back first-in first-out.
func (q *Queue) Add(msg Message) {
	// Upper bound: first entry strictly later than msg. For an immediate
	// message this is the end of the immediate segment, no sort needed.
	idx := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].Timer > msg.Timer
	})
	q.items = append(q.items, Message{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = msg

	if q.recorder != nil {
		q.recorder.write(msg, q.clock.Now(), q.log)
	}
}

// Get removes and returns, in queue order, every due message routed to
// system. A message is due when it is immediate or its timer equals the
// current tick. Scanning stops at the first message in the future.
func (q *Queue) Get(system string) []Message {
	now := q.clock.Now()

	var batch []Message
	kept := q.items[:0]
	for i, msg := range q.items {
		if msg.Timer > now {
			kept = append(kept, q.items[i:]...)
			break
		}
		if msg.System == system && (msg.Timer == now || msg.IsImmediate()) {
			batch = append(batch, msg)
			continue
		}
		kept = append(kept, msg)
	}
	clearTail(q.items, len(kept))
	q.items = kept
	return batch
}

// Prune drops every message that is due or overdue and was not claimed this
// tick. It returns the number of dropped messages.
func (q *Queue) Prune() int {
	now := q.clock.Now()
	idx := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].Timer > now
	})
	if idx == 0 {
		return 0
	}

	for _, msg := range q.items[:idx] {
		q.log.Debug("pruned unclaimed message",
			zap.Int64("tick", now),
			zap.Stringer("message", msg),
		)
	}

	n := copy(q.items, q.items[idx:])
	clearTail(q.items, n)
	q.items = q.items[:n]
	return idx
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return len(q.items)
}

// Pending returns a copy of the queued messages in queue order.
func (q *Queue) Pending() []Message {
	out := make([]Message, len(q.items))
	copy(out, q.items)
	return out
}

// LoadScript reads a binary script file and schedules its records relative
// to the current tick. A file that cannot be opened is an error; malformed
// records inside it are skipped.
func (q *Queue) LoadScript(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open script %q: %w", path, err)
	}
	defer f.Close()

	n, err := q.ReadScript(f)
	if err != nil {
		return fmt.Errorf("read script %q: %w", path, err)
	}
	q.log.Info("loaded script", zap.String("path", path), zap.Int("messages", n))
	return nil
}

// ReadScript reads script records from r, offsets each timed record by the
// current tick and adds it to the queue. It returns the number of messages
// added.
func (q *Queue) ReadScript(r io.Reader) (int, error) {
	now := q.clock.Now()
	dec := NewDecoder(r)

	added := 0
	for {
		msg, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, err
		}
		if !msg.IsImmediate() {
			msg.Timer += now
		}
		q.Add(msg)
		added++
	}

	if skipped := dec.Skipped(); skipped > 0 {
		q.log.Warn("skipped malformed script records", zap.Int("records", skipped))
	}
	return added, nil
}

// Record attaches a message log. Every message added from now on is written
// to w in script format, with its timer relative to the tick at which
// recording started so the log replays as a script. Passing nil detaches the
// log.
func (q *Queue) Record(w io.Writer) {
	if w == nil {
		q.recorder = nil
		return
	}
	q.recorder = &recorder{
		enc:   NewEncoder(w),
		start: q.clock.Now(),
	}
}

type recorder struct {
	enc   *Encoder
	start int64
}

func (r *recorder) write(msg Message, now int64, log *zap.Logger) {
	if !msg.IsImmediate() {
		msg.Timer -= r.start
	} else {
		// Immediate messages replay on the tick they were sent.
		msg.Timer = now - r.start
	}
	if err := r.enc.Encode(msg); err != nil {
		log.Warn("failed to record message", zap.Stringer("message", msg), zap.Error(err))
	}
}

func clearTail(items []Message, from int) {
	for i := from; i < len(items); i++ {
		items[i] = Message{}
	}
}
