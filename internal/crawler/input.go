package crawler

import (
	"context"
	"sync"
)

// Input is a crawl input channel shared by several producers. It closes once
// it is sealed and every registered producer has closed.
//
//	in := crawler.NewInput(64)
//	seeds := in.NewProducer()
//	results := in.NewProducer()
//	in.Seal()
//	out := frontier.Crawl(ctx, in.C(), filter)
type Input struct {
	ch chan string

	mu        sync.Mutex
	producers int
	sealed    bool
	closed    bool
}

// NewInput creates an Input whose channel has the given buffer size.
func NewInput(buffer int) *Input {
	return &Input{ch: make(chan string, max(buffer, 0))}
}

// C returns the channel to pass to Frontier.Crawl.
func (in *Input) C() <-chan string {
	return in.ch
}

// NewProducer registers a producer. After Seal it returns a producer that is
// already closed.
func (in *Input) NewProducer() *Producer {
	p := &Producer{input: in, done: make(chan struct{})}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.sealed {
		close(p.done)
		p.once.Do(func() {})
		return p
	}
	in.producers++
	return p
}

// Seal declares that no more producers will be registered. An Input sealed
// with no open producers closes immediately.
func (in *Input) Seal() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.sealed = true
	in.closeIfDone()
}

func (in *Input) release() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.producers--
	in.closeIfDone()
}

// closeIfDone must be called with mu held.
func (in *Input) closeIfDone() {
	if in.sealed && in.producers == 0 && !in.closed {
		in.closed = true
		close(in.ch)
	}
}

// Producer pushes addresses onto an Input. It is safe for concurrent use.
type Producer struct {
	input *Input
	done  chan struct{}
	once  sync.Once

	// sending is held for reading while a Push may send on the channel, so
	// Close can wait for in-flight sends before the channel may be closed.
	sending sync.RWMutex
}

// Push sends addr to the crawl. It blocks while the input buffer is full and
// returns false once the producer is closed or ctx is done.
func (p *Producer) Push(ctx context.Context, addr string) bool {
	p.sending.RLock()
	defer p.sending.RUnlock()

	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.input.ch <- addr:
		return true
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close ends this producer's contribution. It is idempotent.
func (p *Producer) Close() {
	p.once.Do(func() {
		close(p.done)
		p.sending.Lock()
		p.sending.Unlock() //nolint:staticcheck // waits for in-flight pushes
		p.input.release()
	})
}
