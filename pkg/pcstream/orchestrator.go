package pcstream

import (
	"context"
	"fmt"
	"sync"

	"github.com/warpdl/warpstream/pkg/logger"
	"go.uber.org/multierr"
)

// completion is the result of one fetch+decode, posted from a fetch goroutine.
type completion struct {
	gen   uint64
	index int
	asset Asset
	err   error
}

// orchestrator issues fetches on their own goroutines and hands results back
// to the tick goroutine through a mailbox. Results carrying a stale
// generation are discarded and their assets released.
type orchestrator struct {
	source  Source
	decoder Decoder
	log     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	gen      uint64
	mailbox  []completion
	inflight int
}

func newOrchestrator(source Source, decoder Decoder, l logger.Logger) *orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &orchestrator{
		source:  source,
		decoder: decoder,
		log:     l,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// issue starts the fetch for f. It never blocks.
func (o *orchestrator) issue(f *Frame) {
	o.mu.Lock()
	gen := o.gen
	o.inflight++
	o.mu.Unlock()

	index, iv := f.index, f.interval
	locator := redact(iv.Source)
	fail := func(op string, err error) {
		o.post(completion{gen: gen, index: index, err: &FrameError{Index: index, Locator: locator, Op: op, Cause: err}})
	}

	// op is only touched by the fetch goroutine, including its panic handler.
	op := "fetch"
	o.wg.Add(1)
	safeGo(o.log, &o.wg, "fetch "+locator, func(r interface{}) {
		fail(op, fmt.Errorf("panic: %v", r))
	}, func() {
		data, err := o.source.Fetch(o.ctx, iv.Source)
		if err != nil {
			fail("fetch", err)
			return
		}
		op = "decode"
		asset, err := o.decoder.Decode(o.ctx, iv, data)
		if err != nil {
			fail("decode", err)
			return
		}
		if asset == nil {
			fail("decode", fmt.Errorf("decoder returned no asset"))
			return
		}
		o.post(completion{gen: gen, index: index, asset: asset})
	})
}

func (o *orchestrator) post(c completion) {
	o.mu.Lock()
	if c.gen != o.gen {
		o.mu.Unlock()
		if c.asset != nil {
			if err := c.asset.Destroy(); err != nil {
				o.log.Warning("releasing late tile %d: %v", c.index, err)
			}
		}
		return
	}
	o.inflight--
	o.mailbox = append(o.mailbox, c)
	o.mu.Unlock()
}

// wait blocks until every fetch goroutine has returned or ctx is done.
func (o *orchestrator) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain takes every completion posted since the previous drain.
func (o *orchestrator) drain() []completion {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.mailbox
	o.mailbox = nil
	return out
}

func (o *orchestrator) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight
}

// shutdown invalidates every outstanding fetch, cancels the network calls and
// releases assets that were delivered but not yet drained. It does not wait
// for the fetch goroutines; see wait.
func (o *orchestrator) shutdown() error {
	o.mu.Lock()
	o.gen++
	o.inflight = 0
	undrained := o.mailbox
	o.mailbox = nil
	o.mu.Unlock()
	o.cancel()

	var err error
	for _, c := range undrained {
		if c.asset != nil {
			err = multierr.Append(err, c.asset.Destroy())
		}
	}
	return err
}

// advance moves a Preparing frame forward by one preparation step. Commands
// added during preparation are rolled back. It reports whether the frame
// became ready on this call.
func advance(f *Frame, rc RenderContext) (becameReady bool, err error) {
	if f.state != FramePreparing || f.failed() {
		return false, nil
	}
	before := rc.CommandCount()
	ready, err := f.asset.Prepare(rc)
	rc.TruncateCommands(before)
	if err != nil {
		return false, err
	}
	if !ready {
		return false, nil
	}
	f.state = FrameReady
	return true, nil
}
