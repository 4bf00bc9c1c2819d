package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

// ErrNotReady is returned for playback operations before the engine loaded,
// or after it failed to load.
var ErrNotReady = errors.New("story engine not ready")

// Loader produces the story runtime. It runs once per gate.
type Loader func(ctx context.Context) (story.Runtime, error)

// Gate is the one-shot engine initialization. Its outcome is recorded once
// and never retried.
type Gate struct {
	once sync.Once
	done chan struct{}
	rt   story.Runtime
	err  error
}

func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Open runs loader on the first call and returns the recorded outcome on
// every call. A loader that outlives ctx is abandoned and counts as failed.
func (g *Gate) Open(ctx context.Context, loader Loader) error {
	g.once.Do(func() {
		defer close(g.done)

		type result struct {
			rt  story.Runtime
			err error
		}
		ch := make(chan result, 1)
		go func() {
			rt, err := loader(ctx)
			ch <- result{rt, err}
		}()

		select {
		case r := <-ch:
			g.rt, g.err = r.rt, r.err
			if g.err == nil && g.rt == nil {
				g.err = errors.New("loader returned no runtime")
			}
		case <-ctx.Done():
			g.err = fmt.Errorf("engine load: %w", ctx.Err())
		}

		if g.err != nil {
			events.Emit("error", "engine.failed", g.err.Error(), nil)
			return
		}
		events.Emit("info", "engine.ready", "", nil)
	})
	<-g.done
	return g.err
}

// Ready reports whether the engine loaded successfully.
func (g *Gate) Ready() bool {
	select {
	case <-g.done:
		return g.err == nil
	default:
		return false
	}
}

// Err returns the load error, or nil while loading or after success.
func (g *Gate) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}

// Runtime returns the loaded runtime, or ErrNotReady.
func (g *Gate) Runtime() (story.Runtime, error) {
	if !g.Ready() {
		return nil, ErrNotReady
	}
	return g.rt, nil
}
