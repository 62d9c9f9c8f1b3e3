package service

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/listing-platform/internal/queue"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingCache struct {
	mu     sync.Mutex
	purges int
	fail   bool
}

func (c *countingCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
	if c.fail {
		return errors.New("redis down")
	}
	return nil
}
