package app

import (
	"log/slog"
	"sync"
)

// dispatcher runs jobs one at a time per key, in enqueue order, with no ordering between keys.
// A lane exists in the map exactly while a goroutine is draining it.
type dispatcher struct {
	name   string
	logger *slog.Logger

	mu    sync.Mutex
	lanes map[string]*lane
}

type lane struct {
	queue []func()
}

func newDispatcher(name string, logger *slog.Logger) *dispatcher {
	return &dispatcher{name: name, logger: logger, lanes: make(map[string]*lane)}
}

// enqueue never blocks on job execution.
func (d *dispatcher) enqueue(key string, job func()) {
	d.mu.Lock()
	if l, ok := d.lanes[key]; ok {
		l.queue = append(l.queue, job)
		d.mu.Unlock()
		return
	}
	l := &lane{}
	d.lanes[key] = l
	d.mu.Unlock()

	go d.drain(key, l, job)
}

func (d *dispatcher) drain(key string, l *lane, job func()) {
	for {
		d.run(key, job)

		d.mu.Lock()
		if len(l.queue) == 0 {
			delete(d.lanes, key)
			d.mu.Unlock()
			return
		}
		job = l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		d.mu.Unlock()
	}
}

// run contains a panicking job so the rest of the lane still drains.
func (d *dispatcher) run(key string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in lane job", "lane", d.name, "key", key, "panic", r)
		}
	}()
	job()
}

// active reports how many keys currently have queued or running work.
func (d *dispatcher) active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}
