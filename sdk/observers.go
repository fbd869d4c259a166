package talentwire

import "sync"

// observers is a small registry of callbacks with explicit unsubscribe.
type observers[T any] struct {
	mu     sync.Mutex
	nextID uint64
	fns    map[uint64]func(T)
}

func (o *observers[T]) add(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[uint64]func(T))
	}
	o.nextID++
	id := o.nextID
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.fns, id)
		})
	}
}

func (o *observers[T]) notify(v T) {
	o.mu.Lock()
	snapshot := make([]func(T), 0, len(o.fns))
	for _, fn := range o.fns {
		snapshot = append(snapshot, fn)
	}
	o.mu.Unlock()
	for _, fn := range snapshot {
		fn(v)
	}
}
