package store

import (
	"log"
	"sync"
	"sync/atomic"
)

// feed fans a single remote subscription out to any number of local
// subscribers. It attaches to the source when the first subscriber arrives and
// detaches, dropping its cached value, when the last one leaves.
//
// Source callbacks are serialized by handleMu. Every published value carries a
// sequence number so a subscriber never sees an older value after a newer one,
// even when its initial cached delivery races a fresh snapshot.
type feed[T any] struct {
	path   string
	attach func(onValue func(T), onError func(error)) (func(), error)
	clone  func(T) T

	handleMu sync.Mutex

	mu        sync.Mutex
	subs      map[uint64]*subscriber[T]
	nextID    uint64
	gen       uint64
	attaching bool
	cancel    func()
	value     T
	hasValue  bool
	seq       uint64
}

type subscriber[T any] struct {
	onData  func(T)
	onError func(error)
	active  atomic.Bool

	mu   sync.Mutex
	seen uint64
}

func newFeed[T any](path string, attach func(func(T), func(error)) (func(), error), clone func(T) T) *feed[T] {
	return &feed[T]{
		path:   path,
		attach: attach,
		clone:  clone,
		subs:   make(map[uint64]*subscriber[T]),
	}
}

// subscribe registers a subscriber. Cached data is delivered before it
// returns; otherwise the first snapshot is awaited. After the returned func is
// called no new callback is started for this subscriber.
func (f *feed[T]) subscribe(onData func(T), onError func(error)) func() {
	sub := &subscriber[T]{onData: onData, onError: onError}
	sub.active.Store(true)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	connect := f.cancel == nil && !f.attaching
	var gen uint64
	if connect {
		f.gen++
		gen = f.gen
		f.attaching = true
	}
	value, hasValue, seq := f.value, f.hasValue, f.seq
	f.mu.Unlock()

	if connect {
		f.connect(gen)
	} else if hasValue {
		sub.deliver(f.clone(value), seq)
	}

	var once sync.Once
	return func() {
		once.Do(func() { f.unsubscribe(id, sub) })
	}
}

func (f *feed[T]) connect(gen uint64) {
	log.Printf("[%s] Attaching remote subscription", f.path)
	cancel, err := f.attach(
		func(v T) { f.handleValue(gen, v) },
		func(err error) { f.handleError(gen, err) },
	)

	f.mu.Lock()
	if f.gen != gen {
		// Every subscriber left while we were attaching.
		f.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	f.attaching = false
	if err != nil {
		f.mu.Unlock()
		log.Printf("[%s] Failed to attach remote subscription: %v", f.path, err)
		f.handleError(gen, err)
		return
	}
	f.cancel = cancel
	f.mu.Unlock()
}

func (f *feed[T]) unsubscribe(id uint64, sub *subscriber[T]) {
	sub.active.Store(false)

	f.mu.Lock()
	if _, ok := f.subs[id]; !ok {
		f.mu.Unlock()
		return
	}
	delete(f.subs, id)
	var cancel func()
	if len(f.subs) == 0 {
		cancel = f.cancel
		f.cancel = nil
		f.attaching = false
		f.gen++
		var zero T
		f.value = zero
		f.hasValue = false
	}
	f.mu.Unlock()

	if cancel != nil {
		log.Printf("[%s] Last subscriber left, releasing remote subscription", f.path)
		cancel()
	}
}

func (f *feed[T]) handleValue(gen uint64, v T) {
	f.handleMu.Lock()
	defer f.handleMu.Unlock()

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.seq++
	seq := f.seq
	f.value = v
	f.hasValue = true
	subs := f.activeSubscribers()
	f.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(f.clone(v), seq)
	}
}

// handleError never touches the cached value.
func (f *feed[T]) handleError(gen uint64, err error) {
	serr := NewSubscriptionError(f.path, err)

	f.handleMu.Lock()
	defer f.handleMu.Unlock()

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	subs := f.activeSubscribers()
	f.mu.Unlock()

	log.Printf("[%s] %v", f.path, serr)
	for _, sub := range subs {
		sub.fail(serr)
	}
}

func (f *feed[T]) activeSubscribers() []*subscriber[T] {
	subs := make([]*subscriber[T], 0, len(f.subs))
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}
	return subs
}

func (f *feed[T]) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (s *subscriber[T]) deliver(v T, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() || seq <= s.seen {
		return
	}
	s.seen = seq
	if s.onData != nil {
		s.onData(v)
	}
}

func (s *subscriber[T]) fail(err *SubscriptionError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() || s.onError == nil {
		return
	}
	s.onError(err)
}
