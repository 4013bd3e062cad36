package source

import (
	"maps"
	"sync"

	"seizowatch/internal/models"
)

// Memory is an in-process push store. It delivers the current value of a path
// synchronously on subscribe (when the path has ever been written) and a full
// snapshot on every later change.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]models.RawRecord
	records     map[string]models.RawRecord
	known       map[string]bool
	subs        map[string]map[int]*memorySub
	nextID      int
	attachErr   map[string]error
	attaches    map[string]int
}

type memorySub struct {
	onCollection func(models.CollectionSnapshot)
	onRecord     func(models.RecordSnapshot)
	onError      func(error)
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]models.RawRecord),
		records:     make(map[string]models.RawRecord),
		known:       make(map[string]bool),
		subs:        make(map[string]map[int]*memorySub),
		attachErr:   make(map[string]error),
		attaches:    make(map[string]int),
	}
}

func (m *Memory) SubscribeCollection(path string, onSnapshot func(models.CollectionSnapshot), onError func(error)) (func(), error) {
	return m.subscribe(path, &memorySub{onCollection: onSnapshot, onError: onError})
}

func (m *Memory) SubscribeRecord(path string, onSnapshot func(models.RecordSnapshot), onError func(error)) (func(), error) {
	return m.subscribe(path, &memorySub{onRecord: onSnapshot, onError: onError})
}

func (m *Memory) subscribe(path string, sub *memorySub) (func(), error) {
	m.mu.Lock()
	if err := m.attachErr[path]; err != nil {
		delete(m.attachErr, path)
		m.mu.Unlock()
		return nil, err
	}
	if m.subs[path] == nil {
		m.subs[path] = make(map[int]*memorySub)
	}
	id := m.nextID
	m.nextID++
	m.subs[path][id] = sub
	m.attaches[path]++
	known := m.known[path]
	coll, rec := m.collectionLocked(path), m.recordLocked(path)
	m.mu.Unlock()

	if known {
		sub.push(coll, rec)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[path], id)
			m.mu.Unlock()
		})
	}, nil
}

// SetCollection replaces the whole collection; nil removes it.
func (m *Memory) SetCollection(path string, value map[string]models.RawRecord) {
	m.mu.Lock()
	if value == nil {
		delete(m.collections, path)
	} else {
		m.collections[path] = maps.Clone(value)
	}
	m.known[path] = true
	m.mu.Unlock()
	m.notify(path)
}

// Put adds or replaces one member of a collection.
func (m *Memory) Put(path, key string, rec models.RawRecord) {
	m.mu.Lock()
	if m.collections[path] == nil {
		m.collections[path] = make(map[string]models.RawRecord)
	}
	m.collections[path][key] = rec
	m.known[path] = true
	m.mu.Unlock()
	m.notify(path)
}

// Delete removes one member of a collection.
func (m *Memory) Delete(path, key string) {
	m.mu.Lock()
	delete(m.collections[path], key)
	m.known[path] = true
	m.mu.Unlock()
	m.notify(path)
}

// SetRecord replaces a single record; nil removes it.
func (m *Memory) SetRecord(path string, rec models.RawRecord) {
	m.mu.Lock()
	if rec == nil {
		delete(m.records, path)
	} else {
		m.records[path] = maps.Clone(rec)
	}
	m.known[path] = true
	m.mu.Unlock()
	m.notify(path)
}

// Fail reports err to every live subscription of path.
func (m *Memory) Fail(path string, err error) {
	for _, sub := range m.subscribers(path) {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

// FailNextSubscribe makes the next subscribe call on path return err.
func (m *Memory) FailNextSubscribe(path string, err error) {
	m.mu.Lock()
	m.attachErr[path] = err
	m.mu.Unlock()
}

// Active returns the number of live remote subscriptions on path.
func (m *Memory) Active(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[path])
}

// Attaches returns how many subscriptions were ever opened on path.
func (m *Memory) Attaches(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attaches[path]
}

func (m *Memory) notify(path string) {
	m.mu.Lock()
	coll, rec := m.collectionLocked(path), m.recordLocked(path)
	m.mu.Unlock()
	for _, sub := range m.subscribers(path) {
		sub.push(coll, rec)
	}
}

func (m *Memory) subscribers(path string) []*memorySub {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]*memorySub, 0, len(m.subs[path]))
	for _, sub := range m.subs[path] {
		subs = append(subs, sub)
	}
	return subs
}

func (m *Memory) collectionLocked(path string) models.CollectionSnapshot {
	value := m.collections[path]
	if len(value) == 0 {
		return models.CollectionSnapshot{}
	}
	return models.CollectionSnapshot{Exists: true, Value: maps.Clone(value)}
}

func (m *Memory) recordLocked(path string) models.RecordSnapshot {
	rec, ok := m.records[path]
	if !ok {
		return models.RecordSnapshot{}
	}
	return models.RecordSnapshot{Exists: true, Value: maps.Clone(rec)}
}

func (s *memorySub) push(coll models.CollectionSnapshot, rec models.RecordSnapshot) {
	if s.onCollection != nil {
		s.onCollection(coll)
	}
	if s.onRecord != nil {
		s.onRecord(rec)
	}
}
