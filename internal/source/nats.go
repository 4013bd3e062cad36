package source

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"seizowatch/internal/config"
	"seizowatch/internal/models"
)

const natsSnapshotTimeout = 2 * time.Second

type natsConn interface {
	subscribe(subject string, cb nats.MsgHandler) (unsubscribe func() error, err error)
	request(subject string, timeout time.Duration) ([]byte, error)
}

type natsClient struct {
	nc *nats.Conn
}

func (c natsClient) subscribe(subject string, cb nats.MsgHandler) (func() error, error) {
	sub, err := c.nc.Subscribe(subject, cb)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

func (c natsClient) request(subject string, timeout time.Duration) ([]byte, error) {
	msg, err := c.nc.Request(subject, nil, timeout)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// NATS reads full snapshots published on <prefix>.<path>. A fresh subscriber
// asks for the current value on <subject>.current; producers that keep state
// answer it, others are simply waited on.
type NATS struct {
	conn   natsConn
	close  func()
	prefix string

	mu     sync.Mutex
	subs   map[int]*natsSub
	nextID int
}

type natsSub struct {
	subject string
	onError func(error)
	closed  *atomic.Bool
}

func DialNATS(cfg *config.Config) (*NATS, error) {
	n := newNATS(nil, cfg.NATSSubjectPrefix)
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("seizowatch"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			n.onDisconnect(err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			n.onAsyncError(sub, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	n.conn = natsClient{nc: nc}
	n.close = nc.Close
	return n, nil
}

func newNATS(conn natsConn, prefix string) *NATS {
	return &NATS{conn: conn, prefix: prefix, subs: make(map[int]*natsSub)}
}

func (n *NATS) Subject(path string) string {
	if n.prefix == "" {
		return path
	}
	return n.prefix + "." + path
}

func (n *NATS) SubscribeCollection(path string, onSnapshot func(models.CollectionSnapshot), onError func(error)) (func(), error) {
	return n.subscribe(path, func(payload []byte) {
		snap, err := DecodeCollection(payload)
		if err != nil {
			onError(describe(err))
			return
		}
		onSnapshot(snap)
	}, onError)
}

func (n *NATS) SubscribeRecord(path string, onSnapshot func(models.RecordSnapshot), onError func(error)) (func(), error) {
	return n.subscribe(path, func(payload []byte) {
		snap, err := DecodeRecord(payload)
		if err != nil {
			onError(describe(err))
			return
		}
		onSnapshot(snap)
	}, onError)
}

func (n *NATS) subscribe(path string, deliver func([]byte), onError func(error)) (func(), error) {
	subject := n.Subject(path)

	// Live messages and the initial reply are serialized; a reply that loses
	// the race to a live message is dropped.
	var deliverMu sync.Mutex
	var live atomic.Bool
	closed := new(atomic.Bool)

	unsubscribe, err := n.conn.subscribe(subject, func(msg *nats.Msg) {
		deliverMu.Lock()
		defer deliverMu.Unlock()
		if closed.Load() {
			return
		}
		live.Store(true)
		deliver(msg.Data)
	})
	if err != nil {
		return nil, refused(err)
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = &natsSub{subject: subject, onError: onError, closed: closed}
	n.mu.Unlock()

	go func() {
		data, err := n.conn.request(subject+".current", natsSnapshotTimeout)
		if err != nil {
			if !errors.Is(err, nats.ErrNoResponders) && !errors.Is(err, nats.ErrTimeout) {
				log.Printf("NATS snapshot request on %s failed: %v", subject, err)
			}
			return
		}
		deliverMu.Lock()
		defer deliverMu.Unlock()
		if !live.Load() && !closed.Load() {
			deliver(data)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			closed.Store(true)
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			if err := unsubscribe(); err != nil {
				log.Printf("NATS unsubscribe from %s: %v", subject, err)
			}
		})
	}, nil
}

// onDisconnect reports a lost server connection to every subscription. The
// client reconnects on its own and live messages resume afterwards. A nil
// error is a deliberate close and is not reported.
func (n *NATS) onDisconnect(err error) {
	if err == nil {
		return
	}
	log.Printf("NATS disconnected: %v", err)
	n.notify("", fmt.Errorf("%w: %v", ErrConnectionLost, err))
}

// onAsyncError reports errors the client raises outside a call, such as a
// slow consumer, to the subscriptions on the affected subject.
func (n *NATS) onAsyncError(sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	log.Printf("NATS async error on %q: %v", subject, err)
	n.notify(subject, err)
}

// notify calls onError of the live subscriptions on subject, or of all of
// them when subject is empty.
func (n *NATS) notify(subject string, err error) {
	n.mu.Lock()
	var targets []*natsSub
	for _, s := range n.subs {
		if subject == "" || s.subject == subject {
			targets = append(targets, s)
		}
	}
	n.mu.Unlock()

	for _, s := range targets {
		if !s.closed.Load() {
			s.onError(describe(err))
		}
	}
}

func (n *NATS) Close() {
	if n.close != nil {
		n.close()
	}
}
