package source

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"seizowatch/internal/config"
	"seizowatch/internal/models"
)

const (
	mqttQoS            = 1
	mqttSubscribeWait  = 10 * time.Second
	mqttDisconnectWait = 250
)

var ErrConnectionLost = errors.New("connection to broker lost")

// MQTT reads retained full-snapshot messages, one topic per path.
type MQTT struct {
	client mqtt.Client
	prefix string

	mu     sync.Mutex
	topics map[string]*mqttTopic
	nextID int
}

type mqttTopic struct {
	subs        map[int]*mqttSub
	lastPayload []byte
	seen        bool
}

type mqttSub struct {
	deliver func([]byte)
	onError func(error)
}

// DialMQTT connects to the configured broker. Subscriptions survive reconnects.
func DialMQTT(cfg *config.Config) (*MQTT, error) {
	m := newMQTT(nil, cfg.MQTTTopicPrefix)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetAutoReconnect(true)
	opts.OnConnect = m.onConnect
	opts.OnConnectionLost = m.onConnectionLost

	client := mqtt.NewClient(opts)
	m.client = client
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return m, nil
}

func newMQTT(client mqtt.Client, prefix string) *MQTT {
	return &MQTT{
		client: client,
		prefix: prefix,
		topics: make(map[string]*mqttTopic),
	}
}

func (m *MQTT) Topic(path string) string {
	if m.prefix == "" {
		return path
	}
	return m.prefix + "/" + path
}

func (m *MQTT) SubscribeCollection(path string, onSnapshot func(models.CollectionSnapshot), onError func(error)) (func(), error) {
	return m.subscribe(path, func(payload []byte) {
		snap, err := DecodeCollection(payload)
		if err != nil {
			onError(describe(err))
			return
		}
		onSnapshot(snap)
	}, onError)
}

func (m *MQTT) SubscribeRecord(path string, onSnapshot func(models.RecordSnapshot), onError func(error)) (func(), error) {
	return m.subscribe(path, func(payload []byte) {
		snap, err := DecodeRecord(payload)
		if err != nil {
			onError(describe(err))
			return
		}
		onSnapshot(snap)
	}, onError)
}

func (m *MQTT) subscribe(path string, deliver func([]byte), onError func(error)) (func(), error) {
	topic := m.Topic(path)
	sub := &mqttSub{deliver: deliver, onError: onError}

	m.mu.Lock()
	t, exists := m.topics[topic]
	if !exists {
		t = &mqttTopic{subs: make(map[int]*mqttSub)}
		m.topics[topic] = t
	}
	id := m.nextID
	m.nextID++
	t.subs[id] = sub
	cached, seen := t.lastPayload, t.seen
	m.mu.Unlock()

	if !exists {
		token := m.client.Subscribe(topic, mqttQoS, m.handleMessage)
		if !token.WaitTimeout(mqttSubscribeWait) {
			m.remove(topic, id)
			return nil, refused(fmt.Errorf("subscribe to %s timed out", topic))
		}
		if err := token.Error(); err != nil {
			m.remove(topic, id)
			return nil, refused(fmt.Errorf("subscribe to %s: %w", topic, err))
		}
		log.Printf("Subscribed to topic: %s", topic)
	} else if seen {
		deliver(cached)
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.remove(topic, id) })
	}, nil
}

// remove drops one subscriber and releases the broker subscription when it
// was the last one. It never waits on the broker; cancel may run inside a
// message handler.
func (m *MQTT) remove(topic string, id int) {
	m.mu.Lock()
	t, ok := m.topics[topic]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(t.subs, id)
	last := len(t.subs) == 0
	if last {
		delete(m.topics, topic)
	}
	m.mu.Unlock()

	if last {
		m.client.Unsubscribe(topic)
		log.Printf("Unsubscribed from topic: %s", topic)
	}
}

func (m *MQTT) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()

	m.mu.Lock()
	t, ok := m.topics[msg.Topic()]
	if !ok {
		m.mu.Unlock()
		return
	}
	t.lastPayload = append([]byte(nil), payload...)
	t.seen = true
	subs := make([]*mqttSub, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.deliver(payload)
	}
}

// onConnect restores every topic after a (re)connect; the broker resends the
// retained snapshots.
func (m *MQTT) onConnect(client mqtt.Client) {
	log.Println("Connected to MQTT broker")
	m.mu.Lock()
	topics := make([]string, 0, len(m.topics))
	for topic := range m.topics {
		topics = append(topics, topic)
	}
	m.mu.Unlock()

	for _, topic := range topics {
		client.Subscribe(topic, mqttQoS, m.handleMessage)
		log.Printf("Resubscribed to topic: %s", topic)
	}
}

func (m *MQTT) onConnectionLost(_ mqtt.Client, err error) {
	log.Printf("Connection lost: %v", err)
	if err == nil {
		err = ErrConnectionLost
	} else {
		err = fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	m.mu.Lock()
	var subs []*mqttSub
	for _, t := range m.topics {
		for _, s := range t.subs {
			subs = append(subs, s)
		}
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.onError(describe(err))
	}
}

func (m *MQTT) Close() {
	m.client.Disconnect(mqttDisconnectWait)
}
