package source

import (
	"context"
	"fmt"
	"log"
	"maps"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"seizowatch/internal/config"
	"seizowatch/internal/models"
)

const kafkaPollMs = 100

type kafkaConsumer interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	Poll(timeoutMs int) kafka.Event
	Assignment() ([]kafka.TopicPartition, error)
	Close() error
}

// Kafka materializes a compacted topic per path. Message key is the member
// id, value is the member JSON and a nil value is a tombstone. Each
// subscription reads the topic from the start with its own consumer group and
// never commits.
type Kafka struct {
	newConsumer func(group string) (kafkaConsumer, error)
	group       string
}

func NewKafka(cfg *config.Config) *Kafka {
	brokers := cfg.KafkaBrokers
	return &Kafka{
		group: cfg.ConsumerGroup,
		newConsumer: func(group string) (kafkaConsumer, error) {
			return kafka.NewConsumer(&kafka.ConfigMap{
				"bootstrap.servers":    brokers,
				"group.id":             group,
				"auto.offset.reset":    "earliest",
				"enable.auto.commit":   false,
				"enable.partition.eof": true,
			})
		},
	}
}

func (k *Kafka) SubscribeCollection(path string, onSnapshot func(models.CollectionSnapshot), onError func(error)) (func(), error) {
	members := make(map[string]models.RawRecord)
	emit := func() {
		if len(members) == 0 {
			onSnapshot(models.CollectionSnapshot{})
			return
		}
		onSnapshot(models.CollectionSnapshot{Exists: true, Value: maps.Clone(members)})
	}
	apply := func(msg *kafka.Message) error {
		key := string(msg.Key)
		if msg.Value == nil {
			delete(members, key)
			return nil
		}
		rec, deleted, err := DecodeMember(msg.Value)
		if err != nil {
			return fmt.Errorf("member %q: %w", key, err)
		}
		if deleted {
			delete(members, key)
		} else {
			members[key] = rec
		}
		return nil
	}
	return k.run(path, apply, emit, onError)
}

func (k *Kafka) SubscribeRecord(path string, onSnapshot func(models.RecordSnapshot), onError func(error)) (func(), error) {
	var current models.RecordSnapshot
	emit := func() {
		onSnapshot(current)
	}
	apply := func(msg *kafka.Message) error {
		if msg.Value == nil {
			current = models.RecordSnapshot{}
			return nil
		}
		snap, err := DecodeRecord(msg.Value)
		if err != nil {
			return err
		}
		current = snap
		return nil
	}
	return k.run(path, apply, emit, onError)
}

// run starts one consumer loop. Nothing is emitted until every assigned
// partition has reached its end once, so a subscriber never sees a
// half-replayed topic; after that every message produces a snapshot.
func (k *Kafka) run(topic string, apply func(*kafka.Message) error, emit func(), onError func(error)) (func(), error) {
	group := fmt.Sprintf("%s-%s-%d", k.group, topic, time.Now().UnixNano())
	consumer, err := k.newConsumer(group)
	if err != nil {
		return nil, refused(fmt.Errorf("create consumer for topic %s: %w", topic, err))
	}
	if err := consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		consumer.Close()
		return nil, refused(fmt.Errorf("subscribe to topic %s: %w", topic, err))
	}
	log.Printf("Consumer started for topic '%s' with group ID '%s'", topic, group)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer consumer.Close()
		caughtUp := false
		atEnd := make(map[int32]bool)
		for {
			select {
			case <-ctx.Done():
				log.Printf("Stopping consumer for topic: %s", topic)
				return
			default:
			}

			ev := consumer.Poll(kafkaPollMs)
			if ev == nil || ctx.Err() != nil {
				continue
			}
			switch e := ev.(type) {
			case *kafka.Message:
				if err := apply(e); err != nil {
					onError(describe(err))
					continue
				}
				if caughtUp {
					emit()
				}
			case kafka.PartitionEOF:
				if caughtUp {
					continue
				}
				atEnd[e.Partition] = true
				if replayed(consumer, atEnd, topic) {
					caughtUp = true
					emit()
				}
			case kafka.Error:
				log.Printf("Kafka error on topic %s: %v", topic, e)
				onError(describe(e))
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// replayed reports whether every partition currently assigned to the consumer
// has reached its end.
func replayed(consumer kafkaConsumer, atEnd map[int32]bool, topic string) bool {
	assigned, err := consumer.Assignment()
	if err != nil {
		log.Printf("Could not read partition assignment for topic %s: %v", topic, err)
		return false
	}
	if len(assigned) == 0 {
		return false
	}
	for _, tp := range assigned {
		if !atEnd[tp.Partition] {
			return false
		}
	}
	return true
}
