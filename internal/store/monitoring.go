package store

import (
	"seizowatch/internal/models"
	"seizowatch/internal/normalizer"
)

// MonitoringStore republishes the single "current state" record. A nil sample
// means the record does not exist.
type MonitoringStore struct {
	path string
	feed *feed[*models.MonitoringSample]
}

func NewMonitoringStore(src Source, path string, norm *normalizer.Normalizer) *MonitoringStore {
	if norm == nil {
		norm = normalizer.New(false)
	}
	attach := func(onValue func(*models.MonitoringSample), onError func(error)) (func(), error) {
		return src.SubscribeRecord(path,
			func(snap models.RecordSnapshot) { onValue(SampleFromSnapshot(snap, norm)) },
			onError,
		)
	}
	return &MonitoringStore{
		path: path,
		feed: newFeed(path, attach, cloneSample),
	}
}

func (s *MonitoringStore) Path() string { return s.path }

func (s *MonitoringStore) Subscribe(onData func(*models.MonitoringSample), onError func(error)) (unsubscribe func()) {
	return s.feed.subscribe(onData, onError)
}

func (s *MonitoringStore) Subscribers() int {
	return s.feed.subscriberCount()
}

func SampleFromSnapshot(snap models.RecordSnapshot, norm *normalizer.Normalizer) *models.MonitoringSample {
	if !snap.Exists {
		return nil
	}
	sample := norm.Sample(snap.Value)
	return &sample
}

func cloneSample(s *models.MonitoringSample) *models.MonitoringSample {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
