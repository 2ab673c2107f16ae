package rdgingestor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	config "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Config"
	logger "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Logger"
	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
	interfaces "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Interfaces"
)

type fakeResolver struct {
	dataset *rdgmodels.Dataset
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.dataset != nil {
		return f.dataset, nil
	}
	return &rdgmodels.Dataset{
		ID:       "41b06f4f-3668-42a5-9761-a359d24ba4c3",
		DeviceID: key.DeviceID,
		Type:     key.Type,
		Label:    key.Label,
		Unit:     key.Unit,
	}, nil
}

type addCall struct {
	datasetID string
	timestamp time.Time
	value     float64
}

type fakeReadingRepo struct {
	addErr error
	added  []addCall
}

func (f *fakeReadingRepo) AddReading(_ context.Context, datasetID string, timestamp time.Time, value float64) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, addCall{datasetID, timestamp, value})
	return nil
}

func (f *fakeReadingRepo) GetReadings(_ context.Context, _ string, _ interfaces.ReadingQueryParams) ([]rdgmodels.Reading, error) {
	return nil, nil
}

func (f *fakeReadingRepo) CountReadings(_ context.Context, _ string, _, _ *time.Time) (int64, error) {
	return 0, nil
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	err      error
	messages []published
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic, payload})
	return nil
}

type archivedCall struct {
	topic   string
	payload string
}

type fakeArchive struct {
	err    error
	events []archivedCall
}

func (f *fakeArchive) ArchiveEvent(_ context.Context, topic string, payload []byte, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, archivedCall{topic, string(payload)})
	return nil
}

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		ReadingsTopic:      "readings/#",
		NotificationsTopic: "reading-notifications",
		ClientID:           "test-ingestor",
	}
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "json"})
}

func newTestIngestor(res DatasetResolver, repo interfaces.ReadingRepository, archive interfaces.EventArchive, pub Publisher) *Ingestor {
	i := New(testMQTTConfig(), res, repo, archive, testLogger())
	i.pub = pub
	return i
}

func eventPayload(deviceID string, ts time.Time, value float64) []byte {
	payload := fmt.Sprintf(
		`{"dataset":{"deviceId":%q,"metricType":"temperature","label":"loft","unit":"degreesC"},"timestamp":%q,"value":%g}`,
		deviceID, ts.Format(time.RFC3339Nano), value)
	return []byte(payload)
}

func TestHandleEvent_StoresAndNotifies(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{}
	pub := &fakePublisher{}
	ing := newTestIngestor(res, repo, nil, pub)

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	deviceID := "f47ac10b-58cc-4372-a567-0e02b2c3d479"

	ing.handleEvent(context.Background(), inboundMessage{
		topic:      "readings/" + deviceID,
		payload:    eventPayload(deviceID, ts, 42),
		receivedAt: time.Now().UTC(),
	})

	if len(repo.added) != 1 {
		t.Fatalf("expected 1 stored reading, got %d", len(repo.added))
	}
	if !repo.added[0].timestamp.Equal(ts) || repo.added[0].value != 42 {
		t.Errorf("stored reading mismatch: %+v", repo.added[0])
	}

	if len(pub.messages) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(pub.messages))
	}
	wantTopic := "reading-notifications/41b06f4f-3668-42a5-9761-a359d24ba4c3"
	if pub.messages[0].topic != wantTopic {
		t.Errorf("notification topic = %q, want %q", pub.messages[0].topic, wantTopic)
	}

	var notification rdgmodels.ReadingNotification
	if err := json.Unmarshal(pub.messages[0].payload, &notification); err != nil {
		t.Fatalf("unmarshal notification: %v", err)
	}
	if notification.Dataset == nil || notification.Dataset.DeviceID != deviceID {
		t.Errorf("notification dataset missing or wrong device: %+v", notification.Dataset)
	}
	if notification.Reading.Dataset == nil || notification.Reading.Dataset.ID != notification.Dataset.ID {
		t.Errorf("notification reading should embed the resolved dataset")
	}
	if !notification.Reading.Timestamp.Equal(ts) || notification.Reading.Value != 42 {
		t.Errorf("notification reading mismatch: %+v", notification.Reading)
	}
}

func TestHandleEvent_MalformedPayloadDropped(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{}
	pub := &fakePublisher{}
	ing := newTestIngestor(res, repo, nil, pub)

	ing.handleEvent(context.Background(), inboundMessage{
		topic:   "readings/x",
		payload: []byte("not json"),
	})

	if res.calls != 0 {
		t.Errorf("expected no resolve for malformed payload, got %d calls", res.calls)
	}
	if len(repo.added) != 0 || len(pub.messages) != 0 {
		t.Errorf("malformed payload must not store or notify")
	}
}

func TestHandleEvent_MissingFieldsDropped(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{}
	pub := &fakePublisher{}
	ing := newTestIngestor(res, repo, nil, pub)

	// Valid JSON but no value field.
	payload := []byte(`{"dataset":{"deviceId":"a","metricType":"t","label":"l","unit":""},"timestamp":"2024-06-01T12:00:00Z"}`)
	ing.handleEvent(context.Background(), inboundMessage{topic: "readings/a", payload: payload})

	if res.calls != 0 || len(repo.added) != 0 || len(pub.messages) != 0 {
		t.Errorf("incomplete event must be dropped before resolution")
	}
}

func TestHandleEvent_StoreFailureSuppressesNotification(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{addErr: errors.New("connection reset")}
	pub := &fakePublisher{}
	ing := newTestIngestor(res, repo, nil, pub)

	ing.handleEvent(context.Background(), inboundMessage{
		topic:   "readings/x",
		payload: eventPayload("f47ac10b-58cc-4372-a567-0e02b2c3d479", time.Now().UTC(), 1),
	})

	if len(pub.messages) != 0 {
		t.Errorf("no notification may be published when the store write fails")
	}
}

func TestHandleEvent_DuplicateReadingSuppressesNotification(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{addErr: fmt.Errorf("insert reading: %w", interfaces.ErrDuplicateReading)}
	pub := &fakePublisher{}
	ing := newTestIngestor(res, repo, nil, pub)

	ing.handleEvent(context.Background(), inboundMessage{
		topic:   "readings/x",
		payload: eventPayload("f47ac10b-58cc-4372-a567-0e02b2c3d479", time.Now().UTC(), 1),
	})

	if len(pub.messages) != 0 {
		t.Errorf("rejected duplicate must not be notified")
	}
}

func TestHandleEvent_PublishFailureKeepsReading(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{}
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	ing := newTestIngestor(res, repo, nil, pub)

	ing.handleEvent(context.Background(), inboundMessage{
		topic:   "readings/x",
		payload: eventPayload("f47ac10b-58cc-4372-a567-0e02b2c3d479", time.Now().UTC(), 7),
	})

	if len(repo.added) != 1 {
		t.Errorf("reading must stay stored when the publish fails, got %d stored", len(repo.added))
	}
}

func TestHandleEvent_ArchivesEvenMalformedEvents(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{}
	pub := &fakePublisher{}
	archive := &fakeArchive{}
	ing := newTestIngestor(res, repo, archive, pub)

	ing.handleEvent(context.Background(), inboundMessage{
		topic:   "readings/x",
		payload: []byte("garbage"),
	})

	if len(archive.events) != 1 {
		t.Fatalf("expected the raw payload archived, got %d events", len(archive.events))
	}
	if archive.events[0].payload != "garbage" {
		t.Errorf("archive must keep the payload verbatim, got %q", archive.events[0].payload)
	}
}

func TestHandleEvent_ArchiveFailureDoesNotBlockIngest(t *testing.T) {
	res := &fakeResolver{}
	repo := &fakeReadingRepo{}
	pub := &fakePublisher{}
	archive := &fakeArchive{err: errors.New("mongo down")}
	ing := newTestIngestor(res, repo, archive, pub)

	ing.handleEvent(context.Background(), inboundMessage{
		topic:   "readings/x",
		payload: eventPayload("f47ac10b-58cc-4372-a567-0e02b2c3d479", time.Now().UTC(), 3),
	})

	if len(repo.added) != 1 || len(pub.messages) != 1 {
		t.Errorf("archive failure must not interfere with store and notify")
	}
}
