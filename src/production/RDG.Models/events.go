package rdgmodels

import (
	"fmt"
	"time"
)

// ReadingEvent is the inbound payload consumed from the readings topic.
// Timestamp and Value are pointers so missing fields can be told apart from
// zero values during validation.
type ReadingEvent struct {
	Dataset   DatasetKey `json:"dataset"`
	Timestamp *time.Time `json:"timestamp"`
	Value     *float64   `json:"value"`
}

// Validate reports the first missing required field.
func (e *ReadingEvent) Validate() error {
	if e.Dataset.DeviceID == "" {
		return fmt.Errorf("missing dataset.deviceId")
	}
	if e.Dataset.Type == "" {
		return fmt.Errorf("missing dataset.metricType")
	}
	if e.Dataset.Label == "" {
		return fmt.Errorf("missing dataset.label")
	}
	if e.Timestamp == nil {
		return fmt.Errorf("missing timestamp")
	}
	if e.Value == nil {
		return fmt.Errorf("missing value")
	}
	return nil
}

// NotificationReading is the reading section of an outbound notification.
// It carries the resolved dataset alongside the sample.
type NotificationReading struct {
	Dataset   *Dataset  `json:"dataset"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ReadingNotification is published after a reading has been durably stored.
type ReadingNotification struct {
	Dataset *Dataset            `json:"dataset"`
	Reading NotificationReading `json:"reading"`
}
