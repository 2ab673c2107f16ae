package rdgmodels

import "time"

// DatasetKey is the inbound identity tuple for a dataset. (DeviceID, Type,
// Label) is the unique key; Unit is mutable and rides along so the resolver
// can detect unit changes.
type DatasetKey struct {
	DeviceID string `json:"deviceId"`
	Type     string `json:"metricType"`
	Label    string `json:"label"`
	Unit     string `json:"unit"`
}

// Dataset is the identity record for one (device, metric type, label)
// combination. ReadingCount is denormalized and maintained in the same
// transaction as every reading insert.
type Dataset struct {
	ID           string    `json:"id" db:"id"`
	DeviceID     string    `json:"deviceId" db:"device_id"`
	Type         string    `json:"metricType" db:"type"`
	Label        string    `json:"label" db:"label"`
	Unit         string    `json:"unit" db:"unit"`
	ReadingCount int64     `json:"readingCount" db:"reading_count"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Key returns the identity tuple of the dataset.
func (d *Dataset) Key() DatasetKey {
	return DatasetKey{
		DeviceID: d.DeviceID,
		Type:     d.Type,
		Label:    d.Label,
		Unit:     d.Unit,
	}
}
