package rdgmodels

import "time"

// Reading is one timestamped numeric sample belonging to a dataset.
// (DatasetID, Timestamp) is the composite primary key; a second reading at
// the same instant for the same dataset is rejected by the store.
type Reading struct {
	DatasetID string    `json:"-" db:"dataset_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Value     float64   `json:"value" db:"value"`
}
