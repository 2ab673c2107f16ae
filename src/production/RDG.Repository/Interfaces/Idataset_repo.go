package interfaces

import (
	"context"

	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
)

// DatasetRepository owns dataset identity rows. Lookups return (nil, nil)
// when no matching row exists.
type DatasetRepository interface {
	// FindByKey looks up a dataset matching all four key fields exactly,
	// including the unit.
	FindByKey(ctx context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error)

	// Upsert inserts a dataset for (deviceId, type, label) or, when that key
	// already exists, updates its unit and updated_at in place. The returned
	// dataset carries the surviving row's id and created_at.
	Upsert(ctx context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error)

	GetByDeviceAndID(ctx context.Context, deviceID, id string) (*rdgmodels.Dataset, error)
	ListByDevice(ctx context.Context, deviceID string) ([]rdgmodels.Dataset, error)

	// Update overwrites type/label/unit of the dataset owned by deviceID.
	Update(ctx context.Context, deviceID, id, datasetType, label, unit string) (*rdgmodels.Dataset, error)

	// Delete removes the dataset and, via the schema cascade, its readings.
	// Returns false when no row was deleted.
	Delete(ctx context.Context, deviceID, id string) (bool, error)
}
