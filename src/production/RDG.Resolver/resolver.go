// Package resolver maps an inbound dataset identity tuple to a persisted
// dataset, creating or updating it as needed.
package resolver

import (
	"context"
	"fmt"

	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
	interfaces "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Interfaces"
)

type Resolver struct {
	datasets interfaces.DatasetRepository
}

func New(datasets interfaces.DatasetRepository) *Resolver {
	return &Resolver{datasets: datasets}
}

// Resolve returns the dataset owning the given key. An exact four-field
// match returns the existing row without writing. Anything else goes through
// the conflict-aware upsert: a new row when the (device, type, label) key is
// unseen, a unit update in place when only the unit differs. Either way id
// and created_at are preserved for an existing identity.
func (r *Resolver) Resolve(ctx context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error) {
	ds, err := r.datasets.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find dataset: %w", err)
	}
	if ds != nil {
		return ds, nil
	}

	ds, err = r.datasets.Upsert(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("upsert dataset: %w", err)
	}
	return ds, nil
}
