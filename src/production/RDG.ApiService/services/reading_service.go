// Package services implements the query engine over datasets and readings.
// Every dataset-scoped operation verifies that the dataset belongs to the
// requesting device before touching readings.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
	interfaces "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Interfaces"
)

// ErrDatasetNotFound is returned when a dataset does not exist or belongs to
// a different device. Callers map it to a 404.
var ErrDatasetNotFound = errors.New("dataset not found")

type ReadingService struct {
	datasets interfaces.DatasetRepository
	readings interfaces.ReadingRepository
}

func NewReadingService(datasets interfaces.DatasetRepository, readings interfaces.ReadingRepository) *ReadingService {
	return &ReadingService{datasets: datasets, readings: readings}
}

func (s *ReadingService) GetDataset(ctx context.Context, deviceID, id string) (*rdgmodels.Dataset, error) {
	ds, err := s.datasets.GetByDeviceAndID(ctx, deviceID, id)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if ds == nil {
		return nil, ErrDatasetNotFound
	}
	return ds, nil
}

func (s *ReadingService) ListDatasets(ctx context.Context, deviceID string) ([]rdgmodels.Dataset, error) {
	datasets, err := s.datasets.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	if datasets == nil {
		datasets = []rdgmodels.Dataset{}
	}
	return datasets, nil
}

func (s *ReadingService) PutDataset(ctx context.Context, deviceID, id, datasetType, label, unit string) (*rdgmodels.Dataset, error) {
	existing, err := s.datasets.GetByDeviceAndID(ctx, deviceID, id)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if existing == nil {
		return nil, ErrDatasetNotFound
	}

	updated, err := s.datasets.Update(ctx, deviceID, id, datasetType, label, unit)
	if err != nil {
		return nil, fmt.Errorf("update dataset: %w", err)
	}
	if updated == nil {
		// Deleted between the lookup and the update.
		return nil, ErrDatasetNotFound
	}
	return updated, nil
}

func (s *ReadingService) RemoveDataset(ctx context.Context, deviceID, id string) error {
	existing, err := s.datasets.GetByDeviceAndID(ctx, deviceID, id)
	if err != nil {
		return fmt.Errorf("get dataset: %w", err)
	}
	if existing == nil {
		return ErrDatasetNotFound
	}

	if _, err := s.datasets.Delete(ctx, deviceID, id); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return nil
}

func (s *ReadingService) GetReadings(ctx context.Context, deviceID, id string, params interfaces.ReadingQueryParams) ([]rdgmodels.Reading, error) {
	ds, err := s.datasets.GetByDeviceAndID(ctx, deviceID, id)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if ds == nil {
		return nil, ErrDatasetNotFound
	}

	readings, err := s.readings.GetReadings(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("get readings: %w", err)
	}
	if readings == nil {
		readings = []rdgmodels.Reading{}
	}
	return readings, nil
}

func (s *ReadingService) GetReadingsCount(ctx context.Context, deviceID, id string, from, to *time.Time) (int64, error) {
	ds, err := s.datasets.GetByDeviceAndID(ctx, deviceID, id)
	if err != nil {
		return 0, fmt.Errorf("get dataset: %w", err)
	}
	if ds == nil {
		return 0, ErrDatasetNotFound
	}

	count, err := s.readings.CountReadings(ctx, id, from, to)
	if err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}
