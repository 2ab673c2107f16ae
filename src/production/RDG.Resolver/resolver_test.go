package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
	resolver "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Resolver"
)

type fakeDatasetRepo struct {
	existing *rdgmodels.Dataset
	findErr  error

	upsertCalls  int
	upsertResult *rdgmodels.Dataset
	upsertErr    error
}

func (f *fakeDatasetRepo) FindByKey(_ context.Context, _ rdgmodels.DatasetKey) (*rdgmodels.Dataset, error) {
	return f.existing, f.findErr
}

func (f *fakeDatasetRepo) Upsert(_ context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error) {
	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.upsertResult != nil {
		return f.upsertResult, nil
	}
	return &rdgmodels.Dataset{
		ID:       "new-id",
		DeviceID: key.DeviceID,
		Type:     key.Type,
		Label:    key.Label,
		Unit:     key.Unit,
	}, nil
}

func (f *fakeDatasetRepo) GetByDeviceAndID(_ context.Context, _, _ string) (*rdgmodels.Dataset, error) {
	return nil, nil
}

func (f *fakeDatasetRepo) ListByDevice(_ context.Context, _ string) ([]rdgmodels.Dataset, error) {
	return nil, nil
}

func (f *fakeDatasetRepo) Update(_ context.Context, _, _, _, _, _ string) (*rdgmodels.Dataset, error) {
	return nil, nil
}

func (f *fakeDatasetRepo) Delete(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func testKey() rdgmodels.DatasetKey {
	return rdgmodels.DatasetKey{
		DeviceID: "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		Type:     "temperature",
		Label:    "loft",
		Unit:     "degreesC",
	}
}

func TestResolve_ExactMatchDoesNotWrite(t *testing.T) {
	existing := &rdgmodels.Dataset{
		ID:        "existing-id",
		DeviceID:  testKey().DeviceID,
		Type:      "temperature",
		Label:     "loft",
		Unit:      "degreesC",
		CreatedAt: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	repo := &fakeDatasetRepo{existing: existing}
	r := resolver.New(repo)

	ds, err := r.Resolve(context.Background(), testKey())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ds != existing {
		t.Errorf("expected the existing dataset to be returned unchanged")
	}
	if repo.upsertCalls != 0 {
		t.Errorf("expected 0 upsert calls on exact match, got %d", repo.upsertCalls)
	}
}

func TestResolve_MissGoesThroughUpsert(t *testing.T) {
	repo := &fakeDatasetRepo{}
	r := resolver.New(repo)

	ds, err := r.Resolve(context.Background(), testKey())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ds.ID != "new-id" {
		t.Errorf("expected upserted dataset, got id %q", ds.ID)
	}
	if repo.upsertCalls != 1 {
		t.Errorf("expected exactly 1 upsert call, got %d", repo.upsertCalls)
	}
}

func TestResolve_FindErrorPropagates(t *testing.T) {
	repo := &fakeDatasetRepo{findErr: errors.New("connection refused")}
	r := resolver.New(repo)

	if _, err := r.Resolve(context.Background(), testKey()); err == nil {
		t.Fatal("expected error from failed lookup")
	}
	if repo.upsertCalls != 0 {
		t.Errorf("expected no upsert after failed lookup, got %d calls", repo.upsertCalls)
	}
}

func TestResolve_UpsertErrorPropagates(t *testing.T) {
	repo := &fakeDatasetRepo{upsertErr: errors.New("unique violation on id")}
	r := resolver.New(repo)

	if _, err := r.Resolve(context.Background(), testKey()); err == nil {
		t.Fatal("expected error from failed upsert")
	}
}
