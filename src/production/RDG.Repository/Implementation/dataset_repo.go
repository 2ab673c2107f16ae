package implementation

import (
	"context"
	"database/sql"

	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
)

type PostgresDatasetRepository struct {
	db *sql.DB
}

func NewPostgresDatasetRepository(db *sql.DB) *PostgresDatasetRepository {
	return &PostgresDatasetRepository{db: db}
}

func (r *PostgresDatasetRepository) FindByKey(ctx context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error) {
	query := `
		SELECT id, device_id, type, label, unit, reading_count, created_at, updated_at
		FROM datasets
		WHERE device_id = $1 AND type = $2 AND label = $3 AND unit = $4
	`

	var ds rdgmodels.Dataset
	err := r.db.QueryRowContext(ctx, query, key.DeviceID, key.Type, key.Label, key.Unit).
		Scan(&ds.ID, &ds.DeviceID, &ds.Type, &ds.Label, &ds.Unit, &ds.ReadingCount, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &ds, nil
}

func (r *PostgresDatasetRepository) Upsert(ctx context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error) {
	// The unique constraint on (device_id, type, label) guarantees at most
	// one row survives a concurrent create; the loser's insert is converted
	// into a unit update on the existing row.
	query := `
		INSERT INTO datasets (device_id, type, label, unit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id, type, label)
		DO UPDATE SET unit = EXCLUDED.unit, updated_at = now()
		RETURNING id, reading_count, created_at, updated_at
	`

	ds := rdgmodels.Dataset{
		DeviceID: key.DeviceID,
		Type:     key.Type,
		Label:    key.Label,
		Unit:     key.Unit,
	}
	err := r.db.QueryRowContext(ctx, query, key.DeviceID, key.Type, key.Label, key.Unit).
		Scan(&ds.ID, &ds.ReadingCount, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &ds, nil
}

func (r *PostgresDatasetRepository) GetByDeviceAndID(ctx context.Context, deviceID, id string) (*rdgmodels.Dataset, error) {
	query := `
		SELECT id, device_id, type, label, unit, reading_count, created_at, updated_at
		FROM datasets
		WHERE device_id = $1 AND id = $2
	`

	var ds rdgmodels.Dataset
	err := r.db.QueryRowContext(ctx, query, deviceID, id).
		Scan(&ds.ID, &ds.DeviceID, &ds.Type, &ds.Label, &ds.Unit, &ds.ReadingCount, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &ds, nil
}

func (r *PostgresDatasetRepository) ListByDevice(ctx context.Context, deviceID string) ([]rdgmodels.Dataset, error) {
	query := `
		SELECT id, device_id, type, label, unit, reading_count, created_at, updated_at
		FROM datasets
		WHERE device_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []rdgmodels.Dataset
	for rows.Next() {
		var ds rdgmodels.Dataset
		if err := rows.Scan(&ds.ID, &ds.DeviceID, &ds.Type, &ds.Label, &ds.Unit, &ds.ReadingCount, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}

	return datasets, rows.Err()
}

func (r *PostgresDatasetRepository) Update(ctx context.Context, deviceID, id, datasetType, label, unit string) (*rdgmodels.Dataset, error) {
	query := `
		UPDATE datasets
		SET type = $3, label = $4, unit = $5, updated_at = now()
		WHERE device_id = $1 AND id = $2
		RETURNING id, device_id, type, label, unit, reading_count, created_at, updated_at
	`

	var ds rdgmodels.Dataset
	err := r.db.QueryRowContext(ctx, query, deviceID, id, datasetType, label, unit).
		Scan(&ds.ID, &ds.DeviceID, &ds.Type, &ds.Label, &ds.Unit, &ds.ReadingCount, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &ds, nil
}

func (r *PostgresDatasetRepository) Delete(ctx context.Context, deviceID, id string) (bool, error) {
	// Readings cascade via the schema foreign key.
	query := `DELETE FROM datasets WHERE device_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, deviceID, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
