package implementation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
	interfaces "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Interfaces"
)

const pqUniqueViolation = "23505"

type PostgresReadingRepository struct {
	db *sql.DB
}

func NewPostgresReadingRepository(db *sql.DB) *PostgresReadingRepository {
	return &PostgresReadingRepository{db: db}
}

// AddReading inserts the reading and advances the dataset's counter in one
// transaction. The increment is relative, so concurrent ingestions against
// the same dataset cannot lose updates.
func (r *PostgresReadingRepository) AddReading(ctx context.Context, datasetID string, timestamp time.Time, value float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insertReading := `INSERT INTO readings (dataset_id, timestamp, value) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertReading, datasetID, timestamp, value); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("insert reading: %w", interfaces.ErrDuplicateReading)
		}
		return fmt.Errorf("insert reading: %w", err)
	}

	incrementCount := `UPDATE datasets SET reading_count = reading_count + 1 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, incrementCount, datasetID); err != nil {
		return fmt.Errorf("increment reading_count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresReadingRepository) GetReadings(ctx context.Context, datasetID string, params interfaces.ReadingQueryParams) ([]rdgmodels.Reading, error) {
	var query strings.Builder
	args := []interface{}{datasetID}

	query.WriteString(`SELECT timestamp, value FROM readings WHERE dataset_id = $1`)

	if params.From != nil {
		args = append(args, *params.From)
		query.WriteString(` AND timestamp >= $` + strconv.Itoa(len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		query.WriteString(` AND timestamp <= $` + strconv.Itoa(len(args)))
	}

	if params.SortAscending {
		query.WriteString(` ORDER BY timestamp ASC`)
	} else {
		query.WriteString(` ORDER BY timestamp DESC`)
	}

	args = append(args, params.Limit)
	query.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	args = append(args, params.Offset)
	query.WriteString(` OFFSET $` + strconv.Itoa(len(args)))

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []rdgmodels.Reading
	for rows.Next() {
		reading := rdgmodels.Reading{DatasetID: datasetID}
		if err := rows.Scan(&reading.Timestamp, &reading.Value); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

func (r *PostgresReadingRepository) CountReadings(ctx context.Context, datasetID string, from, to *time.Time) (int64, error) {
	// Without bounds the denormalized counter answers in O(1); it is exact
	// by the AddReading invariant.
	if from == nil && to == nil {
		query := `SELECT reading_count FROM datasets WHERE id = $1`

		var count sql.NullInt64
		err := r.db.QueryRowContext(ctx, query, datasetID).Scan(&count)
		if err != nil {
			if err == sql.ErrNoRows {
				return 0, nil
			}
			return 0, err
		}
		if !count.Valid {
			return 0, nil
		}
		return count.Int64, nil
	}

	var query strings.Builder
	args := []interface{}{datasetID}

	query.WriteString(`SELECT COUNT(*) FROM readings WHERE dataset_id = $1`)

	if from != nil {
		args = append(args, *from)
		query.WriteString(` AND timestamp >= $` + strconv.Itoa(len(args)))
	}
	if to != nil {
		args = append(args, *to)
		query.WriteString(` AND timestamp <= $` + strconv.Itoa(len(args)))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query.String(), args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
