package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
)

const (
	studyColumns    = `study_instance_uid, study_date, study_time, study_description, patient_name, patient_id, accession_number, created_at`
	seriesColumns   = `series_instance_uid, study_instance_uid, modality, series_number, series_description, created_at`
	instanceColumns = `sop_instance_uid, series_instance_uid, study_instance_uid, instance_number, transfer_syntax_uid, blob_key, blob_size, metadata, created_at`
)

func (pb *PostgresBackend) UpsertStudy(ctx context.Context, study *data.Study) (int64, error) {
	createdAt := study.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
		INSERT INTO studies (`+studyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (study_instance_uid) DO UPDATE SET
			study_date = EXCLUDED.study_date,
			study_time = EXCLUDED.study_time,
			study_description = EXCLUDED.study_description,
			patient_name = EXCLUDED.patient_name,
			patient_id = EXCLUDED.patient_id,
			accession_number = EXCLUDED.accession_number,
			created_at = EXCLUDED.created_at
	`, study.StudyInstanceUID, study.StudyDate, study.StudyTime, study.StudyDescription,
		study.PatientName, study.PatientID, study.AccessionNumber, createdAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to upsert study: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (pb *PostgresBackend) UpsertSeries(ctx context.Context, series *data.Series) (int64, error) {
	createdAt := series.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
		INSERT INTO series (`+seriesColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (series_instance_uid) DO UPDATE SET
			study_instance_uid = EXCLUDED.study_instance_uid,
			modality = EXCLUDED.modality,
			series_number = EXCLUDED.series_number,
			series_description = EXCLUDED.series_description,
			created_at = EXCLUDED.created_at
	`, series.SeriesInstanceUID, series.StudyInstanceUID, series.Modality,
		series.SeriesNumber, series.SeriesDescription, createdAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to upsert series: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (pb *PostgresBackend) UpsertInstance(ctx context.Context, instance *data.Instance) (int64, error) {
	createdAt := instance.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
		INSERT INTO instances (`+instanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (sop_instance_uid) DO UPDATE SET
			series_instance_uid = EXCLUDED.series_instance_uid,
			study_instance_uid = EXCLUDED.study_instance_uid,
			instance_number = EXCLUDED.instance_number,
			transfer_syntax_uid = EXCLUDED.transfer_syntax_uid,
			blob_key = EXCLUDED.blob_key,
			blob_size = EXCLUDED.blob_size,
			metadata = EXCLUDED.metadata,
			created_at = EXCLUDED.created_at
	`, instance.SOPInstanceUID, instance.SeriesInstanceUID, instance.StudyInstanceUID,
		instance.InstanceNumber, nullString(instance.TransferSyntaxUID),
		instance.BlobKey, instance.BlobSize, nullSnapshot(instance.Metadata), createdAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to upsert instance: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (pb *PostgresBackend) GetStudy(ctx context.Context, studyUID string) (*data.Study, error) {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	study, err := scanStudy(conn.QueryRow(ctx, `SELECT `+studyColumns+` FROM studies WHERE study_instance_uid = $1`, studyUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query study: %w", err)
	}

	return study, nil
}

func (pb *PostgresBackend) GetSeries(ctx context.Context, seriesUID string) (*data.Series, error) {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	series, err := scanSeries(conn.QueryRow(ctx, `SELECT `+seriesColumns+` FROM series WHERE series_instance_uid = $1`, seriesUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}

	return series, nil
}

func (pb *PostgresBackend) GetInstance(ctx context.Context, sopUID string) (*data.Instance, error) {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	instance, err := scanInstance(conn.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE sop_instance_uid = $1`, sopUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query instance: %w", err)
	}

	return instance, nil
}

func (pb *PostgresBackend) ListSeriesOfStudy(ctx context.Context, studyUID string) ([]*data.Series, error) {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+seriesColumns+` FROM series WHERE study_instance_uid = $1 ORDER BY series_instance_uid ASC`, studyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	result := make([]*data.Series, 0)
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		result = append(result, series)
	}

	return result, rows.Err()
}

func (pb *PostgresBackend) ListInstancesOfSeries(ctx context.Context, seriesUID string) ([]*data.Instance, error) {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+instanceColumns+` FROM instances WHERE series_instance_uid = $1 ORDER BY sop_instance_uid ASC`, seriesUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	result := make([]*data.Instance, 0)
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		result = append(result, instance)
	}

	return result, rows.Err()
}

func (pb *PostgresBackend) SearchStudies(ctx context.Context, query *backend.StudyQuery) ([]*data.Study, error) {
	conditions := make([]string, 0)
	args := make([]any, 0)

	addCondition := func(format string, value string) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if query != nil {
		// strpos keeps '%' and '_' literal, unlike LIKE
		if query.PatientName != "" {
			addCondition("strpos(patient_name, $%d) > 0", query.PatientName)
		}
		if query.PatientID != "" {
			addCondition("patient_id = $%d", query.PatientID)
		}
		if query.StudyDate != "" {
			addCondition("study_date = $%d", query.StudyDate)
		}
		if query.AccessionNumber != "" {
			addCondition("accession_number = $%d", query.AccessionNumber)
		}
	}

	statement := `SELECT ` + studyColumns + ` FROM studies`
	if len(conditions) > 0 {
		statement += " WHERE " + strings.Join(conditions, " AND ")
	}
	statement += " ORDER BY created_at DESC, study_instance_uid ASC"

	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search studies: %w", err)
	}
	defer rows.Close()

	result := make([]*data.Study, 0)
	for rows.Next() {
		study, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		result = append(result, study)
	}

	return result, rows.Err()
}

func scanStudy(row pgx.Row) (*data.Study, error) {
	var study data.Study
	var createdAt int64

	if err := row.Scan(&study.StudyInstanceUID, &study.StudyDate, &study.StudyTime, &study.StudyDescription,
		&study.PatientName, &study.PatientID, &study.AccessionNumber, &createdAt); err != nil {
		return nil, err
	}

	study.CreatedAt = time.Unix(0, createdAt)
	return &study, nil
}

func scanSeries(row pgx.Row) (*data.Series, error) {
	var series data.Series
	var seriesNumber, createdAt int64

	if err := row.Scan(&series.SeriesInstanceUID, &series.StudyInstanceUID, &series.Modality,
		&seriesNumber, &series.SeriesDescription, &createdAt); err != nil {
		return nil, err
	}

	series.SeriesNumber = int(seriesNumber)
	series.CreatedAt = time.Unix(0, createdAt)
	return &series, nil
}

func scanInstance(row pgx.Row) (*data.Instance, error) {
	var instance data.Instance
	var transferSyntax *string
	var metadata []byte
	var instanceNumber, createdAt int64

	if err := row.Scan(&instance.SOPInstanceUID, &instance.SeriesInstanceUID, &instance.StudyInstanceUID,
		&instanceNumber, &transferSyntax, &instance.BlobKey, &instance.BlobSize,
		&metadata, &createdAt); err != nil {
		return nil, err
	}

	// Convert nullable fields
	if transferSyntax != nil {
		instance.TransferSyntaxUID = *transferSyntax
	}
	if len(metadata) > 0 {
		instance.Metadata = metadata
	}

	instance.InstanceNumber = int(instanceNumber)
	instance.CreatedAt = time.Unix(0, createdAt)
	return &instance, nil
}

func nullString(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}

// nullSnapshot stores the snapshot as text so that reads return the same bytes.
func nullSnapshot(val []byte) any {
	if len(val) == 0 {
		return nil
	}
	return string(val)
}
