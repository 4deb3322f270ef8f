package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func (sb *SQLiteBackend) UpsertStudy(ctx context.Context, study *data.Study) (int64, error) {
	createdAt := study.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := sb.db.ExecContext(ctx, `
		INSERT INTO studies (study_instance_uid, study_date, study_time, study_description, patient_name, patient_id, accession_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(study_instance_uid) DO UPDATE SET
			study_date = excluded.study_date,
			study_time = excluded.study_time,
			study_description = excluded.study_description,
			patient_name = excluded.patient_name,
			patient_id = excluded.patient_id,
			accession_number = excluded.accession_number,
			created_at = excluded.created_at
	`, study.StudyInstanceUID, study.StudyDate, study.StudyTime, study.StudyDescription,
		study.PatientName, study.PatientID, study.AccessionNumber, createdAt.UnixNano())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (sb *SQLiteBackend) UpsertSeries(ctx context.Context, series *data.Series) (int64, error) {
	createdAt := series.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := sb.db.ExecContext(ctx, `
		INSERT INTO series (series_instance_uid, study_instance_uid, modality, series_number, series_description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(series_instance_uid) DO UPDATE SET
			study_instance_uid = excluded.study_instance_uid,
			modality = excluded.modality,
			series_number = excluded.series_number,
			series_description = excluded.series_description,
			created_at = excluded.created_at
	`, series.SeriesInstanceUID, series.StudyInstanceUID, series.Modality,
		series.SeriesNumber, series.SeriesDescription, createdAt.UnixNano())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (sb *SQLiteBackend) UpsertInstance(ctx context.Context, instance *data.Instance) (int64, error) {
	createdAt := instance.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := sb.db.ExecContext(ctx, `
		INSERT INTO instances (sop_instance_uid, series_instance_uid, study_instance_uid, instance_number, transfer_syntax_uid, blob_key, blob_size, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sop_instance_uid) DO UPDATE SET
			series_instance_uid = excluded.series_instance_uid,
			study_instance_uid = excluded.study_instance_uid,
			instance_number = excluded.instance_number,
			transfer_syntax_uid = excluded.transfer_syntax_uid,
			blob_key = excluded.blob_key,
			blob_size = excluded.blob_size,
			metadata = excluded.metadata,
			created_at = excluded.created_at
	`, instance.SOPInstanceUID, instance.SeriesInstanceUID, instance.StudyInstanceUID,
		instance.InstanceNumber, nullString(instance.TransferSyntaxUID),
		instance.BlobKey, instance.BlobSize, nullString(string(instance.Metadata)), createdAt.UnixNano())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (sb *SQLiteBackend) GetStudy(ctx context.Context, studyUID string) (*data.Study, error) {
	row := sb.db.QueryRowContext(ctx, `
		SELECT study_instance_uid, study_date, study_time, study_description, patient_name, patient_id, accession_number, created_at
		FROM studies WHERE study_instance_uid = ?
	`, studyUID)

	study, err := scanStudy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	return study, err
}

func (sb *SQLiteBackend) GetSeries(ctx context.Context, seriesUID string) (*data.Series, error) {
	row := sb.db.QueryRowContext(ctx, `
		SELECT series_instance_uid, study_instance_uid, modality, series_number, series_description, created_at
		FROM series WHERE series_instance_uid = ?
	`, seriesUID)

	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	return series, err
}

func (sb *SQLiteBackend) GetInstance(ctx context.Context, sopUID string) (*data.Instance, error) {
	row := sb.db.QueryRowContext(ctx, `
		SELECT sop_instance_uid, series_instance_uid, study_instance_uid, instance_number, transfer_syntax_uid, blob_key, blob_size, metadata, created_at
		FROM instances WHERE sop_instance_uid = ?
	`, sopUID)

	instance, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	return instance, err
}

func (sb *SQLiteBackend) ListSeriesOfStudy(ctx context.Context, studyUID string) ([]*data.Series, error) {
	rows, err := sb.db.QueryContext(ctx, `
		SELECT series_instance_uid, study_instance_uid, modality, series_number, series_description, created_at
		FROM series WHERE study_instance_uid = ?
		ORDER BY series_instance_uid ASC
	`, studyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*data.Series, 0)
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, series)
	}

	return result, rows.Err()
}

func (sb *SQLiteBackend) ListInstancesOfSeries(ctx context.Context, seriesUID string) ([]*data.Instance, error) {
	rows, err := sb.db.QueryContext(ctx, `
		SELECT sop_instance_uid, series_instance_uid, study_instance_uid, instance_number, transfer_syntax_uid, blob_key, blob_size, metadata, created_at
		FROM instances WHERE series_instance_uid = ?
		ORDER BY sop_instance_uid ASC
	`, seriesUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*data.Instance, 0)
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, instance)
	}

	return result, rows.Err()
}

func (sb *SQLiteBackend) SearchStudies(ctx context.Context, query *backend.StudyQuery) ([]*data.Study, error) {
	conditions := make([]string, 0)
	args := make([]any, 0)

	if query != nil {
		// instr keeps '%' and '_' literal, unlike LIKE
		if query.PatientName != "" {
			conditions = append(conditions, "instr(patient_name, ?) > 0")
			args = append(args, query.PatientName)
		}
		if query.PatientID != "" {
			conditions = append(conditions, "patient_id = ?")
			args = append(args, query.PatientID)
		}
		if query.StudyDate != "" {
			conditions = append(conditions, "study_date = ?")
			args = append(args, query.StudyDate)
		}
		if query.AccessionNumber != "" {
			conditions = append(conditions, "accession_number = ?")
			args = append(args, query.AccessionNumber)
		}
	}

	statement := `SELECT study_instance_uid, study_date, study_time, study_description, patient_name, patient_id, accession_number, created_at FROM studies`
	if len(conditions) > 0 {
		statement += " WHERE " + strings.Join(conditions, " AND ")
	}
	statement += " ORDER BY created_at DESC, study_instance_uid ASC"

	rows, err := sb.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*data.Study, 0)
	for rows.Next() {
		study, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, study)
	}

	return result, rows.Err()
}

func scanStudy(row rowScanner) (*data.Study, error) {
	var study data.Study
	var createdAt int64

	if err := row.Scan(&study.StudyInstanceUID, &study.StudyDate, &study.StudyTime, &study.StudyDescription,
		&study.PatientName, &study.PatientID, &study.AccessionNumber, &createdAt); err != nil {
		return nil, err
	}

	study.CreatedAt = time.Unix(0, createdAt)
	return &study, nil
}

func scanSeries(row rowScanner) (*data.Series, error) {
	var series data.Series
	var createdAt int64

	if err := row.Scan(&series.SeriesInstanceUID, &series.StudyInstanceUID, &series.Modality,
		&series.SeriesNumber, &series.SeriesDescription, &createdAt); err != nil {
		return nil, err
	}

	series.CreatedAt = time.Unix(0, createdAt)
	return &series, nil
}

func scanInstance(row rowScanner) (*data.Instance, error) {
	var instance data.Instance
	var transferSyntax, metadata sql.NullString
	var createdAt int64

	if err := row.Scan(&instance.SOPInstanceUID, &instance.SeriesInstanceUID, &instance.StudyInstanceUID,
		&instance.InstanceNumber, &transferSyntax, &instance.BlobKey, &instance.BlobSize,
		&metadata, &createdAt); err != nil {
		return nil, err
	}

	// Convert nullable fields
	if transferSyntax.Valid {
		instance.TransferSyntaxUID = transferSyntax.String
	}
	if metadata.Valid && metadata.String != "" {
		instance.Metadata = []byte(metadata.String)
	}

	instance.CreatedAt = time.Unix(0, createdAt)
	return &instance, nil
}

func nullString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: val, Valid: true}
}
