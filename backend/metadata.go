package backend

import (
	"context"

	"github.com/mwantia/dicomweb/data"
)

// MetadataBackend persists the Study/Series/Instance hierarchy.
// Upserts insert or fully replace a row by its UID and return the number of
// rows affected. Lookups return data.ErrNotExist for unknown UIDs.
type MetadataBackend interface {
	Backend

	UpsertStudy(ctx context.Context, study *data.Study) (int64, error)

	UpsertSeries(ctx context.Context, series *data.Series) (int64, error)

	UpsertInstance(ctx context.Context, instance *data.Instance) (int64, error)

	GetStudy(ctx context.Context, studyUID string) (*data.Study, error)

	GetSeries(ctx context.Context, seriesUID string) (*data.Series, error)

	GetInstance(ctx context.Context, sopUID string) (*data.Instance, error)

	// ListSeriesOfStudy returns every series referencing the study, ordered by UID.
	ListSeriesOfStudy(ctx context.Context, studyUID string) ([]*data.Series, error)

	// ListInstancesOfSeries returns every instance referencing the series, ordered by UID.
	ListInstancesOfSeries(ctx context.Context, seriesUID string) ([]*data.Instance, error)

	// SearchStudies returns the studies matching query, newest first.
	SearchStudies(ctx context.Context, query *StudyQuery) ([]*data.Study, error)
}
