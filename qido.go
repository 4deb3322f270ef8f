package dicomweb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/dicom"
)

// QueryResult carries the raw records of a search together with their
// DICOM JSON projection, index for index.
type QueryResult[T any] struct {
	Records    []T
	Attributes []dicom.AttributeObject
}

func (r *QueryResult[T]) Len() int {
	return len(r.Records)
}

func newQueryResult[T any](records []T, encode func(T) dicom.AttributeObject) *QueryResult[T] {
	result := &QueryResult[T]{
		Records:    records,
		Attributes: make([]dicom.AttributeObject, 0, len(records)),
	}
	for _, record := range records {
		result.Attributes = append(result.Attributes, encode(record))
	}

	return result
}

// SearchStudies returns the studies matching query, newest first.
func (s *Service) SearchStudies(ctx context.Context, query *backend.StudyQuery) (*QueryResult[*data.Study], error) {
	if query == nil {
		query = &backend.StudyQuery{}
	}

	s.log.Debug("SearchStudies: %+v", *query)
	studies, err := s.Metadata.SearchStudies(ctx, query)
	if err != nil {
		return nil, storeError("search studies", err)
	}

	return newQueryResult(studies, dicom.EncodeStudy), nil
}

// SearchSeries lists all series of the study and filters them afterwards.
func (s *Service) SearchSeries(ctx context.Context, studyUID string, query *backend.SeriesQuery) (*QueryResult[*data.Series], error) {
	series, err := s.Metadata.ListSeriesOfStudy(ctx, studyUID)
	if err != nil {
		return nil, storeError("list series", err)
	}

	filtered := backend.ApplySeriesFilters(series, query)
	s.log.Debug("SearchSeries: %d of %d series of %s matched", len(filtered), len(series), studyUID)

	return newQueryResult(filtered, dicom.EncodeSeries), nil
}

// SearchInstances lists the instances of a series. Instances are looked up by
// series alone; studyUID only appears in the log.
func (s *Service) SearchInstances(ctx context.Context, studyUID, seriesUID string) (*QueryResult[*data.Instance], error) {
	instances, err := s.Metadata.ListInstancesOfSeries(ctx, seriesUID)
	if err != nil {
		return nil, storeError("list instances", err)
	}

	s.log.Debug("SearchInstances: %d instances in %s/%s", len(instances), studyUID, seriesUID)
	return newQueryResult(instances, dicom.EncodeInstance), nil
}

// ParseSeriesNumber converts the SeriesNumber query parameter. An empty value
// imposes no filter.
func ParseSeriesNumber(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	number, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: SeriesNumber '%s' is not an integer", data.ErrInvalid, value)
	}

	return &number, nil
}
