package dicomweb

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/dicomweb/data"
)

// StudyMetadata is a study with every series and instance stored below it.
type StudyMetadata struct {
	Study     *data.Study      `json:"study"`
	Series    []*data.Series   `json:"series"`
	Instances []*data.Instance `json:"instances"`
}

type SeriesMetadata struct {
	Series    *data.Series     `json:"series"`
	Instances []*data.Instance `json:"instances"`
}

// InstanceBlob is an open stream of a stored object. The caller closes Reader.
type InstanceBlob struct {
	Instance *data.Instance
	Reader   io.ReadCloser
	Size     int64
}

func (b *InstanceBlob) Close() error {
	return b.Reader.Close()
}

// Filename is the attachment name offered to clients.
func (b *InstanceBlob) Filename() string {
	return b.Instance.SOPInstanceUID + data.BlobKeyExtension
}

func (s *Service) RetrieveStudy(ctx context.Context, studyUID string) (*StudyMetadata, error) {
	study, err := s.resolveStudy(ctx, studyUID)
	if err != nil {
		return nil, err
	}

	series, err := s.Metadata.ListSeriesOfStudy(ctx, studyUID)
	if err != nil {
		return nil, storeError("list series", err)
	}

	result := &StudyMetadata{
		Study:     study,
		Series:    series,
		Instances: make([]*data.Instance, 0),
	}
	for _, entry := range series {
		instances, err := s.Metadata.ListInstancesOfSeries(ctx, entry.SeriesInstanceUID)
		if err != nil {
			return nil, storeError("list instances", err)
		}
		result.Instances = append(result.Instances, instances...)
	}

	return result, nil
}

func (s *Service) RetrieveSeries(ctx context.Context, studyUID, seriesUID string) (*SeriesMetadata, error) {
	series, err := s.resolveSeries(ctx, studyUID, seriesUID)
	if err != nil {
		return nil, err
	}

	instances, err := s.Metadata.ListInstancesOfSeries(ctx, seriesUID)
	if err != nil {
		return nil, storeError("list instances", err)
	}

	return &SeriesMetadata{
		Series:    series,
		Instances: instances,
	}, nil
}

// RetrieveInstanceMetadata returns the stored row of an instance, snapshot included.
func (s *Service) RetrieveInstanceMetadata(ctx context.Context, studyUID, seriesUID, sopUID string) (*data.Instance, error) {
	if _, err := s.resolveSeries(ctx, studyUID, seriesUID); err != nil {
		return nil, err
	}

	instance, err := s.resolveInstance(ctx, sopUID)
	if err != nil {
		return nil, err
	}
	if instance.SeriesInstanceUID != seriesUID {
		return nil, fmt.Errorf("%w: instance %s is not part of series %s", data.ErrNotExist, sopUID, seriesUID)
	}

	return instance, nil
}

// RetrieveInstance opens the stored object after resolving the full chain.
func (s *Service) RetrieveInstance(ctx context.Context, studyUID, seriesUID, sopUID string) (*InstanceBlob, error) {
	instance, err := s.RetrieveInstanceMetadata(ctx, studyUID, seriesUID, sopUID)
	if err != nil {
		return nil, err
	}

	return s.openBlob(ctx, instance)
}

// OpenInstance opens the stored object by its instance identifier alone.
func (s *Service) OpenInstance(ctx context.Context, sopUID string) (*InstanceBlob, error) {
	instance, err := s.resolveInstance(ctx, sopUID)
	if err != nil {
		return nil, err
	}

	return s.openBlob(ctx, instance)
}

func (s *Service) resolveStudy(ctx context.Context, studyUID string) (*data.Study, error) {
	study, err := s.Metadata.GetStudy(ctx, studyUID)
	if err != nil {
		return nil, storeError("get study", err)
	}
	return study, nil
}

func (s *Service) resolveSeries(ctx context.Context, studyUID, seriesUID string) (*data.Series, error) {
	if _, err := s.resolveStudy(ctx, studyUID); err != nil {
		return nil, err
	}

	series, err := s.Metadata.GetSeries(ctx, seriesUID)
	if err != nil {
		return nil, storeError("get series", err)
	}
	if series.StudyInstanceUID != studyUID {
		return nil, fmt.Errorf("%w: series %s is not part of study %s", data.ErrNotExist, seriesUID, studyUID)
	}

	return series, nil
}

func (s *Service) resolveInstance(ctx context.Context, sopUID string) (*data.Instance, error) {
	instance, err := s.Metadata.GetInstance(ctx, sopUID)
	if err != nil {
		return nil, storeError("get instance", err)
	}
	return instance, nil
}

// openBlob checks the blob backend independently of the metadata row, since
// both are not updated in one transaction.
func (s *Service) openBlob(ctx context.Context, instance *data.Instance) (*InstanceBlob, error) {
	stat, err := s.Blobs.StatBlob(ctx, instance.BlobKey)
	if err != nil {
		s.log.Warn("Retrieve: blob %s of %s is unavailable - %v", instance.BlobKey, instance.SOPInstanceUID, err)
		return nil, storeError("stat blob", err)
	}

	reader, err := s.Blobs.OpenBlob(ctx, instance.BlobKey)
	if err != nil {
		return nil, storeError("open blob", err)
	}

	return &InstanceBlob{
		Instance: instance,
		Reader:   reader,
		Size:     stat.Size,
	}, nil
}
