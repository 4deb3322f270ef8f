package memory

import (
	"context"
	"time"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
)

func (mb *MemoryBackend) UpsertStudy(ctx context.Context, study *data.Study) (int64, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	record := study.Clone()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	mb.studies.Set(record.StudyInstanceUID, record)
	return 1, nil
}

func (mb *MemoryBackend) UpsertSeries(ctx context.Context, series *data.Series) (int64, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	record := series.Clone()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	mb.series.Set(record.SeriesInstanceUID, record)
	return 1, nil
}

func (mb *MemoryBackend) UpsertInstance(ctx context.Context, instance *data.Instance) (int64, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	record := instance.Clone()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	mb.instances.Set(record.SOPInstanceUID, record)
	return 1, nil
}

func (mb *MemoryBackend) GetStudy(ctx context.Context, studyUID string) (*data.Study, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	study, exists := mb.studies.Get(studyUID)
	if !exists {
		return nil, data.ErrNotExist
	}

	return study.Clone(), nil
}

func (mb *MemoryBackend) GetSeries(ctx context.Context, seriesUID string) (*data.Series, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	series, exists := mb.series.Get(seriesUID)
	if !exists {
		return nil, data.ErrNotExist
	}

	return series.Clone(), nil
}

func (mb *MemoryBackend) GetInstance(ctx context.Context, sopUID string) (*data.Instance, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	instance, exists := mb.instances.Get(sopUID)
	if !exists {
		return nil, data.ErrNotExist
	}

	return instance.Clone(), nil
}

func (mb *MemoryBackend) ListSeriesOfStudy(ctx context.Context, studyUID string) ([]*data.Series, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	result := make([]*data.Series, 0)
	mb.series.Scan(func(_ string, series *data.Series) bool {
		if series.StudyInstanceUID == studyUID {
			result = append(result, series.Clone())
		}
		return true
	})

	return result, nil
}

func (mb *MemoryBackend) ListInstancesOfSeries(ctx context.Context, seriesUID string) ([]*data.Instance, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	result := make([]*data.Instance, 0)
	mb.instances.Scan(func(_ string, instance *data.Instance) bool {
		if instance.SeriesInstanceUID == seriesUID {
			result = append(result, instance.Clone())
		}
		return true
	})

	return result, nil
}

func (mb *MemoryBackend) SearchStudies(ctx context.Context, query *backend.StudyQuery) ([]*data.Study, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	candidates := make([]*data.Study, 0, mb.studies.Len())
	mb.studies.Scan(func(_ string, study *data.Study) bool {
		candidates = append(candidates, study.Clone())
		return true
	})

	result := backend.ApplyStudyFilters(candidates, query)
	backend.SortStudies(result)

	return result, nil
}
