package dicomweb

import (
	"context"
	"math"
	"slices"

	"github.com/mwantia/dicomweb/backend"
)

// Statistics summarizes the stored hierarchy. It is computed from scratch on
// every call; no counters are maintained.
type Statistics struct {
	TotalStudies     int      `json:"totalStudies"`
	TotalSeries      int      `json:"totalSeries"`
	TotalInstances   int      `json:"totalInstances"`
	TotalSizeBytes   int64    `json:"totalSizeBytes"`
	TotalSizeMB      float64  `json:"totalSizeMB"`
	AverageSizeBytes int64    `json:"averageSizeBytes"`
	Patients         int      `json:"patients"`
	Modalities       []string `json:"modalities"`
}

// Statistics walks every study, its series and their instances.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	studies, err := s.Metadata.SearchStudies(ctx, &backend.StudyQuery{})
	if err != nil {
		return nil, storeError("search studies", err)
	}

	stats := &Statistics{
		TotalStudies: len(studies),
		Modalities:   make([]string, 0),
	}
	patients := make(map[string]struct{})
	modalities := make(map[string]struct{})

	for _, study := range studies {
		patients[study.PatientID] = struct{}{}

		series, err := s.Metadata.ListSeriesOfStudy(ctx, study.StudyInstanceUID)
		if err != nil {
			return nil, storeError("list series", err)
		}
		stats.TotalSeries += len(series)

		for _, entry := range series {
			modalities[entry.Modality] = struct{}{}

			instances, err := s.Metadata.ListInstancesOfSeries(ctx, entry.SeriesInstanceUID)
			if err != nil {
				return nil, storeError("list instances", err)
			}
			stats.TotalInstances += len(instances)
			for _, instance := range instances {
				stats.TotalSizeBytes += instance.BlobSize
			}
		}
	}

	stats.Patients = len(patients)
	for modality := range modalities {
		stats.Modalities = append(stats.Modalities, modality)
	}
	slices.Sort(stats.Modalities)

	stats.TotalSizeMB = math.Round(float64(stats.TotalSizeBytes)/(1024*1024)*100) / 100
	if stats.TotalInstances > 0 {
		stats.AverageSizeBytes = stats.TotalSizeBytes / int64(stats.TotalInstances)
	}

	return stats, nil
}
