package backend

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mwantia/dicomweb/data"
)

// StudyQuery filters studies. Empty fields impose no filter.
type StudyQuery struct {
	// PatientName matches as a case-sensitive substring
	PatientName string `json:"PatientName,omitempty"`

	// Exact matches
	PatientID       string `json:"PatientID,omitempty"`
	StudyDate       string `json:"StudyDate,omitempty"`
	AccessionNumber string `json:"AccessionNumber,omitempty"`
}

// IsEmpty reports whether the query imposes no filter at all.
func (q *StudyQuery) IsEmpty() bool {
	return q == nil || (q.PatientName == "" && q.PatientID == "" && q.StudyDate == "" && q.AccessionNumber == "")
}

// Matches reports whether study satisfies every key of the query.
func (q *StudyQuery) Matches(study *data.Study) bool {
	if q == nil {
		return true
	}
	if q.PatientName != "" && !strings.Contains(study.PatientName, q.PatientName) {
		return false
	}
	if q.PatientID != "" && study.PatientID != q.PatientID {
		return false
	}
	if q.StudyDate != "" && study.StudyDate != q.StudyDate {
		return false
	}
	if q.AccessionNumber != "" && study.AccessionNumber != q.AccessionNumber {
		return false
	}
	return true
}

// SeriesQuery filters the series of one study. A nil SeriesNumber imposes no filter.
type SeriesQuery struct {
	Modality     string `json:"Modality,omitempty"`
	SeriesNumber *int   `json:"SeriesNumber,omitempty"`
}

func (q *SeriesQuery) Matches(series *data.Series) bool {
	if q == nil {
		return true
	}
	if q.Modality != "" && series.Modality != q.Modality {
		return false
	}
	if q.SeriesNumber != nil && series.SeriesNumber != *q.SeriesNumber {
		return false
	}
	return true
}

func ApplyStudyFilters(candidates []*data.Study, query *StudyQuery) []*data.Study {
	filtered := make([]*data.Study, 0, len(candidates))
	for _, study := range candidates {
		if query.Matches(study) {
			filtered = append(filtered, study)
		}
	}

	return filtered
}

func ApplySeriesFilters(candidates []*data.Series, query *SeriesQuery) []*data.Series {
	filtered := make([]*data.Series, 0, len(candidates))
	for _, series := range candidates {
		if query.Matches(series) {
			filtered = append(filtered, series)
		}
	}

	return filtered
}

// SortStudies orders studies by creation time descending, ties by UID ascending.
func SortStudies(studies []*data.Study) {
	slices.SortStableFunc(studies, func(a, b *data.Study) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.StudyInstanceUID, b.StudyInstanceUID)
	})
}
