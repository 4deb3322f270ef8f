package backend

import (
	"testing"
	"time"

	"github.com/mwantia/dicomweb/data"
)

func TestApplySeriesFilters(t *testing.T) {
	three := 3
	candidates := []*data.Series{
		{SeriesInstanceUID: "a", Modality: "CT", SeriesNumber: 3},
		{SeriesInstanceUID: "b", Modality: "CT", SeriesNumber: 4},
		{SeriesInstanceUID: "c", Modality: "MR", SeriesNumber: 3},
	}

	tests := []struct {
		name     string
		query    *SeriesQuery
		expected int
	}{
		{"nil", nil, 3},
		{"modality", &SeriesQuery{Modality: "CT"}, 2},
		{"number", &SeriesQuery{SeriesNumber: &three}, 2},
		{"both", &SeriesQuery{Modality: "CT", SeriesNumber: &three}, 1},
		{"modality is exact", &SeriesQuery{Modality: "ct"}, 0},
	}

	for _, test := range tests {
		if got := ApplySeriesFilters(candidates, test.query); len(got) != test.expected {
			t.Errorf("%s: expected %d series, got %d", test.name, test.expected, len(got))
		}
	}
}

func TestSortStudies(t *testing.T) {
	now := time.Now()
	studies := []*data.Study{
		{StudyInstanceUID: "b", CreatedAt: now},
		{StudyInstanceUID: "c", CreatedAt: now.Add(-time.Hour)},
		{StudyInstanceUID: "a", CreatedAt: now},
		{StudyInstanceUID: "d", CreatedAt: now.Add(time.Hour)},
	}

	SortStudies(studies)

	expected := []string{"d", "a", "b", "c"}
	for i, study := range studies {
		if study.StudyInstanceUID != expected[i] {
			t.Errorf("Expected %q at position %d, got %q", expected[i], i, study.StudyInstanceUID)
		}
	}
}

func TestBackendCapabilities_Accepts(t *testing.T) {
	capabilities := &BackendCapabilities{MaxObjectSize: 100}

	if !capabilities.Accepts(100) {
		t.Error("Expected size equal to the limit to be accepted")
	}
	if capabilities.Accepts(101) {
		t.Error("Expected size above the limit to be rejected")
	}
	if !(&BackendCapabilities{}).Accepts(1 << 40) {
		t.Error("Expected zero limit to be unbounded")
	}
}
