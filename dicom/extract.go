package dicom

import (
	"fmt"

	"github.com/mwantia/dicomweb/data"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Defaults applied when an attribute is absent or empty.
const (
	DefaultPatientName    = "UNKNOWN"
	DefaultPatientID      = "UNKNOWN"
	DefaultModality       = "OT"
	DefaultSeriesNumber   = "0"
	DefaultInstanceNumber = "0"
)

// Extract reads the identifying attribute subset from table.
// It fails with data.ErrValidation if one of the three instance UIDs is missing.
func Extract(table *TagTable) (*data.ObjectMetadata, error) {
	lookup := func(tg tag.Tag, fallback string) string {
		if value, ok := table.Lookup(tg); ok && value != "" {
			return value
		}
		return fallback
	}

	metadata := &data.ObjectMetadata{
		PatientName: lookup(tag.PatientName, DefaultPatientName),
		PatientID:   lookup(tag.PatientID, DefaultPatientID),

		StudyInstanceUID: lookup(tag.StudyInstanceUID, ""),
		StudyDate:        lookup(tag.StudyDate, ""),
		StudyTime:        lookup(tag.StudyTime, ""),
		StudyDescription: lookup(tag.StudyDescription, ""),
		AccessionNumber:  lookup(tag.AccessionNumber, ""),

		SeriesInstanceUID: lookup(tag.SeriesInstanceUID, ""),
		SeriesNumber:      lookup(tag.SeriesNumber, DefaultSeriesNumber),
		SeriesDescription: lookup(tag.SeriesDescription, ""),
		Modality:          lookup(tag.Modality, DefaultModality),

		SOPInstanceUID:    lookup(tag.SOPInstanceUID, ""),
		InstanceNumber:    lookup(tag.InstanceNumber, DefaultInstanceNumber),
		TransferSyntaxUID: lookup(tag.TransferSyntaxUID, ""),
	}

	missing := make([]string, 0)
	if metadata.StudyInstanceUID == "" {
		missing = append(missing, "StudyInstanceUID")
	}
	if metadata.SeriesInstanceUID == "" {
		missing = append(missing, "SeriesInstanceUID")
	}
	if metadata.SOPInstanceUID == "" {
		missing = append(missing, "SOPInstanceUID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", data.ErrValidation, missing)
	}

	return metadata, nil
}
