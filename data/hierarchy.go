package data

import (
	"encoding/json"
	"time"
)

// Study is the top level of the hierarchy, identified by StudyInstanceUID.
type Study struct {
	StudyInstanceUID string `json:"study_instance_uid"`
	StudyDate        string `json:"study_date"`
	StudyTime        string `json:"study_time"`
	StudyDescription string `json:"study_description"`
	PatientName      string `json:"patient_name"`
	PatientID        string `json:"patient_id"`
	AccessionNumber  string `json:"accession_number"`

	CreatedAt time.Time `json:"created_at"`
}

// Series is one acquisition run. StudyInstanceUID is a non-owning reference
// and may point to a study that has no row.
type Series struct {
	SeriesInstanceUID string `json:"series_instance_uid"`
	StudyInstanceUID  string `json:"study_instance_uid"`
	Modality          string `json:"modality"`
	SeriesNumber      int    `json:"series_number"`
	SeriesDescription string `json:"series_description"`

	CreatedAt time.Time `json:"created_at"`
}

// Instance is one stored object. Both parent identifiers are kept so that
// series and study lookups need a single hop.
type Instance struct {
	SOPInstanceUID    string `json:"sop_instance_uid"`
	SeriesInstanceUID string `json:"series_instance_uid"`
	StudyInstanceUID  string `json:"study_instance_uid"`
	InstanceNumber    int    `json:"instance_number"`
	TransferSyntaxUID string `json:"transfer_syntax_uid"`

	// Opaque location handle inside the blob backend
	BlobKey  string `json:"-"`
	BlobSize int64  `json:"file_size"`

	// Attribute object snapshot captured at ingest time, stored verbatim
	Metadata json.RawMessage `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}

func (s *Study) Clone() *Study {
	clone := *s
	return &clone
}

func (s *Series) Clone() *Series {
	clone := *s
	return &clone
}

func (i *Instance) Clone() *Instance {
	clone := *i
	if i.Metadata != nil {
		clone.Metadata = append(json.RawMessage(nil), i.Metadata...)
	}
	return &clone
}
