package data

// ObjectMetadata is the fixed attribute subset extracted from one DICOM object.
// Numbers are kept as the raw strings found in the object; conversion to
// integers happens when building the hierarchy records.
type ObjectMetadata struct {
	PatientName       string `json:"patient_name"`
	PatientID         string `json:"patient_id"`
	StudyInstanceUID  string `json:"study_instance_uid"`
	StudyDate         string `json:"study_date"`
	StudyTime         string `json:"study_time"`
	StudyDescription  string `json:"study_description"`
	AccessionNumber   string `json:"accession_number"`
	SeriesInstanceUID string `json:"series_instance_uid"`
	SeriesNumber      string `json:"series_number"`
	SeriesDescription string `json:"series_description"`
	Modality          string `json:"modality"`
	SOPInstanceUID    string `json:"sop_instance_uid"`
	InstanceNumber    string `json:"instance_number"`
	TransferSyntaxUID string `json:"transfer_syntax_uid"`
}

// ToStudy builds the study record described by this object.
func (m *ObjectMetadata) ToStudy() *Study {
	return &Study{
		StudyInstanceUID: m.StudyInstanceUID,
		StudyDate:        m.StudyDate,
		StudyTime:        m.StudyTime,
		StudyDescription: m.StudyDescription,
		PatientName:      m.PatientName,
		PatientID:        m.PatientID,
		AccessionNumber:  m.AccessionNumber,
	}
}

// ToSeries builds the series record described by this object.
func (m *ObjectMetadata) ToSeries() *Series {
	return &Series{
		SeriesInstanceUID: m.SeriesInstanceUID,
		StudyInstanceUID:  m.StudyInstanceUID,
		Modality:          m.Modality,
		SeriesNumber:      ParseNumber(m.SeriesNumber),
		SeriesDescription: m.SeriesDescription,
	}
}

// ToInstance builds the instance record described by this object. The blob
// location and the snapshot are filled in by the caller.
func (m *ObjectMetadata) ToInstance() *Instance {
	return &Instance{
		SOPInstanceUID:    m.SOPInstanceUID,
		SeriesInstanceUID: m.SeriesInstanceUID,
		StudyInstanceUID:  m.StudyInstanceUID,
		InstanceNumber:    ParseNumber(m.InstanceNumber),
		TransferSyntaxUID: m.TransferSyntaxUID,
	}
}
