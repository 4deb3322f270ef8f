package dicom

import (
	"encoding/json"
	"strconv"

	"github.com/mwantia/dicomweb/data"
)

// Attribute is one entry of a DICOM JSON attribute object.
type Attribute struct {
	VR    string `json:"vr"`
	Value []any  `json:"Value,omitempty"`
}

// PersonName is the PN value form of the DICOM JSON model.
type PersonName struct {
	Alphabetic string `json:"Alphabetic"`
}

// AttributeObject maps 8-digit uppercase hex tags to attributes.
type AttributeObject map[string]*Attribute

// Field names one column of the static codec table.
type Field int

const (
	FieldPatientName Field = iota
	FieldPatientID
	FieldStudyInstanceUID
	FieldSeriesInstanceUID
	FieldSOPInstanceUID
	FieldStudyDate
	FieldStudyTime
	FieldStudyDescription
	FieldModality
	FieldSeriesNumber
	FieldSeriesDescription
	FieldInstanceNumber
	FieldAccessionNumber
)

// TagVR is the wire tag and value representation of a field.
type TagVR struct {
	Tag string
	VR  string
}

var codecTable = map[Field]TagVR{
	FieldPatientName:       {"00100010", "PN"},
	FieldPatientID:         {"00100020", "LO"},
	FieldStudyInstanceUID:  {"0020000D", "UI"},
	FieldSeriesInstanceUID: {"0020000E", "UI"},
	FieldSOPInstanceUID:    {"00080018", "UI"},
	FieldStudyDate:         {"00080020", "DA"},
	FieldStudyTime:         {"00080030", "TM"},
	FieldStudyDescription:  {"00081030", "LO"},
	FieldModality:          {"00080060", "CS"},
	FieldSeriesNumber:      {"00200011", "IS"},
	FieldSeriesDescription: {"0008103E", "LO"},
	FieldInstanceNumber:    {"00200013", "IS"},
	FieldAccessionNumber:   {"00080050", "SH"},
}

// Lookup returns the tag and VR of a field.
func (f Field) Lookup() TagVR {
	return codecTable[f]
}

// Set encodes value under the field's tag.
func (o AttributeObject) Set(field Field, value string) {
	entry := codecTable[field]
	if entry.VR == "PN" {
		o[entry.Tag] = &Attribute{VR: entry.VR, Value: []any{PersonName{Alphabetic: value}}}
		return
	}

	o[entry.Tag] = &Attribute{VR: entry.VR, Value: []any{value}}
}

// Get returns the raw first value of the field, if present.
func (o AttributeObject) Get(field Field) (string, bool) {
	attribute, ok := o[codecTable[field].Tag]
	if !ok || attribute == nil || len(attribute.Value) == 0 {
		return "", false
	}

	switch value := attribute.Value[0].(type) {
	case string:
		return value, true
	case PersonName:
		return value.Alphabetic, true
	case map[string]any:
		alphabetic, ok := value["Alphabetic"].(string)
		return alphabetic, ok
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	}

	return "", false
}

// Marshal provides JSON serialization for AttributeObject.
func (o AttributeObject) Marshal() ([]byte, error) {
	return json.Marshal(o)
}

// EncodeMetadata encodes all thirteen fields; this is the snapshot stored with each instance.
func EncodeMetadata(metadata *data.ObjectMetadata) AttributeObject {
	object := make(AttributeObject, len(codecTable))

	object.Set(FieldPatientName, metadata.PatientName)
	object.Set(FieldPatientID, metadata.PatientID)
	object.Set(FieldStudyInstanceUID, metadata.StudyInstanceUID)
	object.Set(FieldSeriesInstanceUID, metadata.SeriesInstanceUID)
	object.Set(FieldSOPInstanceUID, metadata.SOPInstanceUID)
	object.Set(FieldStudyDate, metadata.StudyDate)
	object.Set(FieldStudyTime, metadata.StudyTime)
	object.Set(FieldStudyDescription, metadata.StudyDescription)
	object.Set(FieldModality, metadata.Modality)
	object.Set(FieldSeriesNumber, metadata.SeriesNumber)
	object.Set(FieldSeriesDescription, metadata.SeriesDescription)
	object.Set(FieldInstanceNumber, metadata.InstanceNumber)
	object.Set(FieldAccessionNumber, metadata.AccessionNumber)

	return object
}

// EncodeStudy encodes the study-level search result.
func EncodeStudy(study *data.Study) AttributeObject {
	object := make(AttributeObject, 7)

	object.Set(FieldPatientName, study.PatientName)
	object.Set(FieldPatientID, study.PatientID)
	object.Set(FieldStudyInstanceUID, study.StudyInstanceUID)
	object.Set(FieldStudyDate, study.StudyDate)
	object.Set(FieldStudyTime, study.StudyTime)
	object.Set(FieldStudyDescription, study.StudyDescription)
	object.Set(FieldAccessionNumber, study.AccessionNumber)

	return object
}

// EncodeSeries encodes the series-level search result.
func EncodeSeries(series *data.Series) AttributeObject {
	object := make(AttributeObject, 5)

	object.Set(FieldStudyInstanceUID, series.StudyInstanceUID)
	object.Set(FieldSeriesInstanceUID, series.SeriesInstanceUID)
	object.Set(FieldModality, series.Modality)
	object.Set(FieldSeriesNumber, strconv.Itoa(series.SeriesNumber))
	object.Set(FieldSeriesDescription, series.SeriesDescription)

	return object
}

var instanceProjection = []Field{
	FieldStudyInstanceUID,
	FieldSeriesInstanceUID,
	FieldSOPInstanceUID,
	FieldInstanceNumber,
	FieldModality,
}

// EncodeInstance projects the stored snapshot of an instance onto the
// instance-level search result. Fields absent from the snapshot are left out;
// an unreadable snapshot falls back to the identifiers kept on the record.
func EncodeInstance(instance *data.Instance) AttributeObject {
	object := make(AttributeObject, len(instanceProjection))

	snapshot, err := DecodeSnapshot(instance.Metadata)
	if err != nil || len(snapshot) == 0 {
		object.Set(FieldStudyInstanceUID, instance.StudyInstanceUID)
		object.Set(FieldSeriesInstanceUID, instance.SeriesInstanceUID)
		object.Set(FieldSOPInstanceUID, instance.SOPInstanceUID)
		object.Set(FieldInstanceNumber, strconv.Itoa(instance.InstanceNumber))
		return object
	}

	for _, field := range instanceProjection {
		if attribute, ok := snapshot[codecTable[field].Tag]; ok {
			object[codecTable[field].Tag] = attribute
		}
	}

	return object
}

// DecodeSnapshot parses a stored snapshot back into an attribute object.
func DecodeSnapshot(raw json.RawMessage) (AttributeObject, error) {
	if len(raw) == 0 {
		return AttributeObject{}, nil
	}

	var object AttributeObject
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, err
	}

	return object, nil
}
