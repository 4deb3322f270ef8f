package dicom

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/dicom/dicomtest"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestDecode_Malformed(t *testing.T) {
	inputs := map[string][]byte{
		"empty":       {},
		"text":        []byte("this is not a dicom file"),
		"no preamble": make([]byte, 140),
	}

	for name, input := range inputs {
		if _, err := DecodeBytes(input); !errors.Is(err, data.ErrDecode) {
			t.Errorf("%s: expected ErrDecode, got %v", name, err)
		}
	}
}

func TestExtract_AllAttributes(t *testing.T) {
	content := dicomtest.MustBuild(t, dicomtest.Attributes("1.2.3", "1.2.3.4", "1.2.3.4.5"))

	table, err := DecodeBytes(content)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	metadata, err := Extract(table)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	expected := data.ObjectMetadata{
		PatientName:       "DOE^JOHN",
		PatientID:         "PAT-001",
		StudyInstanceUID:  "1.2.3",
		StudyDate:         "20240115",
		StudyTime:         "101500",
		StudyDescription:  "CT HEAD W/O CONTRAST",
		AccessionNumber:   "ACC-001",
		SeriesInstanceUID: "1.2.3.4",
		SeriesNumber:      "3",
		SeriesDescription: "AXIAL 5MM",
		Modality:          "CT",
		SOPInstanceUID:    "1.2.3.4.5",
		InstanceNumber:    "1",
		TransferSyntaxUID: dicomtest.ExplicitVRLittleEndian,
	}
	if *metadata != expected {
		t.Errorf("Expected %+v, got %+v", expected, *metadata)
	}
}

func TestExtract_Defaults(t *testing.T) {
	attributes := dicomtest.Without(dicomtest.Attributes("1.2.3", "1.2.3.4", "1.2.3.4.5"),
		tag.PatientName, tag.PatientID, tag.StudyDescription, tag.AccessionNumber,
		tag.SeriesNumber, tag.SeriesDescription, tag.Modality, tag.InstanceNumber,
		tag.StudyDate, tag.StudyTime)

	table, err := DecodeBytes(dicomtest.MustBuild(t, attributes))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	metadata, err := Extract(table)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	checks := map[string][2]string{
		"PatientName":       {DefaultPatientName, metadata.PatientName},
		"PatientID":         {DefaultPatientID, metadata.PatientID},
		"Modality":          {DefaultModality, metadata.Modality},
		"SeriesNumber":      {DefaultSeriesNumber, metadata.SeriesNumber},
		"InstanceNumber":    {DefaultInstanceNumber, metadata.InstanceNumber},
		"StudyDescription":  {"", metadata.StudyDescription},
		"AccessionNumber":   {"", metadata.AccessionNumber},
		"SeriesDescription": {"", metadata.SeriesDescription},
		"StudyDate":         {"", metadata.StudyDate},
		"StudyTime":         {"", metadata.StudyTime},
	}
	for field, check := range checks {
		if check[0] != check[1] {
			t.Errorf("%s: expected %q, got %q", field, check[0], check[1])
		}
	}
}

func TestExtract_MissingIdentifiers(t *testing.T) {
	full := dicomtest.Attributes("1.2.3", "1.2.3.4", "1.2.3.4.5")

	for _, missing := range []tag.Tag{tag.StudyInstanceUID, tag.SeriesInstanceUID, tag.SOPInstanceUID} {
		table, err := DecodeBytes(dicomtest.MustBuild(t, dicomtest.Without(full, missing)))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		if _, err := Extract(table); !errors.Is(err, data.ErrValidation) {
			t.Errorf("Expected ErrValidation without %v, got %v", missing, err)
		}
	}
}

func TestEncodeMetadata(t *testing.T) {
	metadata := &data.ObjectMetadata{
		PatientName:       "DOE^JOHN",
		PatientID:         "P1",
		StudyInstanceUID:  "1.2.3",
		SeriesInstanceUID: "1.2.3.4",
		SOPInstanceUID:    "1.2.3.4.5",
		SeriesNumber:      "7",
		InstanceNumber:    "2",
		Modality:          "MR",
	}

	object := EncodeMetadata(metadata)
	if len(object) != 13 {
		t.Fatalf("Expected 13 attributes, got %d", len(object))
	}

	raw, err := object.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]struct {
		VR    string            `json:"vr"`
		Value []json.RawMessage `json:"Value"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded["00100010"].VR != "PN" || string(decoded["00100010"].Value[0]) != `{"Alphabetic":"DOE^JOHN"}` {
		t.Errorf("Unexpected patient name encoding: %+v", decoded["00100010"])
	}
	if decoded["00200011"].VR != "IS" || string(decoded["00200011"].Value[0]) != `"7"` {
		t.Errorf("Unexpected series number encoding: %+v", decoded["00200011"])
	}
	if decoded["00080050"].VR != "SH" || string(decoded["00080050"].Value[0]) != `""` {
		t.Errorf("Unexpected accession number encoding: %+v", decoded["00080050"])
	}
}

func TestEncodeSeries_NumberAsString(t *testing.T) {
	object := EncodeSeries(&data.Series{
		SeriesInstanceUID: "1.2.3.4",
		StudyInstanceUID:  "1.2.3",
		Modality:          "CT",
		SeriesNumber:      12,
	})

	if len(object) != 5 {
		t.Errorf("Expected 5 attributes, got %d", len(object))
	}
	if value, _ := object.Get(FieldSeriesNumber); value != "12" {
		t.Errorf("Expected series number %q, got %q", "12", value)
	}
}

func TestEncodeStudy(t *testing.T) {
	object := EncodeStudy(&data.Study{StudyInstanceUID: "1.2.3", PatientName: "DOE^JANE"})

	if len(object) != 7 {
		t.Errorf("Expected 7 attributes, got %d", len(object))
	}
	if value, _ := object.Get(FieldPatientName); value != "DOE^JANE" {
		t.Errorf("Expected patient name %q, got %q", "DOE^JANE", value)
	}
	if _, ok := object[FieldSOPInstanceUID.Lookup().Tag]; ok {
		t.Error("Expected no SOP Instance UID in study result")
	}
}

func TestEncodeInstance_ProjectsSnapshot(t *testing.T) {
	snapshot, err := EncodeMetadata(&data.ObjectMetadata{
		PatientName:       "DOE^JOHN",
		StudyInstanceUID:  "1.2.3",
		SeriesInstanceUID: "1.2.3.4",
		SOPInstanceUID:    "1.2.3.4.5",
		InstanceNumber:    "9",
		Modality:          "US",
	}).Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	object := EncodeInstance(&data.Instance{SOPInstanceUID: "1.2.3.4.5", Metadata: snapshot})

	if len(object) != 5 {
		t.Fatalf("Expected 5 attributes, got %d", len(object))
	}
	if value, _ := object.Get(FieldModality); value != "US" {
		t.Errorf("Expected modality %q, got %q", "US", value)
	}
	if value, _ := object.Get(FieldInstanceNumber); value != "9" {
		t.Errorf("Expected instance number %q, got %q", "9", value)
	}
	if _, ok := object[FieldPatientName.Lookup().Tag]; ok {
		t.Error("Expected patient name to be projected away")
	}
}

func TestEncodeInstance_PartialSnapshot(t *testing.T) {
	object := EncodeInstance(&data.Instance{
		SOPInstanceUID: "1.2.3.4.5",
		Metadata:       json.RawMessage(`{"00080018":{"vr":"UI","Value":["1.2.3.4.5"]}}`),
	})

	if len(object) != 1 {
		t.Errorf("Expected only the attributes present in the snapshot, got %d", len(object))
	}
}
