// Package dicomtest builds small Part 10 objects for tests.
package dicomtest

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"testing"

	dcm "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	SecondaryCaptureClass  = "1.2.840.10008.5.1.4.1.1.7"
)

// Attributes returns a complete attribute set for one instance.
func Attributes(studyUID, seriesUID, sopUID string) map[tag.Tag]string {
	return map[tag.Tag]string{
		tag.PatientName:       "DOE^JOHN",
		tag.PatientID:         "PAT-001",
		tag.StudyInstanceUID:  studyUID,
		tag.StudyDate:         "20240115",
		tag.StudyTime:         "101500",
		tag.StudyDescription:  "CT HEAD W/O CONTRAST",
		tag.AccessionNumber:   "ACC-001",
		tag.SeriesInstanceUID: seriesUID,
		tag.SeriesNumber:      "3",
		tag.SeriesDescription: "AXIAL 5MM",
		tag.Modality:          "CT",
		tag.SOPInstanceUID:    sopUID,
		tag.SOPClassUID:       SecondaryCaptureClass,
		tag.InstanceNumber:    "1",
	}
}

// Build encodes the given attributes as an Explicit VR Little Endian object.
func Build(attributes map[tag.Tag]string) ([]byte, error) {
	sopUID := attributes[tag.SOPInstanceUID]
	if sopUID == "" {
		sopUID = "1.2.826.0.1.3680043.8.498.1"
	}

	elements := make([]*dcm.Element, 0, len(attributes)+5)
	meta := []struct {
		tag   tag.Tag
		value any
	}{
		{tag.FileMetaInformationVersion, []byte{0x00, 0x01}},
		{tag.MediaStorageSOPClassUID, []string{SecondaryCaptureClass}},
		{tag.MediaStorageSOPInstanceUID, []string{sopUID}},
		{tag.TransferSyntaxUID, []string{ExplicitVRLittleEndian}},
		{tag.ImplementationClassUID, []string{"1.2.826.0.1.3680043.8.498"}},
	}
	for _, m := range meta {
		element, err := dcm.NewElement(m.tag, m.value)
		if err != nil {
			return nil, fmt.Errorf("failed to create meta element %v: %w", m.tag, err)
		}
		elements = append(elements, element)
	}

	tags := slices.SortedFunc(maps.Keys(attributes), compareTags)
	for _, t := range tags {
		element, err := dcm.NewElement(t, []string{attributes[t]})
		if err != nil {
			return nil, fmt.Errorf("failed to create element %v: %w", t, err)
		}
		elements = append(elements, element)
	}

	var buf bytes.Buffer
	if err := dcm.Write(&buf, dcm.Dataset{Elements: elements}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// MustBuild is Build for tests, failing t on error.
func MustBuild(t testing.TB, attributes map[tag.Tag]string) []byte {
	t.Helper()

	content, err := Build(attributes)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return content
}

// Without returns a copy of attributes with the given tags removed.
func Without(attributes map[tag.Tag]string, tags ...tag.Tag) map[tag.Tag]string {
	result := maps.Clone(attributes)
	for _, t := range tags {
		delete(result, t)
	}
	return result
}

// With returns a copy of attributes with one tag replaced.
func With(attributes map[tag.Tag]string, t tag.Tag, value string) map[tag.Tag]string {
	result := maps.Clone(attributes)
	result[t] = value
	return result
}

func compareTags(a, b tag.Tag) int {
	if a.Group != b.Group {
		return int(a.Group) - int(b.Group)
	}
	return int(a.Element) - int(b.Element)
}
