package backend_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/backend/memory"
	"github.com/mwantia/dicomweb/backend/postgres"
	"github.com/mwantia/dicomweb/backend/sqlite"
	"github.com/mwantia/dicomweb/data"
)

// TestBackend combines both contracts, every backend under test implements both.
type TestBackend interface {
	backend.MetadataBackend
	backend.BlobBackend
}

// TestBackendFactory creates a new backend instance for testing.
type TestBackendFactory func(t *testing.T) (TestBackend, error)

// GetTestBackendFactories returns all backend implementations to test.
func GetTestBackendFactories() map[string]TestBackendFactory {
	return map[string]TestBackendFactory{
		"memory": func(t *testing.T) (TestBackend, error) {
			return memory.NewMemoryBackend(), nil
		},
		"sqlite": func(t *testing.T) (TestBackend, error) {
			return sqlite.NewSQLiteBackend(":memory:")
		},
		"postgres": newTestPostgresBackend,
	}
}

// newTestPostgresBackend connects to DICOMWEB_POSTGRES_DSN and empties all
// tables. The test is skipped when no DSN is set.
func newTestPostgresBackend(t *testing.T) (TestBackend, error) {
	dsn := os.Getenv("DICOMWEB_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DICOMWEB_POSTGRES_DSN not set")
	}

	pb, err := postgres.NewPostgresBackend(t.Context(), dsn)
	if err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(t.Context(), dsn)
	if err != nil {
		pb.Close(t.Context())
		return nil, err
	}
	defer conn.Close(t.Context())

	if _, err := conn.Exec(t.Context(), "TRUNCATE studies, series, instances, blobs"); err != nil {
		pb.Close(t.Context())
		return nil, err
	}

	return pb, nil
}

func openTestBackend(t *testing.T, factory TestBackendFactory) TestBackend {
	t.Helper()

	b, err := factory(t)
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}
	if err := b.Open(t.Context()); err != nil {
		t.Fatalf("Backend open failed: %v", err)
	}
	t.Cleanup(func() {
		b.Close(t.Context())
	})

	return b
}

var baseTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newStudy(uid, patientName, patientID string, offset time.Duration) *data.Study {
	return &data.Study{
		StudyInstanceUID: uid,
		StudyDate:        "20240115",
		StudyTime:        "101500",
		StudyDescription: "CT HEAD",
		PatientName:      patientName,
		PatientID:        patientID,
		AccessionNumber:  "ACC-" + uid,
		CreatedAt:        baseTime.Add(offset),
	}
}

func TestAllBackends_UpsertIdempotence(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			study := newStudy("1.2.3", "DOE^JANE", "P1", 0)
			for i := 0; i < 2; i++ {
				affected, err := b.UpsertStudy(ctx, study)
				if err != nil {
					tst.Fatalf("UpsertStudy failed: %v", err)
				}
				if affected != 1 {
					tst.Errorf("Expected 1 row affected, got %d", affected)
				}
			}

			studies, err := b.SearchStudies(ctx, &backend.StudyQuery{})
			if err != nil {
				tst.Fatalf("SearchStudies failed: %v", err)
			}
			if len(studies) != 1 {
				tst.Fatalf("Expected 1 study after repeated upsert, got %d", len(studies))
			}

			got, err := b.GetStudy(ctx, "1.2.3")
			if err != nil {
				tst.Fatalf("GetStudy failed: %v", err)
			}
			if got.PatientName != "DOE^JANE" || got.AccessionNumber != "ACC-1.2.3" {
				tst.Errorf("Unexpected study content: %+v", got)
			}
			if !got.CreatedAt.Equal(study.CreatedAt) {
				tst.Errorf("Expected created_at %v, got %v", study.CreatedAt, got.CreatedAt)
			}
		})
	}
}

func TestAllBackends_UpsertReplacesAllFields(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			if _, err := b.UpsertSeries(ctx, &data.Series{
				SeriesInstanceUID: "1.2.3.1",
				StudyInstanceUID:  "1.2.3",
				Modality:          "CT",
				SeriesNumber:      3,
				SeriesDescription: "AXIAL",
			}); err != nil {
				tst.Fatalf("UpsertSeries failed: %v", err)
			}

			if _, err := b.UpsertSeries(ctx, &data.Series{
				SeriesInstanceUID: "1.2.3.1",
				StudyInstanceUID:  "9.9.9",
				Modality:          "MR",
			}); err != nil {
				tst.Fatalf("UpsertSeries failed: %v", err)
			}

			got, err := b.GetSeries(ctx, "1.2.3.1")
			if err != nil {
				tst.Fatalf("GetSeries failed: %v", err)
			}
			if got.StudyInstanceUID != "9.9.9" || got.Modality != "MR" || got.SeriesNumber != 0 || got.SeriesDescription != "" {
				tst.Errorf("Expected full replace, got %+v", got)
			}

			// The series moved, the old study has no series left
			series, err := b.ListSeriesOfStudy(ctx, "1.2.3")
			if err != nil {
				tst.Fatalf("ListSeriesOfStudy failed: %v", err)
			}
			if len(series) != 0 {
				tst.Errorf("Expected 0 series for old study, got %d", len(series))
			}
		})
	}
}

func TestAllBackends_GetNotExist(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			if _, err := b.GetStudy(ctx, "missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for study, got %v", err)
			}
			if _, err := b.GetSeries(ctx, "missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for series, got %v", err)
			}
			if _, err := b.GetInstance(ctx, "missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for instance, got %v", err)
			}
		})
	}
}

func TestAllBackends_InstanceRoundTrip(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			snapshot := json.RawMessage(`{"00100010":{"vr":"PN","Value":[{"Alphabetic":"DOE^JOHN"}]},"00080018":{"vr":"UI","Value":["1.2.3.1.1"]}}`)
			instances := []*data.Instance{
				{SOPInstanceUID: "1.2.3.1.2", SeriesInstanceUID: "1.2.3.1", StudyInstanceUID: "1.2.3", InstanceNumber: 2, BlobKey: "b.dcm", BlobSize: 20},
				{SOPInstanceUID: "1.2.3.1.1", SeriesInstanceUID: "1.2.3.1", StudyInstanceUID: "1.2.3", InstanceNumber: 1, BlobKey: "a.dcm", BlobSize: 10,
					TransferSyntaxUID: "1.2.840.10008.1.2.1", Metadata: snapshot},
				{SOPInstanceUID: "1.2.3.2.1", SeriesInstanceUID: "1.2.3.2", StudyInstanceUID: "1.2.3", InstanceNumber: 1, BlobKey: "c.dcm", BlobSize: 30},
			}
			for _, instance := range instances {
				if _, err := b.UpsertInstance(ctx, instance); err != nil {
					tst.Fatalf("UpsertInstance failed: %v", err)
				}
			}

			got, err := b.GetInstance(ctx, "1.2.3.1.1")
			if err != nil {
				tst.Fatalf("GetInstance failed: %v", err)
			}
			if got.BlobKey != "a.dcm" || got.BlobSize != 10 || got.InstanceNumber != 1 {
				tst.Errorf("Unexpected instance content: %+v", got)
			}
			if got.TransferSyntaxUID != "1.2.840.10008.1.2.1" {
				tst.Errorf("Expected transfer syntax, got %q", got.TransferSyntaxUID)
			}

			if !bytes.Equal(got.Metadata, snapshot) {
				tst.Errorf("Expected snapshot to be returned verbatim:\n got %s\nwant %s", got.Metadata, snapshot)
			}

			listed, err := b.ListInstancesOfSeries(ctx, "1.2.3.1")
			if err != nil {
				tst.Fatalf("ListInstancesOfSeries failed: %v", err)
			}
			if len(listed) != 2 {
				tst.Fatalf("Expected 2 instances, got %d", len(listed))
			}
			if listed[0].SOPInstanceUID != "1.2.3.1.1" || listed[1].SOPInstanceUID != "1.2.3.1.2" {
				tst.Errorf("Expected UID order, got %q, %q", listed[0].SOPInstanceUID, listed[1].SOPInstanceUID)
			}
		})
	}
}

func TestAllBackends_SearchStudies(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			fixtures := []*data.Study{
				newStudy("1.1", "DOE^JOHN", "P1", 1*time.Minute),
				newStudy("1.2", "DOE^JANE", "P2", 2*time.Minute),
				newStudy("1.3", "SMITH^100%_SURE", "P1", 3*time.Minute),
				newStudy("1.4", "doe^lower", "P3", 3*time.Minute),
			}
			fixtures[1].StudyDate = "20240201"
			for _, study := range fixtures {
				if _, err := b.UpsertStudy(ctx, study); err != nil {
					tst.Fatalf("UpsertStudy failed: %v", err)
				}
			}

			tests := []struct {
				name     string
				query    *backend.StudyQuery
				expected []string
			}{
				{"empty", &backend.StudyQuery{}, []string{"1.3", "1.4", "1.2", "1.1"}},
				{"nil", nil, []string{"1.3", "1.4", "1.2", "1.1"}},
				{"substring", &backend.StudyQuery{PatientName: "DOE"}, []string{"1.2", "1.1"}},
				{"case sensitive", &backend.StudyQuery{PatientName: "doe"}, []string{"1.4"}},
				{"literal percent", &backend.StudyQuery{PatientName: "100%_"}, []string{"1.3"}},
				{"percent is no wildcard", &backend.StudyQuery{PatientName: "%"}, []string{"1.3"}},
				{"underscore is no wildcard", &backend.StudyQuery{PatientName: "D_E"}, []string{}},
				{"asterisk is no wildcard", &backend.StudyQuery{PatientName: "DOE*"}, []string{}},
				{"exact id", &backend.StudyQuery{PatientID: "P1"}, []string{"1.3", "1.1"}},
				{"composition", &backend.StudyQuery{PatientName: "DOE", PatientID: "P1"}, []string{"1.1"}},
				{"date", &backend.StudyQuery{StudyDate: "20240201"}, []string{"1.2"}},
				{"accession", &backend.StudyQuery{AccessionNumber: "ACC-1.4"}, []string{"1.4"}},
				{"no match", &backend.StudyQuery{PatientID: "P9"}, []string{}},
			}

			for _, test := range tests {
				studies, err := b.SearchStudies(ctx, test.query)
				if err != nil {
					tst.Fatalf("SearchStudies(%s) failed: %v", test.name, err)
				}

				got := make([]string, 0, len(studies))
				for _, study := range studies {
					got = append(got, study.StudyInstanceUID)
				}

				if len(got) != len(test.expected) {
					tst.Errorf("%s: expected %v, got %v", test.name, test.expected, got)
					continue
				}
				for i := range got {
					if got[i] != test.expected[i] {
						tst.Errorf("%s: expected %v, got %v", test.name, test.expected, got)
						break
					}
				}
			}
		})
	}
}

func TestAllBackends_BlobLifecycle(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			key := data.NewBlobKey()
			content := []byte("hello dicom")

			if _, err := b.PutBlob(ctx, key, bytes.NewReader(content), int64(len(content))); err != nil {
				tst.Fatalf("PutBlob failed: %v", err)
			}

			stat, err := b.StatBlob(ctx, key)
			if err != nil {
				tst.Fatalf("StatBlob failed: %v", err)
			}
			if stat.Size != int64(len(content)) {
				tst.Errorf("Expected size %d, got %d", len(content), stat.Size)
			}

			reader, err := b.OpenBlob(ctx, key)
			if err != nil {
				tst.Fatalf("OpenBlob failed: %v", err)
			}
			got, err := io.ReadAll(reader)
			reader.Close()
			if err != nil {
				tst.Fatalf("ReadAll failed: %v", err)
			}
			if !bytes.Equal(got, content) {
				tst.Errorf("Expected %q, got %q", content, got)
			}

			if err := b.DeleteBlob(ctx, key); err != nil {
				tst.Fatalf("DeleteBlob failed: %v", err)
			}
			if _, err := b.OpenBlob(ctx, key); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist after delete, got %v", err)
			}
			if err := b.DeleteBlob(ctx, key); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for second delete, got %v", err)
			}
		})
	}
}
