package postgres

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
)

func openTestBackend(t *testing.T) *PostgresBackend {
	t.Helper()

	dsn := os.Getenv("DICOMWEB_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DICOMWEB_POSTGRES_DSN not set")
	}

	pb, err := NewPostgresBackend(t.Context(), dsn)
	if err != nil {
		t.Fatalf("NewPostgresBackend failed: %v", err)
	}
	if err := pb.Open(t.Context()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		pb.Close(t.Context())
	})

	if _, err := pb.pool.Exec(t.Context(), "TRUNCATE studies, series, instances, blobs"); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	return pb
}

func TestPostgresBackend_SnapshotVerbatim(t *testing.T) {
	pb := openTestBackend(t)
	ctx := t.Context()

	snapshot := json.RawMessage(`{"00100010":{"vr":"PN","Value":[{"Alphabetic":"DOE^JOHN"}]},"00080018":{"vr":"UI","Value":["I1"]}}`)
	instance := &data.Instance{
		SOPInstanceUID:    "I1",
		SeriesInstanceUID: "SE1",
		StudyInstanceUID:  "S1",
		BlobKey:           "a.dcm",
		Metadata:          snapshot,
	}
	if _, err := pb.UpsertInstance(ctx, instance); err != nil {
		t.Fatalf("UpsertInstance failed: %v", err)
	}

	got, err := pb.GetInstance(ctx, "I1")
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if !bytes.Equal(got.Metadata, snapshot) {
		t.Errorf("Expected snapshot to be returned verbatim:\n got %s\nwant %s", got.Metadata, snapshot)
	}
}

func TestPostgresBackend_MigratesJSONBSnapshots(t *testing.T) {
	pb := openTestBackend(t)
	ctx := t.Context()

	// Schema of earlier releases
	if _, err := pb.pool.Exec(ctx, "ALTER TABLE instances ALTER COLUMN metadata TYPE JSONB USING metadata::jsonb"); err != nil {
		t.Fatalf("Alter failed: %v", err)
	}
	if err := pb.initSchema(ctx); err != nil {
		t.Fatalf("initSchema failed: %v", err)
	}

	var columnType string
	row := pb.pool.QueryRow(ctx, `SELECT data_type FROM information_schema.columns
		WHERE table_name = 'instances' AND column_name = 'metadata'`)
	if err := row.Scan(&columnType); err != nil {
		t.Fatalf("Column lookup failed: %v", err)
	}
	if columnType != "text" {
		t.Errorf("Expected metadata column of type text, got %q", columnType)
	}
}

func TestPostgresBackend_SearchLiteralWildcards(t *testing.T) {
	pb := openTestBackend(t)
	ctx := t.Context()

	for _, study := range []*data.Study{
		{StudyInstanceUID: "S1", PatientName: "DOE%JOHN"},
		{StudyInstanceUID: "S2", PatientName: "DOE^JOHN"},
	} {
		if _, err := pb.UpsertStudy(ctx, study); err != nil {
			t.Fatalf("UpsertStudy failed: %v", err)
		}
	}

	studies, err := pb.SearchStudies(ctx, &backend.StudyQuery{PatientName: "E%J"})
	if err != nil {
		t.Fatalf("SearchStudies failed: %v", err)
	}
	if len(studies) != 1 || studies[0].StudyInstanceUID != "S1" {
		t.Errorf("Expected only S1 to match the literal '%%', got %d studies", len(studies))
	}
}
