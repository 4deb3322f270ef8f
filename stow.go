package dicomweb

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/dicom"
)

// Failure reasons reported in the FailedSOPSequence (0008,1197).
const (
	FailureReasonProcessing       uint16 = 0x0110
	FailureReasonOutOfResources   uint16 = 0xA700
	FailureReasonMismatch         uint16 = 0xA900
	FailureReasonCannotUnderstand uint16 = 0xC000
)

// Object is one uploaded part of a STOW request.
type Object struct {
	Filename string
	Content  []byte
}

// ObjectResult is the outcome of ingesting a single object. Err is nil on success.
type ObjectResult struct {
	Filename string
	Metadata *data.ObjectMetadata
	BlobKey  string
	Size     int64
	Err      error
}

func (r *ObjectResult) Succeeded() bool {
	return r.Err == nil
}

// SOPInstanceUID returns the instance identifier if extraction got that far.
func (r *ObjectResult) SOPInstanceUID() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata.SOPInstanceUID
}

func (r *ObjectResult) StudyInstanceUID() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata.StudyInstanceUID
}

func (r *ObjectResult) SeriesInstanceUID() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata.SeriesInstanceUID
}

// FailureReason maps the error of a failed object onto a DICOM failure reason code.
func (r *ObjectResult) FailureReason() uint16 {
	switch {
	case r.Err == nil:
		return 0
	case errors.Is(r.Err, data.ErrDecode), errors.Is(r.Err, data.ErrValidation):
		return FailureReasonCannotUnderstand
	case errors.Is(r.Err, data.ErrMismatch):
		return FailureReasonMismatch
	case errors.Is(r.Err, data.ErrTooLarge):
		return FailureReasonOutOfResources
	default:
		return FailureReasonProcessing
	}
}

// IngestResult groups the per-object outcomes of one batch in input order.
type IngestResult struct {
	Succeeded []*ObjectResult
	Failed    []*ObjectResult
}

type IngestStatus string

const (
	IngestSuccess IngestStatus = "success"
	IngestPartial IngestStatus = "partial"
	IngestFailed  IngestStatus = "failed"
)

func (r *IngestResult) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

func (r *IngestResult) Status() IngestStatus {
	switch {
	case len(r.Failed) == 0:
		return IngestSuccess
	case len(r.Succeeded) == 0:
		return IngestFailed
	default:
		return IngestPartial
	}
}

// Ingest stores every object of the batch one after another. A non-empty
// expectedStudyUID rejects objects belonging to another study. Failures are
// recorded per object and never stop the batch; the staged blob of a failed
// object is removed again.
func (s *Service) Ingest(ctx context.Context, objects []Object, expectedStudyUID string) *IngestResult {
	result := &IngestResult{
		Succeeded: make([]*ObjectResult, 0, len(objects)),
		Failed:    make([]*ObjectResult, 0),
	}

	for _, object := range objects {
		outcome := s.ingestObject(ctx, object, expectedStudyUID)
		if outcome.Succeeded() {
			s.log.Info("Ingest: stored %s (sop=%s series=%s study=%s)", object.Filename,
				outcome.SOPInstanceUID(), outcome.SeriesInstanceUID(), outcome.StudyInstanceUID())
			result.Succeeded = append(result.Succeeded, outcome)
			continue
		}

		s.log.Warn("Ingest: failed to store %s - %v", object.Filename, outcome.Err)
		result.Failed = append(result.Failed, outcome)
	}

	return result
}

func (s *Service) ingestObject(ctx context.Context, object Object, expectedStudyUID string) *ObjectResult {
	outcome := &ObjectResult{
		Filename: object.Filename,
		Size:     int64(len(object.Content)),
	}

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	s.log.Debug("Ingest: validating size (size=%d) for %s", outcome.Size, object.Filename)
	if !s.Blobs.GetCapabilities().Accepts(outcome.Size) {
		outcome.Err = fmt.Errorf("%w: %d bytes for '%s'", data.ErrTooLarge, outcome.Size, s.Blobs.Name())
		return outcome
	}

	key := data.NewBlobKey()
	s.log.Debug("Ingest: staging %s as %s", object.Filename, key)
	if _, err := s.Blobs.PutBlob(ctx, key, bytes.NewReader(object.Content), outcome.Size); err != nil {
		outcome.Err = storeError("put blob", err)
		return outcome
	}
	outcome.BlobKey = key

	if err := s.persist(ctx, object, outcome, expectedStudyUID); err != nil {
		outcome.Err = err
		s.discard(ctx, key)
		outcome.BlobKey = ""
	}

	return outcome
}

func (s *Service) persist(ctx context.Context, object Object, outcome *ObjectResult, expectedStudyUID string) error {
	table, err := dicom.DecodeBytes(object.Content)
	if err != nil {
		return err
	}

	metadata, err := dicom.Extract(table)
	if err != nil {
		return err
	}
	outcome.Metadata = metadata

	if expectedStudyUID != "" && metadata.StudyInstanceUID != expectedStudyUID {
		return fmt.Errorf("%w: object belongs to %s, expected %s", data.ErrMismatch, metadata.StudyInstanceUID, expectedStudyUID)
	}

	snapshot, err := dicom.EncodeMetadata(metadata).Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	now := s.now()

	study := metadata.ToStudy()
	study.CreatedAt = now
	if _, err := s.Metadata.UpsertStudy(ctx, study); err != nil {
		return storeError("upsert study", err)
	}

	series := metadata.ToSeries()
	series.CreatedAt = now
	if _, err := s.Metadata.UpsertSeries(ctx, series); err != nil {
		return storeError("upsert series", err)
	}

	// A re-sent instance replaces the row; its previous blob is dropped afterwards
	unlock := s.instanceLocks.Lock(metadata.SOPInstanceUID)
	defer unlock()

	var previousKey string
	if existing, err := s.Metadata.GetInstance(ctx, metadata.SOPInstanceUID); err == nil {
		previousKey = existing.BlobKey
	} else if !errors.Is(err, data.ErrNotExist) {
		return storeError("get instance", err)
	}

	instance := metadata.ToInstance()
	instance.BlobKey = outcome.BlobKey
	instance.BlobSize = outcome.Size
	instance.Metadata = snapshot
	instance.CreatedAt = now
	if _, err := s.Metadata.UpsertInstance(ctx, instance); err != nil {
		return storeError("upsert instance", err)
	}

	if previousKey != "" && previousKey != outcome.BlobKey {
		s.log.Debug("Ingest: replacing blob %s of %s", previousKey, metadata.SOPInstanceUID)
		s.discard(ctx, previousKey)
	}

	return nil
}

// discard removes a staged blob. It runs detached from the request context
// so that a cancelled request still cleans up.
func (s *Service) discard(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.Blobs.DeleteBlob(ctx, key); err != nil && !errors.Is(err, data.ErrNotExist) {
		s.log.Error("Ingest: failed to remove staged blob %s - %v", key, err)
	}
}
