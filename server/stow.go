package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/dicomweb"
	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/dicom"
)

// Attribute tags of the STOW-RS response.
const (
	tagRetrieveURL              = "00081190"
	tagFailedSOPSequence        = "00081198"
	tagReferencedSOPSequence    = "00081199"
	tagReferencedSOPInstanceUID = "00081155"
	tagFailureReason            = "00081197"
)

// multipart forms above this size spill to temporary files
const formMemory = 32 << 20

var errNoObjects = fmt.Errorf("%w: request contains no objects", data.ErrInvalid)

type StoredObject struct {
	Success           bool   `json:"success"`
	FileName          string `json:"fileName"`
	SOPInstanceUID    string `json:"sopInstanceUID"`
	StudyInstanceUID  string `json:"studyInstanceUID"`
	SeriesInstanceUID string `json:"seriesInstanceUID"`
}

type FailedObject struct {
	FileName       string `json:"fileName"`
	SOPInstanceUID string `json:"sopInstanceUID,omitempty"`
	Error          string `json:"error"`
	FailureReason  uint16 `json:"failureReason"`
}

type StoreResponse struct {
	Status           dicomweb.IngestStatus `json:"status"`
	Message          string                `json:"message"`
	Results          []StoredObject        `json:"results"`
	Errors           []FailedObject        `json:"errors,omitempty"`
	DicomWebResponse dicom.AttributeObject `json:"dicomWebResponse"`
}

func (s *Server) handleStore(c *gin.Context) {
	expectedStudyUID := c.Param("study")

	objects, err := s.readObjects(c)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	// Per-object failures are reported in the body; a processed batch is always 200
	result := s.service.Ingest(c.Request.Context(), objects, expectedStudyUID)
	c.JSON(http.StatusOK, s.newStoreResponse(c, result))
}

func (s *Server) newStoreResponse(c *gin.Context, result *dicomweb.IngestResult) *StoreResponse {
	baseURL := s.baseURL(c)

	response := &StoreResponse{
		Status:  result.Status(),
		Message: fmt.Sprintf("%d objects stored, %d failed", len(result.Succeeded), len(result.Failed)),
		Results: make([]StoredObject, 0, len(result.Succeeded)),
	}

	referenced := make([]any, 0, len(result.Succeeded))
	for _, outcome := range result.Succeeded {
		response.Results = append(response.Results, StoredObject{
			Success:           true,
			FileName:          outcome.Filename,
			SOPInstanceUID:    outcome.SOPInstanceUID(),
			StudyInstanceUID:  outcome.StudyInstanceUID(),
			SeriesInstanceUID: outcome.SeriesInstanceUID(),
		})

		retrieveURL := fmt.Sprintf("%s/studies/%s/series/%s/instances/%s", baseURL,
			outcome.StudyInstanceUID(), outcome.SeriesInstanceUID(), outcome.SOPInstanceUID())
		referenced = append(referenced, dicom.AttributeObject{
			tagReferencedSOPInstanceUID: {VR: "UI", Value: []any{outcome.SOPInstanceUID()}},
			tagRetrieveURL:              {VR: "UR", Value: []any{retrieveURL}},
		})
	}

	failed := make([]any, 0, len(result.Failed))
	for _, outcome := range result.Failed {
		message := outcome.Err.Error()
		if errors.Is(outcome.Err, data.ErrStore) {
			message = messageInternal
		}
		response.Errors = append(response.Errors, FailedObject{
			FileName:       outcome.Filename,
			SOPInstanceUID: outcome.SOPInstanceUID(),
			Error:          message,
			FailureReason:  outcome.FailureReason(),
		})

		item := dicom.AttributeObject{
			tagFailureReason: {VR: "US", Value: []any{outcome.FailureReason()}},
		}
		if uid := outcome.SOPInstanceUID(); uid != "" {
			item[tagReferencedSOPInstanceUID] = &dicom.Attribute{VR: "UI", Value: []any{uid}}
		}
		failed = append(failed, item)
	}

	response.DicomWebResponse = dicom.AttributeObject{
		tagRetrieveURL:           {VR: "UR", Value: []any{baseURL}},
		tagFailedSOPSequence:     {VR: "SQ", Value: failed},
		tagReferencedSOPSequence: {VR: "SQ", Value: referenced},
	}

	return response
}

// readObjects collects the uploaded objects from a multipart/related body, a
// multipart/form-data body (every file field) or a single application/dicom body.
func (s *Server) readObjects(c *gin.Context) ([]dicomweb.Object, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.options.MaxUploadSize)

	header := c.GetHeader("Content-Type")
	var objects []dicomweb.Object
	var err error

	switch data.MediaType(header) {
	case data.ContentTypeMultipartRelated:
		objects, err = readRelated(c.Request.Body, header)
	case data.ContentTypeMultipartFormData:
		objects, err = readForm(c.Request)
	case data.ContentTypeDicom, data.ContentTypeApplicationStream:
		objects, err = readSingle(c.Request.Body)
	default:
		return nil, fmt.Errorf("%w: unsupported content type '%s'", data.ErrInvalid, header)
	}
	if err != nil {
		return nil, err
	}

	if len(objects) == 0 {
		return nil, errNoObjects
	}

	return objects, nil
}

func readRelated(body io.Reader, header string) ([]dicomweb.Object, error) {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrInvalid, err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing multipart boundary", data.ErrInvalid)
	}

	reader := multipart.NewReader(body, boundary)
	objects := make([]dicomweb.Object, 0)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapReadError(err)
		}

		content, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, wrapReadError(err)
		}

		name := part.FileName()
		if name == "" {
			name = fmt.Sprintf("part-%d", len(objects)+1)
		}
		objects = append(objects, dicomweb.Object{Filename: name, Content: content})
	}

	return objects, nil
}

func readForm(r *http.Request) ([]dicomweb.Object, error) {
	if err := r.ParseMultipartForm(formMemory); err != nil {
		return nil, wrapReadError(err)
	}
	defer r.MultipartForm.RemoveAll()

	// Field names are sorted so that the batch order is stable
	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	objects := make([]dicomweb.Object, 0)
	for _, field := range fields {
		for _, fileHeader := range r.MultipartForm.File[field] {
			file, err := fileHeader.Open()
			if err != nil {
				return nil, wrapReadError(err)
			}
			content, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, wrapReadError(err)
			}

			objects = append(objects, dicomweb.Object{Filename: fileHeader.Filename, Content: content})
		}
	}

	return objects, nil
}

func readSingle(body io.Reader) ([]dicomweb.Object, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, wrapReadError(err)
	}
	if len(content) == 0 {
		return nil, nil
	}

	return []dicomweb.Object{{Filename: "body" + data.BlobKeyExtension, Content: content}}, nil
}

// wrapReadError keeps size limit errors and reports everything else as a bad request.
func wrapReadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("%w: failed to read upload: %v", data.ErrInvalid, err)
}

// baseURL derives the public DICOMweb root from the request.
func (s *Server) baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	// Only the two known schemes are taken from the proxy header
	switch forwarded := strings.ToLower(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto"))); forwarded {
	case "http", "https":
		scheme = forwarded
	}

	return fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, s.options.BasePath)
}
