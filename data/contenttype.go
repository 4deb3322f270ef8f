package data

import (
	"mime"
	"strings"
)

type ContentType string

const (
	ContentTypeDicom             = "application/dicom"
	ContentTypeApplicationStream = "application/octet-stream"
	ContentTypeMultipartRelated  = "multipart/related"
	ContentTypeMultipartFormData = "multipart/form-data"
)

// MediaType returns the lowercased media type of a Content-Type header
// without its parameters.
func MediaType(header string) ContentType {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType, _, _ = strings.Cut(header, ";")
	}

	return ContentType(strings.ToLower(strings.TrimSpace(mediaType)))
}
