package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/dicomweb"
	"github.com/mwantia/dicomweb/data"
)

// InstanceMetadataResponse is the stored snapshot of one instance.
type InstanceMetadataResponse struct {
	SOPInstanceUID    string          `json:"sopInstanceUID"`
	SeriesInstanceUID string          `json:"seriesInstanceUID"`
	StudyInstanceUID  string          `json:"studyInstanceUID"`
	InstanceNumber    int             `json:"instanceNumber"`
	FileSize          int64           `json:"fileSize"`
	TransferSyntaxUID string          `json:"transferSyntaxUID"`
	Metadata          json.RawMessage `json:"metadata"`
}

func (s *Server) handleRetrieveStudy(c *gin.Context) {
	result, err := s.service.RetrieveStudy(c.Request.Context(), c.Param("study"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRetrieveSeries(c *gin.Context) {
	result, err := s.service.RetrieveSeries(c.Request.Context(), c.Param("study"), c.Param("series"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRetrieveMetadata(c *gin.Context) {
	instance, err := s.service.RetrieveInstanceMetadata(c.Request.Context(), c.Param("study"), c.Param("series"), c.Param("instance"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, InstanceMetadataResponse{
		SOPInstanceUID:    instance.SOPInstanceUID,
		SeriesInstanceUID: instance.SeriesInstanceUID,
		StudyInstanceUID:  instance.StudyInstanceUID,
		InstanceNumber:    instance.InstanceNumber,
		FileSize:          instance.BlobSize,
		TransferSyntaxUID: instance.TransferSyntaxUID,
		Metadata:          instance.Metadata,
	})
}

func (s *Server) handleRetrieveInstance(c *gin.Context) {
	blob, err := s.service.RetrieveInstance(c.Request.Context(), c.Param("study"), c.Param("series"), c.Param("instance"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.writeBlob(c, blob)
}

func (s *Server) handleRetrieveFile(c *gin.Context) {
	blob, err := s.service.OpenInstance(c.Request.Context(), c.Param("instance"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.writeBlob(c, blob)
}

func (s *Server) writeBlob(c *gin.Context, blob *dicomweb.InstanceBlob) {
	defer blob.Close()

	c.DataFromReader(http.StatusOK, blob.Size, data.ContentTypeDicom, blob.Reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, blob.Filename()),
	})
}
