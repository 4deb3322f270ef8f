package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/dicomweb"
	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/dicom"
)

type SearchResponse[T any] struct {
	Status            string                  `json:"status"`
	Count             int                     `json:"count"`
	StudyInstanceUID  string                  `json:"studyInstanceUID,omitempty"`
	SeriesInstanceUID string                  `json:"seriesInstanceUID,omitempty"`
	Criteria          any                     `json:"criteria,omitempty"`
	Results           []T                     `json:"results"`
	DicomWebResponse  []dicom.AttributeObject `json:"dicomWebResponse"`
}

func newSearchResponse[T any](result *dicomweb.QueryResult[T]) *SearchResponse[T] {
	return &SearchResponse[T]{
		Status:           "success",
		Count:            result.Len(),
		Results:          result.Records,
		DicomWebResponse: result.Attributes,
	}
}

func (s *Server) handleSearchStudies(c *gin.Context) {
	query := &backend.StudyQuery{
		PatientName:     c.Query("PatientName"),
		PatientID:       c.Query("PatientID"),
		StudyDate:       c.Query("StudyDate"),
		AccessionNumber: c.Query("AccessionNumber"),
	}

	result, err := s.service.SearchStudies(c.Request.Context(), query)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	response := newSearchResponse(result)
	response.Criteria = query
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleSearchSeries(c *gin.Context) {
	studyUID := c.Param("study")

	number, err := dicomweb.ParseSeriesNumber(c.Query("SeriesNumber"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	query := &backend.SeriesQuery{
		Modality:     c.Query("Modality"),
		SeriesNumber: number,
	}

	result, err := s.service.SearchSeries(c.Request.Context(), studyUID, query)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	response := newSearchResponse(result)
	response.StudyInstanceUID = studyUID
	response.Criteria = query
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleSearchInstances(c *gin.Context) {
	studyUID, seriesUID := c.Param("study"), c.Param("series")

	result, err := s.service.SearchInstances(c.Request.Context(), studyUID, seriesUID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	response := newSearchResponse(result)
	response.StudyInstanceUID = studyUID
	response.SeriesInstanceUID = seriesUID
	c.JSON(http.StatusOK, response)
}

type StatisticsResponse struct {
	Status     string               `json:"status"`
	Statistics *dicomweb.Statistics `json:"statistics"`
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := s.service.Statistics(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatisticsResponse{
		Status:     "success",
		Statistics: stats,
	})
}
