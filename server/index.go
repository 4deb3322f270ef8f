package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type endpoint struct {
	method      string
	path        string
	description string
}

var endpoints = map[string][]endpoint{
	"STOW-RS": {
		{http.MethodPost, "/studies", "Store objects"},
		{http.MethodPost, "/studies/{studyUID}", "Store objects into one study"},
	},
	"QIDO-RS": {
		{http.MethodGet, "/studies", "Search studies (PatientName, PatientID, StudyDate, AccessionNumber)"},
		{http.MethodGet, "/studies/{studyUID}/series", "Search series (Modality, SeriesNumber)"},
		{http.MethodGet, "/studies/{studyUID}/series/{seriesUID}/instances", "Search instances"},
		{http.MethodGet, "/statistics", "Aggregate statistics"},
	},
	"WADO-RS": {
		{http.MethodGet, "/studies/{studyUID}", "Retrieve study metadata"},
		{http.MethodGet, "/studies/{studyUID}/series/{seriesUID}", "Retrieve series metadata"},
		{http.MethodGet, "/studies/{studyUID}/series/{seriesUID}/instances/{instanceUID}", "Retrieve object"},
		{http.MethodGet, "/studies/{studyUID}/series/{seriesUID}/instances/{instanceUID}/metadata", "Retrieve object metadata"},
		{http.MethodGet, "/instances/{instanceUID}/file", "Retrieve object by instance"},
	},
}

func (s *Server) handleIndex(c *gin.Context) {
	groups := make(gin.H, len(endpoints))
	for group, entries := range endpoints {
		routes := make(gin.H, len(entries))
		for _, e := range entries {
			routes[e.method+" "+s.options.BasePath+e.path] = e.description
		}
		groups[group] = routes
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "DICOMweb server",
		"endpoints": groups,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":  "endpoint not found",
		"status": http.StatusNotFound,
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	})
}
