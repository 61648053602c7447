package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/gin-gonic/gin"
)

const maxProtocolUploadBytes = 64 * 1024 * 1024

// createProtocolHandler handles POST /api/v1/protocols. The PDF is sent
// as the raw request body; the filename comes from the X-Filename header
// or query param.
func (s *Server) createProtocolHandler(c *gin.Context) {
	filename := c.GetHeader("X-Filename")
	if filename == "" {
		filename = c.Query("filename")
	}
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename required (X-Filename header or ?filename=)"})
		return
	}

	content, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProtocolUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(content) > maxProtocolUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "protocol exceeds maximum upload size"})
		return
	}

	p, err := s.protocols.CreateProtocol(c.Request.Context(), models.CreateProtocolRequest{
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ProtocolResponse{Protocol: p})
}

func (s *Server) getProtocolHandler(c *gin.Context) {
	p, err := s.protocols.GetProtocol(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProtocolResponse{Protocol: p})
}

func (s *Server) listProtocolsHandler(c *gin.Context) {
	filters := models.ProtocolFilters{Filename: c.Query("filename")}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Offset = n
		}
	}

	resp, err := s.protocols.ListProtocols(c.Request.Context(), filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
