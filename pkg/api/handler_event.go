package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// listJobEventsHandler handles GET /api/v1/jobs/:id/events?since=N, a
// resumable poll of a job's progress event stream.
func (s *Server) listJobEventsHandler(c *gin.Context) {
	var since int64
	if v := c.Query("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an integer sequence number"})
			return
		}
		since = n
	}

	resp, err := s.events.EventsSince(c.Request.Context(), c.Param("id"), since)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
