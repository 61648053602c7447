package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/supervisor"
	"github.com/gin-gonic/gin"
)

// firstSubphase is the PIPELINE_SUBPHASE a freshly created job's first
// worker invocation runs, keyed by job kind. module_extraction jobs
// have no sub-phases of their own.
var firstSubphase = map[string]string{
	"soa":         "detect_pages",
	"eligibility": "detect_sections",
}

// createJobHandler handles POST /api/v1/jobs: it creates the job row,
// then hands it to the supervisor to spawn a pipeline worker process.
// Spawn failures are reported but the job row is left queued so an
// operator (or a future retry sweep) can requeue it.
func (s *Server) createJobHandler(c *gin.Context) {
	var req models.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.jobs.CreateJob(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if s.supervisor != nil {
		var payload map[string]string
		if subphase, ok := firstSubphase[string(job.Kind)]; ok {
			payload = map[string]string{"PIPELINE_SUBPHASE": subphase}
		}
		handle, err := s.supervisor.Spawn(supervisor.Phase(job.Kind), job.ID, req.ProtocolID, payload)
		if err != nil {
			slog.Error("Failed to spawn pipeline worker", "job_id", job.ID, "error", err)
		} else {
			s.supervisor.Register(job.ID, handle)
		}
	}

	c.JSON(http.StatusCreated, models.JobResponse{Job: job})
}

func (s *Server) getJobHandler(c *gin.Context) {
	job, err := s.jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.JobResponse{Job: job})
}

func (s *Server) listJobsHandler(c *gin.Context) {
	filters := models.JobFilters{
		Status:     c.Query("status"),
		Kind:       c.Query("kind"),
		ProtocolID: c.Query("protocol_id"),
	}
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

	resp, err := s.jobs.ListJobs(c.Request.Context(), filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) updateJobStatusHandler(c *gin.Context) {
	var req models.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.jobs.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.JobResponse{Job: job})
}

func (s *Server) updateJobProgressHandler(c *gin.Context) {
	var req models.UpdateJobProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.jobs.UpdateProgress(c.Request.Context(), c.Param("id"), req); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// confirmJobSectionsHandler handles POST /api/v1/jobs/:id/sections/confirm,
// the human-in-the-loop acknowledgement of the eligibility criteria
// sections an eligibility job detects before extraction proceeds past
// the awaiting_section_confirmation pause.
func (s *Server) confirmJobSectionsHandler(c *gin.Context) {
	var sections map[string]any
	if err := c.ShouldBindJSON(&sections); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := c.Param("id")
	if err := s.jobs.ConfirmSections(c.Request.Context(), jobID, sections); err != nil {
		writeServiceError(c, err)
		return
	}

	job, err := s.jobs.UpdateStatus(c.Request.Context(), jobID, models.UpdateJobStatusRequest{Status: "extracting"})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	s.spawnNext(supervisor.PhaseEligibility, job.ID, job.ProtocolID, "extract_interpret_validate")
	c.Status(http.StatusNoContent)
}

// confirmJobPagesHandler handles POST /api/v1/jobs/:id/pages/confirm,
// the human-in-the-loop acknowledgement of the SOA table page ranges
// a SOA job detects before extraction proceeds past the
// awaiting_page_confirmation pause.
func (s *Server) confirmJobPagesHandler(c *gin.Context) {
	var pages []interface{}
	if err := c.ShouldBindJSON(&pages); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := c.Param("id")
	if err := s.jobs.ConfirmPages(c.Request.Context(), jobID, pages); err != nil {
		writeServiceError(c, err)
		return
	}

	job, err := s.jobs.UpdateStatus(c.Request.Context(), jobID, models.UpdateJobStatusRequest{Status: "extracting"})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	s.spawnNext(supervisor.PhaseSOA, job.ID, job.ProtocolID, "extract_tables")
	c.Status(http.StatusNoContent)
}

// confirmMergePlanHandler handles POST /api/v1/jobs/:id/merge-plan/confirm,
// the human-in-the-loop acknowledgement of the 8-level merge analyzer's
// proposed table groups before a SOA job's awaiting_merge_confirmation
// pause gives way to interpretation.
func (s *Server) confirmMergePlanHandler(c *gin.Context) {
	var req models.ConfirmMergePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := c.Param("id")
	plan, err := s.plans.ForJob(c.Request.Context(), jobID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if _, err := s.plans.Confirm(c.Request.Context(), plan.ID, req); err != nil {
		writeServiceError(c, err)
		return
	}

	job, err := s.jobs.UpdateStatus(c.Request.Context(), jobID, models.UpdateJobStatusRequest{Status: "interpreting"})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	s.spawnNext(supervisor.PhaseSOA, job.ID, job.ProtocolID, "interpret")
	c.Status(http.StatusNoContent)
}

// listTableResultsHandler handles GET /api/v1/jobs/:id/tables, listing
// a SOA job's extracted table results in page order.
func (s *Server) listTableResultsHandler(c *gin.Context) {
	results, err := s.tables.ListForJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// getMergePlanHandler handles GET /api/v1/jobs/:id/merge-plan, returning
// a SOA job's most recent merge plan.
func (s *Server) getMergePlanHandler(c *gin.Context) {
	plan, err := s.plans.ForJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MergePlanResponse{MergePlan: plan})
}

// spawnNext starts the next sub-phase worker for a job that just
// cleared a confirmation pause. Spawn failures are logged, not
// returned: the confirmation itself already succeeded and the job row
// reflects it, so a stuck job can be resumed by an operator retry
// rather than losing the confirmation.
func (s *Server) spawnNext(phase supervisor.Phase, jobID, protocolID, subphase string) {
	if s.supervisor == nil {
		return
	}
	handle, err := s.supervisor.Spawn(phase, jobID, protocolID, map[string]string{"PIPELINE_SUBPHASE": subphase})
	if err != nil {
		slog.Error("Failed to spawn next pipeline worker", "job_id", jobID, "phase", phase, "subphase", subphase, "error", err)
		return
	}
	s.supervisor.Register(jobID, handle)
}
