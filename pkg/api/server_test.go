package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/services"
	testdb "github.com/codeready-toolchain/protocolx/test/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	client := testdb.NewTestClient(t)

	return NewServer(
		&config.Config{
			ModuleRegistry:      config.NewModuleRegistry(nil, nil),
			LLMProviderRegistry: config.NewLLMProviderRegistry(nil),
		},
		client,
		services.NewProtocolService(client.Client),
		services.NewJobService(client.Client),
		services.NewEventService(client.Client),
		services.NewTableResultService(client.Client),
		services.NewMergePlanService(client.Client),
		nil,
	)
}

func TestServer_CreateAndGetProtocol(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/protocols?filename=protocol.pdf", bytes.NewReader([]byte("pdf bytes")))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.ProtocolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "protocol.pdf", created.Filename)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/protocols/"+created.ID, nil)
	rec = httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CreateProtocol_MissingFilename(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/protocols", bytes.NewReader([]byte("pdf bytes")))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateJobAndUpdateStatus(t *testing.T) {
	s := testServer(t)

	protoReq := httptest.NewRequest(http.MethodPost, "/api/v1/protocols?filename=protocol.pdf", bytes.NewReader([]byte("pdf bytes")))
	protoRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(protoRec, protoReq)
	require.Equal(t, http.StatusCreated, protoRec.Code)
	var proto models.ProtocolResponse
	require.NoError(t, json.Unmarshal(protoRec.Body.Bytes(), &proto))

	body, err := json.Marshal(models.CreateJobRequest{ProtocolID: proto.ID, Kind: "module_extraction"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var job models.JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "queued", job.Status)

	statusBody, err := json.Marshal(models.UpdateJobStatusRequest{Status: "running"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/jobs/"+job.ID+"/status", bytes.NewReader(statusBody))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetJob_NotFound(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/00000000-0000-0000-0000-000000000000", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func createSOAJob(t *testing.T, s *Server) models.JobResponse {
	t.Helper()

	protoReq := httptest.NewRequest(http.MethodPost, "/api/v1/protocols?filename=protocol.pdf", bytes.NewReader([]byte("pdf bytes")))
	protoRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(protoRec, protoReq)
	require.Equal(t, http.StatusCreated, protoRec.Code)
	var proto models.ProtocolResponse
	require.NoError(t, json.Unmarshal(protoRec.Body.Bytes(), &proto))

	body, err := json.Marshal(models.CreateJobRequest{ProtocolID: proto.ID, Kind: "soa"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var job models.JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	return job
}

func TestServer_CreateSOAJob_StartsAtDetectingPages(t *testing.T) {
	s := testServer(t)
	job := createSOAJob(t, s)
	assert.Equal(t, "detecting_pages", job.Status)
}

func TestServer_ConfirmPages_AdvancesToExtracting(t *testing.T) {
	s := testServer(t)
	job := createSOAJob(t, s)

	pagesBody, err := json.Marshal([]map[string]any{{"page": 1, "label": "SOA-1"}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+job.ID+"/pages/confirm", bytes.NewReader(pagesBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	rec = httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "extracting", updated.Status)
}

func TestServer_ListTableResults_EmptyForNewJob(t *testing.T) {
	s := testServer(t)
	job := createSOAJob(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/tables", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []*ent.TableResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Empty(t, results)
}

func TestServer_GetMergePlan_NotFoundBeforeAnalysis(t *testing.T) {
	s := testServer(t)
	job := createSOAJob(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/merge-plan", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
