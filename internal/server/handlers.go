// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "api-insights/internal/common/errors"
)

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Narrative string `json:"narrative"`
	Chart     string `json:"chart,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type queryRequest struct {
	Index string                 `json:"index"`
	Query map[string]interface{} `json:"query"`
}

type queryResponse struct {
	Columns       []string                 `json:"columns"`
	Data          []map[string]interface{} `json:"data"`
	RowCount      int                      `json:"row_count"`
	ExecutionTime string                   `json:"execution_time"`
}

// telemetryTables is the fixed index surface exposed by /tables.
var telemetryTables = []map[string]string{
	{"name": "analytics-response-code-summary", "description": "Hit counts per aggregation window, API and response code"},
	{"name": "analytics-proxy-error-summary", "description": "Proxy error rows per aggregation window, API, error type and error code"},
	{"name": "analytics-target-response-summary", "description": "Median response and backend latency per aggregation window and API"},
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	answer, err := s.orchestrator.Answer(ctx, req.Question)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Narrative: answer.Narrative, Chart: answer.Chart})
}

// handleQuery runs a caller-supplied query against one telemetry index
// and returns rows in tabular form. It is a diagnostic surface, not part
// of the conversational flow.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if !knownTable(req.Index) {
		writeError(w, http.StatusBadRequest, "unknown index: "+req.Index, "")
		return
	}
	if req.Query == nil {
		req.Query = map[string]interface{}{"query": map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	body, err := json.Marshal(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", "")
		return
	}

	started := time.Now()
	res, err := esapi.SearchRequest{
		Index: []string{req.Index},
		Body:  strings.NewReader(string(body)),
	}.Do(r.Context(), s.es)
	if err != nil {
		writeError(w, http.StatusBadGateway, "telemetry store unavailable", string(apperrors.ErrCodeSourceUnavailable))
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		s.logger.Warn("raw query rejected by store", map[string]interface{}{"status": res.StatusCode})
		writeError(w, http.StatusBadRequest, "query rejected: "+string(data), "")
		return
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		writeError(w, http.StatusBadGateway, "malformed store reply", "")
		return
	}

	rows := make([]map[string]interface{}, 0, len(parsed.Hits.Hits))
	columnSet := make(map[string]bool)
	var columns []string
	for _, hit := range parsed.Hits.Hits {
		rows = append(rows, hit.Source)
		for field := range hit.Source {
			if !columnSet[field] {
				columnSet[field] = true
				columns = append(columns, field)
			}
		}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Columns:       columns,
		Data:          rows,
		RowCount:      len(rows),
		ExecutionTime: time.Since(started).String(),
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": telemetryTables})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.es != nil {
		res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
		if err != nil || res.IsError() {
			checks["elasticsearch"] = "down"
			healthy = false
		} else {
			checks["elasticsearch"] = "up"
		}
		if res != nil {
			res.Body.Close()
		}
	}
	if s.postgres != nil {
		if err := s.postgres.Ping(ctx); err != nil {
			checks["postgres"] = "down"
		} else {
			checks["postgres"] = "up"
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		writeError(w, statusForCode(stdErr.Code), apperrors.UserMessage(stdErr), string(stdErr.Code))
		return
	}
	writeError(w, http.StatusInternalServerError, "Something went wrong while answering your question. Please try again.", "")
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeIntentAPITimeout,
		apperrors.ErrCodeSourceTimeout,
		apperrors.ErrCodeExecutionTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeSourceUnavailable,
		apperrors.ErrCodeCatalogUnavailable,
		apperrors.ErrCodeCacheUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func knownTable(index string) bool {
	for _, table := range telemetryTables {
		if table["name"] == index {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
