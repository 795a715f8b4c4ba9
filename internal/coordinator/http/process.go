package http

import (
	"net/http"
	"strings"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/metrics"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/pkg/httpx"
)

// DefaultDefinitionKey is the flow started when the request names none.
const DefaultDefinitionKey = "approval"

// ProcessHandler serves the process endpoints.
type ProcessHandler struct {
	ProcessService *service.ProcessService
}

type processResponse struct {
	ID            string            `json:"id"`
	DefinitionKey string            `json:"definitionKey"`
	BusinessKey   string            `json:"businessKey,omitempty"`
	Starter       string            `json:"starter"`
	Variables     map[string]string `json:"variables"`
	Status        string            `json:"status"`
}

// HandleStart serves POST /process. The starter defaults to the token's
// username when the userName parameter is absent.
func (h *ProcessHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	starter := strings.TrimSpace(r.Form.Get("userName"))
	if starter == "" {
		starter = usernameFromCtx(r)
	}
	if starter == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "userName is required")
		return
	}

	definitionKey := strings.TrimSpace(r.Form.Get("flow"))
	if definitionKey == "" {
		definitionKey = DefaultDefinitionKey
	}

	_, err := h.ProcessService.Start(r.Context(), service.StartProcessRequest{
		DefinitionKey: definitionKey,
		BusinessKey:   strings.TrimSpace(r.Form.Get("businessKey")),
		Starter:       starter,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	metrics.ProcessesStarted.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// HandleGet serves GET /process/{id}.
func (h *ProcessHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	proc, err := retryRead(func() (domain.ProcessInstance, error) {
		return h.ProcessService.Get(r.Context(), r.PathValue("id"))
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, processResponse{
		ID:            proc.ID,
		DefinitionKey: proc.DefinitionKey,
		BusinessKey:   proc.BusinessKey,
		Starter:       proc.StarterID,
		Variables:     proc.Variables,
		Status:        string(proc.Status),
	})
}

// usernameFromCtx pulls the username claim the authn middleware stored.
func usernameFromCtx(r *http.Request) string {
	if claims, ok := httpx.ClaimsFromCtx(r.Context()); ok {
		return claims.Username
	}
	return ""
}
