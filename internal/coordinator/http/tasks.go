package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/caseflow/caseflow/internal/coordinator/domain"
	"github.com/caseflow/caseflow/internal/coordinator/metrics"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/pkg/httpx"
)

// TaskHandler serves the task endpoints.
type TaskHandler struct {
	TaskService *service.TaskService
}

type taskResponse struct {
	ID             string `json:"id"`
	ProcessID      string `json:"processId"`
	Name           string `json:"name"`
	CandidateUser  string `json:"candidateUser,omitempty"`
	CandidateGroup string `json:"candidateGroup,omitempty"`
	Assignee       string `json:"assignee,omitempty"`
	Status         string `json:"status"`
}

func taskResponses(tasks []domain.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskResponse{
			ID:             t.ID,
			ProcessID:      t.ProcessID,
			Name:           t.Name,
			CandidateUser:  t.CandidateUser,
			CandidateGroup: t.CandidateGroup,
			Assignee:       t.Assignee,
			Status:         string(t.Status),
		})
	}
	return out
}

// username resolves the acting user: the userName parameter when present,
// otherwise the token's username claim.
func (h *TaskHandler) username(r *http.Request, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	return usernameFromCtx(r)
}

// HandleMine serves GET /tasks: the user's claimed tasks plus open tasks
// where they are the candidate user.
func (h *TaskHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	user := h.username(r, r.URL.Query().Get("userName"))
	if user == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "userName is required")
		return
	}

	tasks, err := retryRead(func() ([]domain.Task, error) {
		return h.TaskService.TasksFor(r.Context(), user)
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskResponses(tasks))
}

// HandleCandidates serves GET /tasks/candidates.
func (h *TaskHandler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	user := h.username(r, r.URL.Query().Get("userName"))
	if user == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "userName is required")
		return
	}

	tasks, err := retryRead(func() ([]domain.Task, error) {
		return h.TaskService.CandidateTasks(r.Context(), user)
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskResponses(tasks))
}

// HandleCandidatesByGroup serves GET /tasks/candidates-by-group.
func (h *TaskHandler) HandleCandidatesByGroup(w http.ResponseWriter, r *http.Request) {
	role := strings.TrimSpace(r.URL.Query().Get("roleName"))
	if role == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "roleName is required")
		return
	}

	tasks, err := retryRead(func() ([]domain.Task, error) {
		return h.TaskService.CandidateGroupTasks(r.Context(), role)
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskResponses(tasks))
}

// HandleClaim serves POST /tasks/claim.
func (h *TaskHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	taskID := strings.TrimSpace(r.Form.Get("taskId"))
	user := h.username(r, r.Form.Get("userName"))
	if taskID == "" || user == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "taskId and userName are required")
		return
	}

	if err := h.TaskService.Claim(r.Context(), taskID, user); err != nil {
		writeServiceError(w, r, err)
		return
	}

	metrics.TasksClaimed.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnclaim serves POST /tasks/unclaim.
func (h *TaskHandler) HandleUnclaim(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	taskID := strings.TrimSpace(r.Form.Get("taskId"))
	user := h.username(r, r.Form.Get("userName"))
	if taskID == "" || user == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "taskId and userName are required")
		return
	}

	if err := h.TaskService.Unclaim(r.Context(), taskID, user); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSolve serves POST /tasks/solve. The approved parameter accepts the
// usual boolean spellings ("true", "1", "false", "0").
func (h *TaskHandler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	taskID := strings.TrimSpace(r.Form.Get("taskId"))
	user := h.username(r, r.Form.Get("userName"))
	if taskID == "" || user == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "taskId and userName are required")
		return
	}

	approved, err := strconv.ParseBool(r.Form.Get("approved"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "approved must be a boolean")
		return
	}

	if err := h.TaskService.Solve(r.Context(), taskID, user, approved); err != nil {
		writeServiceError(w, r, err)
		return
	}

	metrics.TasksCompleted.Inc()
	w.WriteHeader(http.StatusNoContent)
}
