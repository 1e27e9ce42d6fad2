package httpapi

import (
	"net/http"

	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

type jobsStatusResponse struct {
	Jobs     []usecase.JobStatus                `json:"jobs"`
	Breakers map[string]resilience.CircuitState `json:"breakers"`
}

func (h *Handler) GetJobsStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetJobsStatus")
	defer span.End()

	out := jobsStatusResponse{
		Jobs:     []usecase.JobStatus{},
		Breakers: map[string]resilience.CircuitState{},
	}
	if h.jobs != nil {
		out.Jobs = h.jobs.Status()
	}
	if h.breakers != nil {
		out.Breakers = h.breakers.States()
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}
