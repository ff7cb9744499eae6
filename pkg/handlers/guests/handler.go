package guests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/de-tools/guest-lifecycle/pkg/adapters"
	"github.com/de-tools/guest-lifecycle/pkg/models/api"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite/runs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultRunsLimit = 50

type Runner interface {
	Run(ctx context.Context, kind domain.ClassificationKind) (domain.ClassificationResult, error)
}

type Handler struct {
	runner   Runner
	runStore runs.Store
}

func NewHandler(runner Runner, runStore runs.Store) *Handler {
	return &Handler{
		runner:   runner,
		runStore: runStore,
	}
}

func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := h.runner.Run(ctx, kind)
	if err != nil {
		logger.Error().Err(err).Str("kind", string(kind)).Msg("classification failed")
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapClassificationDomainToApi(result))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := h.runStore.ListRuns(ctx, limit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list runs")
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	response := make([]api.Run, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapRunDomainToApi(adapters.MapStoreRunToDomain(rec)))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rec, err := h.runStore.GetRun(ctx, id)
	switch {
	case errors.Is(err, runs.ErrRunNotFound):
		writeError(w, r, http.StatusNotFound, err)
		return
	case err != nil:
		zerolog.Ctx(ctx).Error().Err(err).Str("run", id).Msg("failed to get run")
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapRunDomainToApi(adapters.MapStoreRunToDomain(*rec)))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, r, status, api.ErrorResponse{Error: err.Error()})
}
