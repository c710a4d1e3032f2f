package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lilyanlefevre/formula-corrector/internal/analysis"
	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
	apperrors "github.com/lilyanlefevre/formula-corrector/pkg/errors"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

type Handler struct {
	service *analysis.Service
	load    compound.LoadOptions
	match   matcher.Options
	logger  *slog.Logger
}

// New serves analyses with load and match as the per-request defaults.
func New(service *analysis.Service, load compound.LoadOptions, match matcher.Options) *Handler {
	return &Handler{
		service: service,
		load:    load,
		match:   match,
		logger:  logger.WithComponent("analysis-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/analyses", h.CreateAnalysis)
	mux.HandleFunc("GET /api/v1/analyses", h.ListAnalyses)
	mux.HandleFunc("GET /api/v1/analyses/latest", h.LatestAnalysis)
	mux.HandleFunc("GET /api/v1/corrections", h.GetCorrections)
	mux.HandleFunc("PUT /api/v1/corrections", h.PutCorrections)
}

// CreateAnalysis analyses the compound CSV in the body. Query parameters
// exclude_self, delimiter, encoding and no_header override the configured
// defaults. filter, sort and desc shape the returned compound list, which
// otherwise keeps input order.
func (h *Handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	load := h.load
	if v := q.Get("delimiter"); v != "" {
		load.Delimiter = v
	}
	if v := q.Get("encoding"); v != "" {
		load.Encoding = v
	}
	opts := h.match
	var err error
	if load.NoHeader, err = boolParam(q.Get("no_header"), load.NoHeader); err != nil {
		h.writeError(w, apperrors.Invalid("no_header: %v", err))
		return
	}
	if opts.ExcludeSelf, err = boolParam(q.Get("exclude_self"), opts.ExcludeSelf); err != nil {
		h.writeError(w, apperrors.Invalid("exclude_self: %v", err))
		return
	}
	key, err := compound.ParseSortKey(q.Get("sort"))
	if err != nil {
		h.writeError(w, apperrors.Invalid("%v", err))
		return
	}
	desc, err := boolParam(q.Get("desc"), false)
	if err != nil {
		h.writeError(w, apperrors.Invalid("desc: %v", err))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, apperrors.Newf(apperrors.ErrTooLarge, http.StatusRequestEntityTooLarge,
				"compound dataset exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, apperrors.Invalid("reading request body: %v", err))
		return
	}

	report, err := h.service.AnalyzeReader(ctx, "http", bytes.NewReader(body), load, opts)
	if err != nil {
		logger.FromContext(ctx).Error("analysis failed", "error", err)
		h.writeError(w, err)
		return
	}

	report.Compounds = matcher.Filter(report.Compounds, report.Results, q.Get("filter"))
	if q.Get("sort") != "" {
		counts := matcher.Counts(report.Results)
		report.Compounds = compound.Sort(report.Compounds, compound.SortOptions{
			Key:        key,
			Descending: desc,
			MatchCount: func(e compound.Entry) int { return counts[e.ID] },
		})
	}
	h.writeJSON(w, http.StatusOK, report)
}

// ListAnalyses returns persisted run summaries, newest first.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.Invalid("limit must be a positive integer"))
			return
		}
		limit = min(n, maxRunLimit)
	}
	runs, err := h.service.Runs(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (h *Handler) LatestAnalysis(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.LatestRun(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) GetCorrections(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Corrections(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCorrections(w, list)
}

// PutCorrections replaces the library with the correction list in the body,
// one formula per line.
func (h *Handler) PutCorrections(w http.ResponseWriter, r *http.Request) {
	list, err := correction.ReadList(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, apperrors.Newf(apperrors.ErrTooLarge, http.StatusRequestEntityTooLarge,
				"correction list exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, apperrors.Invalid("reading correction list: %v", err))
		return
	}
	saved, err := h.service.ReplaceCorrections(r.Context(), list)
	if err != nil {
		logger.FromContext(r.Context()).Error("replacing corrections failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeCorrections(w, saved)
}

func (h *Handler) writeCorrections(w http.ResponseWriter, list []correction.Correction) {
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name()
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"corrections": names, "count": len(names)})
}

func boolParam(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError hides internal error text behind a generic message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := apperrors.Message(err)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
