package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Registrations,Groups,Aggregates

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/aggregate"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/group"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/httputil"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/requestcontext"
)

// Service is the finalization write path.
type Service interface {
	Finalize(ctx context.Context, req models.FinalizeRequest) (*models.Receipt, error)
}

// Registrations serves registration reads.
type Registrations interface {
	Get(id models.RegistrationID) (models.Registration, bool)
	ListPending(filter models.Filter) []models.Registration
	ListFinalized(filter models.Filter) []models.Registration
	GroupMembers(groupID string) []models.Registration
}

// Groups serves group summaries.
type Groups interface {
	Summarize(groupID string) (group.Summary, bool)
	Groups(filter group.Filter) []group.Summary
}

// Aggregates serves the current reconciliation figures.
type Aggregates interface {
	Summary() aggregate.Summary
}

// Handler wires the finalization API to the engine.
type Handler struct {
	service       Service
	registrations Registrations
	groups        Groups
	aggregates    Aggregates
	logger        *slog.Logger
}

// New constructs a finalization handler with its dependencies.
func New(service Service, registrations Registrations, groups Groups, aggregates Aggregates, logger *slog.Logger) *Handler {
	return &Handler{
		service:       service,
		registrations: registrations,
		groups:        groups,
		aggregates:    aggregates,
		logger:        logger,
	}
}

// Register mounts the endpoints on r. requireOperator guards the write path;
// reads are open to any caller that reaches the router.
func (h *Handler) Register(r chi.Router, requireOperator func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if requireOperator != nil {
			r.Use(requireOperator)
		}
		r.Post("/finalizations", h.HandleFinalize)
	})
	r.Get("/registrations/pending", h.HandleListPending)
	r.Get("/registrations/finalized", h.HandleListFinalized)
	r.Get("/registrations/{id}", h.HandleGetRegistration)
	r.Get("/groups", h.HandleListGroups)
	r.Get("/groups/{id}/members", h.HandleGroupMembers)
	r.Get("/aggregates", h.HandleAggregates)
}

// HandleFinalize handles POST /finalizations.
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FinalizeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.service.Finalize(ctx, req.ToModel(requestcontext.Operator(ctx)))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReceipt(receipt))
}

// HandleListPending handles GET /registrations/pending.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRegistrations(h.registrations.ListPending(filter)))
}

// HandleListFinalized handles GET /registrations/finalized.
func (h *Handler) HandleListFinalized(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRegistrations(h.registrations.ListFinalized(filter)))
}

// HandleGetRegistration handles GET /registrations/{id}.
func (h *Handler) HandleGetRegistration(w http.ResponseWriter, r *http.Request) {
	id := models.RegistrationID(chi.URLParam(r, "id"))
	reg, ok := h.registrations.Get(id)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "registration not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRegistration(reg))
}

// HandleListGroups handles GET /groups. ?outstanding=true keeps groups that
// still owe something.
func (h *Handler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	groups := h.groups.Groups(group.Filter{
		OutstandingOnly: r.URL.Query().Get("outstanding") == "true",
	})
	if groups == nil {
		groups = []group.Summary{}
	}
	httputil.WriteJSON(w, http.StatusOK, GroupsResponse{Count: len(groups), Groups: groups})
}

// HandleGroupMembers handles GET /groups/{id}/members.
func (h *Handler) HandleGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	summary, ok := h.groups.Summarize(groupID)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "group not found"))
		return
	}
	members := fromRegistrations(h.registrations.GroupMembers(groupID))
	httputil.WriteJSON(w, http.StatusOK, GroupMembersResponse{
		Summary:       summary,
		Registrations: members.Registrations,
	})
}

// HandleAggregates handles GET /aggregates. ?format=text renders the
// operator report.
func (h *Handler) HandleAggregates(w http.ResponseWriter, r *http.Request) {
	sum := h.aggregates.Summary()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := aggregate.RenderText(w, sum); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to render report", "error", err)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var invalid *models.InvalidBatchError
	if errors.As(err, &invalid) {
		httputil.WriteError(w, rejectedBatch{invalid})
		return
	}
	httputil.WriteError(w, err)
}
