package system

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/transport"
	"github.com/frahmantamala/vuln-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateSystem(ctx context.Context, name, description, creatorEmail string) (*System, error)
	AddUser(ctx context.Context, systemName, email string, role Role, addedBy string) (*SystemUser, error)
	ReportVulnerability(ctx context.Context, systemName, cve, reporterEmail string) (*Vulnerability, error)
	ReportVulnerabilitiesBulk(ctx context.Context, systemName string, cves []string, reporterEmail string) []BulkResult
	UpdateVulnerabilityState(ctx context.Context, systemName, cve string, state State, actorEmail string) error
	UpdateVulnerabilitiesStateBulk(ctx context.Context, systemName string, updates []StateUpdate, actorEmail string) []BulkResult
	Summarize(ctx context.Context, systemName string, detailed bool) (*Summary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateSystem(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		h.Logger.Error("CreateSystem: identity not found in context")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	var dto CreateSystemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateSystem: invalid request body", "error", err)
		h.WriteError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := dto.Validate(); err != nil {
		h.Logger.Error("CreateSystem: validation error", "error", err)
		h.WriteError(w, err)
		return
	}

	created, err := h.Service.CreateSystem(r.Context(), internal.NormalizeKey(dto.Name), dto.Description, identity.Email)
	if err != nil {
		h.Logger.Error("CreateSystem: service error", "error", err, "system", dto.Name)
		h.WriteError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		h.Logger.Error("AddUser: identity not found in context")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	systemName := internal.NormalizeKey(chi.URLParam(r, "system_name"))

	var dto AddUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("AddUser: invalid request body", "error", err)
		h.WriteError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := dto.Validate(); err != nil {
		h.Logger.Error("AddUser: validation error", "error", err)
		h.WriteError(w, err)
		return
	}

	role, _ := ParseRole(dto.Role)
	added, err := h.Service.AddUser(r.Context(), systemName, internal.NormalizeEmail(dto.Email), role, identity.Email)
	if err != nil {
		h.Logger.Error("AddUser: service error", "error", err, "system", systemName, "email", dto.Email)
		h.WriteError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, added)
}

func (h *Handler) ReportVulnerability(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		h.Logger.Error("ReportVulnerability: identity not found in context")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	systemName := internal.NormalizeKey(chi.URLParam(r, "system_name"))

	var dto VulnerabilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ReportVulnerability: invalid request body", "error", err)
		h.WriteError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := dto.Validate(); err != nil {
		h.Logger.Error("ReportVulnerability: validation error", "error", err)
		h.WriteError(w, err)
		return
	}

	reported, err := h.Service.ReportVulnerability(r.Context(), systemName, internal.NormalizeKey(dto.CVE), identity.Email)
	if err != nil {
		h.Logger.Error("ReportVulnerability: service error", "error", err, "system", systemName, "cve", dto.CVE)
		h.WriteError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, reported)
}

func (h *Handler) ReportVulnerabilitiesBulk(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		h.Logger.Error("ReportVulnerabilitiesBulk: identity not found in context")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	systemName := internal.NormalizeKey(chi.URLParam(r, "system_name"))

	var dtos []VulnerabilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		h.Logger.Error("ReportVulnerabilitiesBulk: invalid request body", "error", err)
		h.WriteError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	cves := make([]string, 0, len(dtos))
	for _, dto := range dtos {
		if err := dto.Validate(); err != nil {
			h.Logger.Error("ReportVulnerabilitiesBulk: validation error", "error", err, "cve", dto.CVE)
			h.WriteError(w, err)
			return
		}
		cves = append(cves, internal.NormalizeKey(dto.CVE))
	}

	results := h.Service.ReportVulnerabilitiesBulk(r.Context(), systemName, cves, identity.Email)
	h.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) UpdateVulnerabilityState(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		h.Logger.Error("UpdateVulnerabilityState: identity not found in context")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	systemName := internal.NormalizeKey(chi.URLParam(r, "system_name"))

	var dto UpdateVulnerabilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateVulnerabilityState: invalid request body", "error", err)
		h.WriteError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := dto.Validate(); err != nil {
		h.Logger.Error("UpdateVulnerabilityState: validation error", "error", err)
		h.WriteError(w, err)
		return
	}

	state, _ := ParseState(dto.State)
	if err := h.Service.UpdateVulnerabilityState(r.Context(), systemName, internal.NormalizeKey(dto.CVE), state, identity.Email); err != nil {
		h.Logger.Error("UpdateVulnerabilityState: service error", "error", err, "system", systemName, "cve", dto.CVE)
		h.WriteError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) UpdateVulnerabilitiesStateBulk(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		h.Logger.Error("UpdateVulnerabilitiesStateBulk: identity not found in context")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	systemName := internal.NormalizeKey(chi.URLParam(r, "system_name"))

	var dtos []UpdateVulnerabilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		h.Logger.Error("UpdateVulnerabilitiesStateBulk: invalid request body", "error", err)
		h.WriteError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	updates := make([]StateUpdate, 0, len(dtos))
	for _, dto := range dtos {
		if err := dto.Validate(); err != nil {
			h.Logger.Error("UpdateVulnerabilitiesStateBulk: validation error", "error", err, "cve", dto.CVE)
			h.WriteError(w, err)
			return
		}
		state, _ := ParseState(dto.State)
		updates = append(updates, StateUpdate{
			CVE:   internal.NormalizeKey(dto.CVE),
			State: state,
		})
	}

	results := h.Service.UpdateVulnerabilitiesStateBulk(r.Context(), systemName, updates, identity.Email)
	h.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) GetVulnerabilitySummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || !identity.Verified {
		h.Logger.Error("GetVulnerabilitySummary: identity not found in context")
		h.WriteError(w, internal.ErrAuthenticationFailed)
		return
	}

	systemName := internal.NormalizeKey(chi.URLParam(r, "system_name"))

	detailed := false
	if raw := r.URL.Query().Get("detailed"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			detailed = parsed
		}
	}

	summary, err := h.Service.Summarize(r.Context(), systemName, detailed)
	if err != nil {
		h.Logger.Error("GetVulnerabilitySummary: service error", "error", err, "system", systemName)
		h.WriteError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}
