package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/patient-intake/internal/patients"
	"github.com/wolfman30/patient-intake/internal/slots"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

const defaultRecentComplaints = 5

// AdminPatientsHandler serves staff read access to patient records.
type AdminPatientsHandler struct {
	repo    patients.Repository
	matcher *patients.Matcher
	logger  *logging.Logger
}

func NewAdminPatientsHandler(repo patients.Repository, logger *logging.Logger) *AdminPatientsHandler {
	if repo == nil {
		panic("handlers: patient repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminPatientsHandler{
		repo:    repo,
		matcher: patients.NewMatcher(repo),
		logger:  logger,
	}
}

// Routes mounts the admin patient endpoints on r.
func (h *AdminPatientsHandler) Routes(r chi.Router) {
	r.Get("/patients/lookup", h.Lookup)
	r.Get("/patients/{patientID}/summary", h.Summary)
	r.Get("/patients/{patientID}/changes", h.Changes)
}

// ChangesResponse lists a patient's change log, oldest first.
type ChangesResponse struct {
	PatientID string                    `json:"patient_id"`
	Changes   []patients.ChangeLogEntry `json:"changes"`
}

// Changes handles GET /admin/patients/{patientID}/changes
func (h *AdminPatientsHandler) Changes(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if _, err := h.repo.Get(r.Context(), patientID); err != nil {
		h.fail(w, "get patient", patientID, err)
		return
	}
	changes, err := h.repo.ListChanges(r.Context(), patientID)
	if err != nil {
		h.fail(w, "list changes", patientID, err)
		return
	}
	if changes == nil {
		changes = []patients.ChangeLogEntry{}
	}
	writeJSON(w, http.StatusOK, ChangesResponse{PatientID: patientID, Changes: changes})
}

// Summary handles GET /admin/patients/{patientID}/summary?recent=N
func (h *AdminPatientsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	recent := defaultRecentComplaints
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			jsonError(w, "recent must be between 1 and 50", http.StatusBadRequest)
			return
		}
		recent = n
	}
	summary, err := patients.BuildSummary(r.Context(), h.repo, patientID, recent)
	if err != nil {
		h.fail(w, "build summary", patientID, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Lookup handles GET /admin/patients/lookup?phone=&email=&first_name=&last_name=&dob=
// using the same match order as the intake conversation.
func (h *AdminPatientsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var c patients.Criteria
	for _, p := range []struct {
		field slots.Field
		raw   string
		dst   *string
	}{
		{slots.Phone, q.Get("phone"), &c.Phone},
		{slots.Email, q.Get("email"), &c.Email},
		{slots.FirstName, q.Get("first_name"), &c.FirstName},
		{slots.LastName, q.Get("last_name"), &c.LastName},
		{slots.DateOfBirth, q.Get("dob"), &c.DateOfBirth},
	} {
		if p.raw == "" {
			continue
		}
		v, err := slots.Normalize(p.field, p.raw)
		if err != nil {
			jsonError(w, "invalid "+p.field.Label()+": "+p.field.Constraint(), http.StatusBadRequest)
			return
		}
		*p.dst = v
	}

	patient, err := h.matcher.Match(r.Context(), c)
	switch {
	case errors.Is(err, patients.ErrNoCriteria):
		jsonError(w, "give a phone, an email, or first name, last name and dob", http.StatusBadRequest)
	case errors.Is(err, patients.ErrAmbiguousMatch):
		jsonError(w, "more than one patient matches; add a phone or email", http.StatusConflict)
	case err != nil:
		h.fail(w, "lookup", "", err)
	default:
		writeJSON(w, http.StatusOK, patient)
	}
}

func (h *AdminPatientsHandler) fail(w http.ResponseWriter, op, patientID string, err error) {
	if errors.Is(err, patients.ErrPatientNotFound) {
		jsonError(w, "patient not found", http.StatusNotFound)
		return
	}
	h.logger.Error("admin patients: "+op+" failed", "patient_id", patientID, "error", err)
	jsonError(w, "internal error", http.StatusInternalServerError)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
