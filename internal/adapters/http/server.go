package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
	donationsvc "almsdesk/internal/services/donations"
	donorsvc "almsdesk/internal/services/donors"
)

// Server wires the service ports to a JSON HTTP surface.
type Server struct {
	donations   ports.Donations
	donors      ports.Donors
	matcher     ports.Matcher
	resolutions ports.Resolutions
	merges      ports.Merges
	log         *zap.Logger
}

func New(donations ports.Donations, donors ports.Donors, matcher ports.Matcher, resolutions ports.Resolutions, merges ports.Merges, log *zap.Logger) *Server {
	return &Server{
		donations:   donations,
		donors:      donors,
		matcher:     matcher,
		resolutions: resolutions,
		merges:      merges,
		log:         log,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/donations", func(r chi.Router) {
		r.Post("/", s.handleEnterDonation)
		r.Post("/batch", s.handleEnterBatch)
		r.Get("/{donationID}", s.handleGetDonation)
		r.Post("/{donationID}/match", s.handleMatch)
		r.Post("/{donationID}/rescan", s.handleRescan)
	})
	r.Post("/imports/csv", s.handleImportCSV)

	r.Route("/resolutions", func(r chi.Router) {
		r.Get("/", s.handleQueue)
		r.Post("/{donationID}", s.handleResolve)
	})

	r.Get("/duplicates", s.handleDuplicates)
	r.Post("/merges", s.handleMerge)

	r.Route("/donors", func(r chi.Router) {
		r.Get("/", s.handleSearchDonors)
		r.Post("/", s.handleCreateDonor)
		r.Get("/{donorID}", s.handleGetDonor)
		r.Put("/{donorID}", s.handleUpdateDonor)
		r.Get("/{donorID}/summary", s.handleSummary)
		r.Get("/{donorID}/notes", s.handleListNotes)
		r.Post("/{donorID}/notes", s.handleAddNote)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// respondErr maps service errors onto HTTP statuses. Anything unrecognized
// is a storage or programming fault and surfaces as a 500 with the detail
// kept in the logs.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrAlreadyLinked):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrSelfMerge),
		errors.Is(err, domain.ErrNoSecondaries),
		errors.Is(err, domain.ErrDonorMissing),
		errors.Is(err, donationsvc.ErrAmountNotPositive),
		errors.Is(err, donationsvc.ErrNoHeader),
		errors.Is(err, donorsvc.ErrLastNameRequired),
		errors.Is(err, donorsvc.ErrEmptyNote):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
