package httpadapter

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"almsdesk/internal/domain"
)

type donorJSON struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Street    string    `json:"street,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Zip       string    `json:"zip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toDonorJSON(d domain.Donor) donorJSON {
	return donorJSON{
		ID:        d.ID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Phone:     d.Phone,
		Street:    d.Street,
		City:      d.City,
		State:     d.State,
		Zip:       d.Zip,
		CreatedAt: d.CreatedAt,
	}
}

type donorRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

func (req donorRequest) toDonor(id string) domain.Donor {
	return domain.Donor{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Street:    req.Street,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
	}
}

func (s *Server) handleCreateDonor(w http.ResponseWriter, r *http.Request) {
	var req donorRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	donor, err := s.donors.Create(r.Context(), req.toDonor(""))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDonorJSON(donor))
}

func (s *Server) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	donor, err := s.donors.Get(r.Context(), chi.URLParam(r, "donorID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDonorJSON(donor))
}

func (s *Server) handleUpdateDonor(w http.ResponseWriter, r *http.Request) {
	var req donorRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	donor, err := s.donors.Update(r.Context(), req.toDonor(chi.URLParam(r, "donorID")))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDonorJSON(donor))
}

func (s *Server) handleSearchDonors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		badRequest(w, "q parameter is required")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	matches, err := s.donors.Search(r.Context(), query, limit)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	type matchJSON struct {
		Donor donorJSON `json:"donor"`
		Score float64   `json:"score"`
	}
	resp := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, matchJSON{Donor: toDonorJSON(m.Donor), Score: m.Score})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.donors.Summary(r.Context(), chi.URLParam(r, "donorID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	resp := struct {
		DonationCount int             `json:"donation_count"`
		TotalAmount   decimal.Decimal `json:"total_amount"`
		FirstGift     *time.Time      `json:"first_gift"`
		LastGift      *time.Time      `json:"last_gift"`
	}{sum.DonationCount, sum.TotalAmount, sum.FirstGift, sum.LastGift}
	writeJSON(w, http.StatusOK, resp)
}

type noteJSON struct {
	ID        string    `json:"id"`
	DonorID   string    `json:"donor_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func toNoteJSON(n domain.Note) noteJSON {
	return noteJSON{ID: n.ID, DonorID: n.DonorID, Body: n.Body, CreatedAt: n.CreatedAt}
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	note, err := s.donors.AddNote(r.Context(), chi.URLParam(r, "donorID"), req.Body)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteJSON(note))
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.donors.Notes(r.Context(), chi.URLParam(r, "donorID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	resp := make([]noteJSON, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNoteJSON(n))
	}
	writeJSON(w, http.StatusOK, resp)
}
