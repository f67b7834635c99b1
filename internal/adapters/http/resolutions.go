package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"almsdesk/internal/domain"
)

type queueCandidateJSON struct {
	Donor  donorJSON `json:"donor"`
	Score  float64   `json:"score"`
	Reason string    `json:"reason,omitempty"`
}

type queueEntryJSON struct {
	Donation   donationJSON         `json:"donation"`
	Candidates []queueCandidateJSON `json:"candidates"`
}

func toQueueEntryJSON(e domain.QueueEntry) queueEntryJSON {
	entry := queueEntryJSON{
		Donation:   toDonationJSON(e.Donation),
		Candidates: []queueCandidateJSON{},
	}
	for _, c := range e.Candidates {
		entry.Candidates = append(entry.Candidates, queueCandidateJSON{
			Donor:  toDonorJSON(c.Donor),
			Score:  c.Score,
			Reason: c.Reason,
		})
	}
	return entry
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := s.resolutions.Queue(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	resp := make([]queueEntryJSON, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toQueueEntryJSON(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

type resolveRequest struct {
	Action  string `json:"action"`
	DonorID string `json:"donor_id"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	donationID := chi.URLParam(r, "donationID")
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	switch req.Action {
	case "link":
		if req.DonorID == "" {
			badRequest(w, "link requires donor_id")
			return
		}
		if err := s.resolutions.Link(r.Context(), donationID, req.DonorID); err != nil {
			s.respondErr(w, r, err)
			return
		}
	case "create_new":
		if err := s.resolutions.CreateNew(r.Context(), donationID); err != nil {
			s.respondErr(w, r, err)
			return
		}
	default:
		badRequest(w, "action must be link or create_new")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
