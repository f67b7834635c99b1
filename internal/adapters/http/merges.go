package httpadapter

import (
	"net/http"
)

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := s.merges.ScanDuplicates(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	type groupJSON struct {
		MatchKey string      `json:"match_key"`
		Donors   []donorJSON `json:"donors"`
	}
	resp := make([]groupJSON, 0, len(groups))
	for _, g := range groups {
		donors := make([]donorJSON, 0, len(g.Donors))
		for _, d := range g.Donors {
			donors = append(donors, toDonorJSON(d))
		}
		resp = append(resp, groupJSON{MatchKey: g.MatchKey, Donors: donors})
	}
	writeJSON(w, http.StatusOK, resp)
}

type mergeRequest struct {
	PrimaryID    string   `json:"primary_id"`
	SecondaryIDs []string `json:"secondary_ids"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.PrimaryID == "" {
		badRequest(w, "primary_id is required")
		return
	}
	if err := s.merges.Merge(r.Context(), req.PrimaryID, req.SecondaryIDs); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "merged", "primary_id": req.PrimaryID})
}
