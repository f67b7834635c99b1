package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

const dateLayout = "2006-01-02"

type donationRequest struct {
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	CheckNumber string `json:"check_number"`
	Fund        string `json:"fund"`
	GiftDate    string `json:"gift_date"`

	First  string `json:"first_name"`
	Last   string `json:"last_name"`
	Email  string `json:"email"`
	Street string `json:"street"`
	Zip    string `json:"zip"`
}

func (req donationRequest) toInput() (ports.DonationInput, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return ports.DonationInput{}, err
	}
	in := ports.DonationInput{
		Amount:      amount,
		Method:      req.Method,
		CheckNumber: req.CheckNumber,
		Fund:        req.Fund,
		First:       req.First,
		Last:        req.Last,
		Email:       req.Email,
		Street:      req.Street,
		Zip:         req.Zip,
	}
	if req.GiftDate != "" {
		in.GiftDate, err = time.Parse(dateLayout, req.GiftDate)
		if err != nil {
			return ports.DonationInput{}, err
		}
	}
	return in, nil
}

type donationJSON struct {
	ID          string          `json:"id"`
	DonorID     *string         `json:"donor_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method,omitempty"`
	CheckNumber string          `json:"check_number,omitempty"`
	Fund        string          `json:"fund,omitempty"`
	GiftDate    string          `json:"gift_date"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Street    string `json:"street,omitempty"`
	Zip       string `json:"zip,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toDonationJSON(d domain.Donation) donationJSON {
	return donationJSON{
		ID:          d.ID,
		DonorID:     d.DonorID,
		Amount:      d.Amount,
		Method:      d.Method,
		CheckNumber: d.CheckNumber,
		Fund:        d.Fund,
		GiftDate:    d.GiftDate.Format(dateLayout),
		FirstName:   d.RawFirst,
		LastName:    d.RawLast,
		Email:       d.RawEmail,
		Street:      d.RawStreet,
		Zip:         d.RawZip,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
	}
}

type candidateJSON struct {
	DonorID string  `json:"donor_id"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
}

type outcomeJSON struct {
	Status     string          `json:"status"`
	DonorID    string          `json:"donor_id,omitempty"`
	Tier       string          `json:"tier,omitempty"`
	Candidates []candidateJSON `json:"candidates,omitempty"`
}

func toOutcomeJSON(out domain.MatchOutcome) outcomeJSON {
	resp := outcomeJSON{
		Status:  string(out.Status),
		DonorID: out.DonorID,
		Tier:    out.Tier,
	}
	for _, c := range out.Candidates {
		resp.Candidates = append(resp.Candidates, candidateJSON{
			DonorID: c.DonorID,
			Score:   c.Score,
			Reason:  c.Reason,
		})
	}
	return resp
}

type entryResultJSON struct {
	Donation donationJSON `json:"donation"`
	Outcome  outcomeJSON  `json:"outcome"`
}

func toEntryResultJSON(res ports.EntryResult) entryResultJSON {
	return entryResultJSON{
		Donation: toDonationJSON(res.Donation),
		Outcome:  toOutcomeJSON(res.Outcome),
	}
}

func (s *Server) handleEnterDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		badRequest(w, "invalid donation: "+err.Error())
		return
	}
	res, err := s.donations.Enter(r.Context(), in)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResultJSON(res))
}

func (s *Server) handleEnterBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []donationRequest
	if err := decodeJSON(r, &reqs); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	ins := make([]ports.DonationInput, 0, len(reqs))
	for _, req := range reqs {
		in, err := req.toInput()
		if err != nil {
			badRequest(w, "invalid donation: "+err.Error())
			return
		}
		ins = append(ins, in)
	}
	results, err := s.donations.EnterBatch(r.Context(), ins)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	resp := make([]entryResultJSON, 0, len(results))
	for _, res := range results {
		resp = append(resp, toEntryResultJSON(res))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := s.donations.ImportCSV(r.Context(), r.Body)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	type rowErrorJSON struct {
		Line   int    `json:"line"`
		Reason string `json:"reason"`
	}
	resp := struct {
		Imported int            `json:"imported"`
		Failed   []rowErrorJSON `json:"failed"`
	}{Imported: report.Imported, Failed: []rowErrorJSON{}}
	for _, f := range report.Failed {
		resp.Failed = append(resp.Failed, rowErrorJSON{Line: f.Line, Reason: f.Reason})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDonation(w http.ResponseWriter, r *http.Request) {
	d, err := s.donations.Get(r.Context(), chi.URLParam(r, "donationID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDonationJSON(d))
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	out, err := s.matcher.Match(r.Context(), chi.URLParam(r, "donationID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeJSON(out))
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	out, err := s.matcher.Rescan(r.Context(), chi.URLParam(r, "donationID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeJSON(out))
}
