package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/log"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/rates"
)

type previewResponse struct {
	Rate       string `json:"rate,omitempty"`
	Source     string `json:"source,omitempty"`
	LookupDate string `json:"lookupDate,omitempty"`
	Warning    string `json:"warning,omitempty"`
	Stale      bool   `json:"stale"`
}

// handleRatePreview resolves the rate the entry form shows before submit.
// Lookups are debounced per session; a request superseded by a newer edit
// answers stale instead of a rate.
func (s *Server) handleRatePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.boundReport(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	currency := strings.ToUpper(strings.TrimSpace(q.Get("currency")))
	if currency == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "currency is required")
		return
	}
	date, err := core.ParseDate(q.Get("date"))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid date")
		return
	}
	firstFlight := q.Get("firstFlight") == "true"

	// Client-issued tokens are monotonic per session; an out-of-order
	// arrival is answered stale without touching the resolver.
	if tok := q.Get("token"); tok != "" {
		n, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid token")
			return
		}
		if !s.guard.Register(sess.Token, n) {
			writeJSON(w, r, http.StatusOK, previewResponse{Stale: true})
			return
		}
	}

	m, err := s.model(r.Context(), sess.ReportID, sess.User.Name)
	if err != nil {
		s.reportError(w, r, err, sess.ReportID)
		return
	}

	p := s.previewer(sess.Token)
	gen := p.Submit(r.Context(), rates.Request{
		Currency:    currency,
		Date:        date,
		HeaderRate:  m.Summary.RateUSD,
		FirstFlight: firstFlight,
	})

	deadline := time.NewTimer(s.previewQuiet + 5*time.Second)
	defer deadline.Stop()
	check := time.NewTicker(50 * time.Millisecond)
	defer check.Stop()

	for {
		select {
		case res := <-p.Results():
			if res.Generation != gen {
				// A concurrent request's result; hand it back and
				// answer stale for this superseded one.
				p.Redeliver(res)
				writeJSON(w, r, http.StatusOK, previewResponse{Stale: true})
				return
			}
			out := previewResponse{
				Rate:       res.Resolution.Rate.String(),
				Source:     string(res.Resolution.Source),
				LookupDate: res.Resolution.LookupDate.String(),
			}
			if res.Err != nil {
				out.Warning = "no rate found, fallback rate 1 applies"
			}
			writeJSON(w, r, http.StatusOK, out)
			return
		case <-check.C:
			if p.Stale(gen) {
				writeJSON(w, r, http.StatusOK, previewResponse{Stale: true})
				return
			}
		case <-deadline.C:
			writeError(w, r, http.StatusGatewayTimeout, "rate lookup timed out")
			return
		case <-r.Context().Done():
			return
		}
	}
}

type citiesResponse struct {
	Cities []string `json:"cities"`
}

// handleCitySearch backs the region autocomplete.
func (s *Server) handleCitySearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentSession(w, r); !ok {
		return
	}
	query := sanitizeInput(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, r, http.StatusOK, citiesResponse{Cities: []string{}})
		return
	}
	cities, err := s.cities.SearchCity(r.Context(), query)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "City search failed",
			log.FieldError, err, "query", query)
		writeError(w, r, http.StatusBadGateway, "city search failed")
		return
	}
	if cities == nil {
		cities = []string{}
	}
	writeJSON(w, r, http.StatusOK, citiesResponse{Cities: cities})
}

type flightResponse struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	DepTime   string `json:"depTime"`
	ArrTime   string `json:"arrTime"`
}

// handleFlightSearch backs the flight autofill for a code and date.
func (s *Server) handleFlightSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentSession(w, r); !ok {
		return
	}
	q := r.URL.Query()
	code := strings.ToUpper(sanitizeInput(q.Get("code")))
	if code == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "flight code is required")
		return
	}
	date, err := core.ParseDate(q.Get("date"))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid date")
		return
	}
	info, err := s.flights.SearchFlight(r.Context(), code, date)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "flight not found")
		return
	}
	writeJSON(w, r, http.StatusOK, flightResponse{
		Departure: info.Departure,
		Arrival:   info.Arrival,
		DepTime:   info.DepTime,
		ArrTime:   info.ArrTime,
	})
}
