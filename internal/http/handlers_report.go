package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/export"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/log"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/services"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

// handleReportModel streams the session's report as the render model. The
// body is produced by the JSON export sink so the browser and the download
// share one wire shape.
func (s *Server) handleReportModel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.boundReport(w, r)
	if !ok {
		return
	}
	m, err := s.model(r.Context(), sess.ReportID, sess.User.Name)
	if err != nil {
		s.reportError(w, r, err, sess.ReportID)
		return
	}
	sink := export.JSONSink{}
	w.Header().Set("Content-Type", sink.ContentType())
	if err := sink.Write(w, m); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write report model",
			log.FieldError, err, log.FieldReportID, sess.ReportID)
	}
}

type tripInfoRequest struct {
	Days      string `json:"days"`
	RateUSD   string `json:"rateUsd"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// handleTripInfo updates the header's trip-level fields on backends that
// store them explicitly.
func (s *Server) handleTripInfo(w http.ResponseWriter, r *http.Request) {
	if s.tripInfo == nil {
		writeError(w, r, http.StatusNotImplemented, "this backend derives trip info itself")
		return
	}
	sess, ok := s.boundReport(w, r)
	if !ok {
		return
	}
	var req tripInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	days, err := parseAmount(req.Days)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid day count")
		return
	}
	rateUSD, err := parseAmount(req.RateUSD)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid USD rate")
		return
	}
	start, end := "", ""
	if v := strings.TrimSpace(req.StartDate); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid start date")
			return
		}
		start = d.String()
	}
	if v := strings.TrimSpace(req.EndDate); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid end date")
			return
		}
		end = d.String()
	}

	if err := s.tripInfo.SetTripInfo(r.Context(), sess.ReportID, days, rateUSD, start, end); err != nil {
		s.reportError(w, r, err, sess.ReportID)
		return
	}
	s.invalidateModel(sess.ReportID)
	w.WriteHeader(http.StatusNoContent)
}

type flightBody struct {
	Code      string `json:"code"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	DepTime   string `json:"depTime"`
	ArrTime   string `json:"arrTime"`
}

type lodgingBody struct {
	PersonalAmount string `json:"personalAmount"`
	AdvanceAmount  string `json:"advanceAmount"`
	Nights         int    `json:"nights"`
	AdvancePayers  int    `json:"advancePayers"`
}

type itemRequest struct {
	Date     string       `json:"date"`
	Region   string       `json:"region,omitempty"`
	Note     string       `json:"note,omitempty"`
	SubKind  string       `json:"subKind,omitempty"`
	Currency string       `json:"currency"`
	Amount   string       `json:"amount,omitempty"`
	// Rate is the client-confirmed preview rate; empty lets the server
	// resolve one.
	Rate    string       `json:"rate,omitempty"`
	Flight  *flightBody  `json:"flight,omitempty"`
	Lodging *lodgingBody `json:"lodging,omitempty"`
}

type itemResponse struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	TWDAmount   string `json:"twdAmount"`
	Rate        string `json:"rate"`
	RateSource  string `json:"rateSource"`
	LookupDate  string `json:"lookupDate,omitempty"`
	RateWarning string `json:"rateWarning,omitempty"`
}

// handleAddItem appends one expense line to the session's report.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.boundReport(w, r)
	if !ok {
		return
	}
	cat, ok := parseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown category")
		return
	}
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := entryInput(cat, req)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := s.svc.AddEntry(r.Context(), sess.ReportID, in)
	if err != nil {
		if errors.Is(err, services.ErrFlightRequired) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		s.reportError(w, r, err, sess.ReportID)
		return
	}
	s.invalidateModel(sess.ReportID)

	writeJSON(w, r, http.StatusCreated, itemResponse{
		Category:    res.Item.Category.String(),
		Amount:      res.Item.Amount.String(),
		TWDAmount:   res.Item.TWDAmount.String(),
		Rate:        res.Item.Rate.String(),
		RateSource:  string(res.Resolution.Source),
		LookupDate:  res.Resolution.LookupDate.String(),
		RateWarning: res.RateWarning,
	})
}

// handleDeleteItem removes one line by its per-category ordinal.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.boundReport(w, r)
	if !ok {
		return
	}
	cat, ok := parseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown category")
		return
	}
	seq, err := strconv.Atoi(r.PathValue("seq"))
	if err != nil || seq < 1 {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid sequence")
		return
	}
	if err := s.svc.DeleteEntry(r.Context(), sess.ReportID, cat, seq); err != nil {
		s.reportError(w, r, err, sess.ReportID)
		return
	}
	s.invalidateModel(sess.ReportID)
	w.WriteHeader(http.StatusNoContent)
}

// handleExport streams the report in the requested download format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.boundReport(w, r)
	if !ok {
		return
	}
	var sink export.Sink
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		sink = export.CSVSink{}
	case "json":
		sink = export.JSONSink{}
	default:
		writeError(w, r, http.StatusUnprocessableEntity, "unknown export format")
		return
	}

	m, err := s.model(r.Context(), sess.ReportID, sess.User.Name)
	if err != nil {
		s.reportError(w, r, err, sess.ReportID)
		return
	}
	w.Header().Set("Content-Type", sink.ContentType())
	w.Header().Set("Content-Disposition",
		`attachment; filename="report_`+sess.ReportID+`.`+sink.Extension()+`"`)
	if err := sink.Write(w, m); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			log.FieldError, err, log.FieldReportID, sess.ReportID,
			log.FieldOperation, log.OpExport)
	}
}

// entryInput converts the wire item into the service input.
func entryInput(cat core.Category, req itemRequest) (services.EntryInput, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return services.EntryInput{}, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return services.EntryInput{}, err
	}
	rate, err := parseAmount(req.Rate)
	if err != nil {
		return services.EntryInput{}, err
	}

	if cat == core.CategoryAccommodation && req.Lodging == nil {
		return services.EntryInput{}, errors.New("accommodation entries need lodging fields")
	}

	in := services.EntryInput{
		Category: cat,
		Date:     date,
		Region:   sanitizeInput(req.Region),
		Note:     sanitizeInput(req.Note),
		SubKind:  sanitizeInput(req.SubKind),
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		Amount:   amount,
		Rate:     rate,
	}
	if req.Flight != nil {
		in.Flight = &core.FlightDetails{
			Code:      sanitizeInput(req.Flight.Code),
			Departure: sanitizeInput(req.Flight.Departure),
			Arrival:   sanitizeInput(req.Flight.Arrival),
			DepTime:   sanitizeInput(req.Flight.DepTime),
			ArrTime:   sanitizeInput(req.Flight.ArrTime),
		}
	}
	if req.Lodging != nil {
		personal, err := parseAmount(req.Lodging.PersonalAmount)
		if err != nil {
			return services.EntryInput{}, err
		}
		advance, err := parseAmount(req.Lodging.AdvanceAmount)
		if err != nil {
			return services.EntryInput{}, err
		}
		in.Lodging = &core.LodgingInput{
			PersonalAmount: personal,
			AdvanceAmount:  advance,
			Nights:         req.Lodging.Nights,
			AdvancePayers:  req.Lodging.AdvancePayers,
		}
	}
	return in, nil
}

// reportError maps store and validation failures to API statuses.
func (s *Server) reportError(w http.ResponseWriter, r *http.Request, err error, reportID string) {
	switch {
	case errors.Is(err, store.ErrReportNotFound):
		writeError(w, r, http.StatusNotFound, "report not found")
	case errors.Is(err, store.ErrItemNotFound):
		writeError(w, r, http.StatusNotFound, "item not found")
	case errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, core.ErrInvalidNights),
		errors.Is(err, core.ErrPayersRequired),
		errors.Is(err, core.ErrNegativePayers),
		errors.Is(err, core.ErrMissingCurrency):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Store operation failed",
			log.FieldError, err, log.FieldReportID, reportID)
		writeError(w, r, http.StatusBadGateway, "store operation failed")
	}
}
