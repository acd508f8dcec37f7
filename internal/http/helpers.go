package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/log"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/session"
)

const sessionCookie = "trip_session"

// writeJSON renders v with the given status. Encoding failures are logged;
// headers are already gone by then.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
			log.FieldError, err, log.FieldPath, r.URL.Path)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// currentSession resolves the session cookie. A missing or expired session
// writes a 401 and returns false.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not signed in")
		return session.Session{}, false
	}
	sess, err := s.sessions.Get(c.Value)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "session expired")
		return session.Session{}, false
	}
	return sess, true
}

// boundReport is currentSession plus the requirement that a report exists.
func (s *Server) boundReport(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return session.Session{}, false
	}
	if sess.ReportID == "" {
		writeError(w, r, http.StatusConflict, "no active report for this session")
		return session.Session{}, false
	}
	return sess, true
}

// parseCategory matches a path segment against the nine categories,
// case-insensitively, so section ids round-trip as path params.
func parseCategory(raw string) (core.Category, bool) {
	for _, cat := range core.Categories() {
		if strings.EqualFold(raw, cat.String()) {
			return cat, true
		}
	}
	return "", false
}

// parseAmount parses a non-negative decimal field; empty means zero.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.Sign() < 0 {
		return decimal.Zero, core.ErrNegativeAmount
	}
	return d, nil
}

// clientIP extracts the caller address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
