package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/log"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

type sessionRequest struct {
	Mode     string `json:"mode"` // signin or signup
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// RateUSD is the trip-level USD rate entered on the start screen. It
	// seeds the report header; empty means not yet known.
	RateUSD string `json:"rateUsd,omitempty"`
}

type sessionResponse struct {
	User     userBody `json:"user"`
	ReportID string   `json:"reportId"`
}

type userBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleSessionStart signs the user in (or up), opens a session, and binds a
// fresh report to it.
func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = sanitizeInput(req.Email)
	req.Name = sanitizeInput(req.Name)
	if req.Email == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "email is required")
		return
	}

	rateUSD := decimal.Zero
	if v := strings.TrimSpace(req.RateUSD); v != "" {
		d, err := parseAmount(v)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid USD rate")
			return
		}
		rateUSD = d
	}

	user, err := s.authenticate(r, req)
	if err != nil {
		logger.WarnContext(ctx, "Authentication failed",
			log.FieldError, err, "email", req.Email, "mode", req.Mode)
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	}

	sess := s.sessions.Create(user)
	reportID, err := s.svc.StartReport(ctx, user.ID, rateUSD)
	if err != nil {
		s.sessions.Destroy(sess.Token)
		logger.ErrorContext(ctx, "Failed to start report",
			log.FieldError, err, "user_id", user.ID)
		writeError(w, r, http.StatusBadGateway, "could not start a report")
		return
	}
	reportID, err = s.sessions.BindReport(sess.Token, reportID)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "session expired")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.Expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, r, http.StatusOK, sessionResponse{
		User:     userBody{ID: user.ID, Name: user.Name, Email: user.Email},
		ReportID: reportID,
	})
}

// authenticate routes the credentials to the identity collaborator. Backends
// without one accept any email and derive a local account from it.
func (s *Server) authenticate(r *http.Request, req sessionRequest) (store.User, error) {
	if s.identity == nil {
		name := req.Name
		if name == "" {
			name, _, _ = strings.Cut(req.Email, "@")
		}
		return store.User{ID: req.Email, Name: name, Email: req.Email}, nil
	}
	if req.Mode == "signup" {
		return s.identity.SignUp(r.Context(), req.Name, req.Email, req.Password)
	}
	return s.identity.SignIn(r.Context(), req.Email, req.Password)
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Destroy(c.Value)
		s.dropPreviewer(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

type forgotRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeError(w, r, http.StatusNotImplemented, "accounts are not managed by this backend")
		return
	}
	var req forgotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	// Always answer 204 so the endpoint does not leak which emails exist.
	if err := s.identity.ForgotPassword(r.Context(), sanitizeInput(req.Email)); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Forgot-password request failed",
			log.FieldError, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeError(w, r, http.StatusNotImplemented, "accounts are not managed by this backend")
		return
	}
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "new password is required")
		return
	}
	if err := s.identity.ChangePassword(r.Context(), sess.User.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, http.StatusForbidden, "password change rejected")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
