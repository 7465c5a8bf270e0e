package server

import (
	"net/http"
	"time"

	"moonjin/internal/auth"
	"moonjin/internal/dto"
	"moonjin/internal/pagination"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginResponse struct {
	User   dto.User       `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (s *Server) handleLocalSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupData
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.Auth.LocalSignup(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (s *Server) handleLocalLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.Auth.LocalLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.issueTokens(w, r, user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := s.decodeJSON(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	token := req.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
	}
	claims, err := s.Tokens.Parse(token, auth.KindRefresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// reload so role or nickname changes reach the new tokens
	user, err := s.Auth.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.issueTokens(w, r, user)
}

func (s *Server) issueTokens(w http.ResponseWriter, r *http.Request, user dto.User) {
	pair, err := s.Tokens.Issue(user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setCookie(w, accessCookie, pair.AccessToken, pair.AccessExpiresAt)
	s.setCookie(w, refreshCookie, pair.RefreshToken, pair.RefreshExpiresAt)
	writeData(w, http.StatusOK, loginResponse{User: user, Tokens: pair})
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secureCookies})
	}
	writeData(w, http.StatusOK, message("logged out"))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	user, err := s.Auth.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req passwordRequest
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Auth.PasswordChange(r.Context(), claims.UserID, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, message("password changed"))
}

func (s *Server) handleReceivedNewsletters(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	opts, err := pageOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.Newsletters.ListReceived(r.Context(), claims.UserID, boolQuery(r, "seriesOnly"), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var last uint
	if len(list) > 0 {
		last = list[len(list)-1].Newsletter.ID
	}
	writePage(w, list, pagination.NewPage(opts, len(list), last))
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	list, err := s.Subscriptions.ListFollowing(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

