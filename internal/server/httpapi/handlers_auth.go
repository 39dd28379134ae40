package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/render"
)

type registerRequest struct {
	Login    string `json:"login" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (req *registerRequest) Bind(r *http.Request) error { return nil }

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (req *loginRequest) Bind(r *http.Request) error { return nil }

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (req *refreshRequest) Bind(r *http.Request) error { return nil }

// sessionResponse carries tokens plus the account's encryption key. The key
// is base64 so the JSON stays printable; the client decodes and keeps it
// locally.
type sessionResponse struct {
	UserID        string `json:"user_id"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	EncryptionKey string `json:"encryption_key"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req := &registerRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest("invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err.Error()))
		return
	}

	sess, err := s.users.Register(r.Context(), req.Login, req.Password)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}
	s.metrics.Registrations.Inc()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, &sessionResponse{
		UserID:        sess.User.ID,
		AccessToken:   sess.Tokens.AccessToken,
		RefreshToken:  sess.Tokens.RefreshToken,
		EncryptionKey: base64.StdEncoding.EncodeToString(sess.EncryptionKey),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req := &loginRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest("invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err.Error()))
		return
	}

	sess, err := s.users.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}
	s.metrics.Logins.Inc()

	render.JSON(w, r, &sessionResponse{
		UserID:        sess.User.ID,
		AccessToken:   sess.Tokens.AccessToken,
		RefreshToken:  sess.Tokens.RefreshToken,
		EncryptionKey: base64.StdEncoding.EncodeToString(sess.EncryptionKey),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	req := &refreshRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest("invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err.Error()))
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}

	render.JSON(w, r, &tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
