package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/errs"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
)

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpmw.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.authSvc.TokenTTL().Seconds()),
	})
}

// POST /auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	user, token, err := h.authSvc.SignUp(r.Context(), req.Email, req.Password, req.Username, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrEmailTaken), errors.Is(err, errs.ErrUsernameTaken):
			httputil.Error(w, http.StatusConflict, err.Error())
		case errors.Is(err, errs.ErrInvalidEmail), errors.Is(err, errs.ErrPasswordTooShort):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("handler.SignUp:", slog.Any("err", err))
			httputil.Error(w, http.StatusInternalServerError, "server error")
		}
		return
	}

	h.setTokenCookie(w, token)
	httputil.JSON(w, http.StatusCreated, toUserItem(user, true))
}

// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	user, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			httputil.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.Error("handler.Login:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return
	}

	h.setTokenCookie(w, token)
	httputil.JSON(w, http.StatusOK, toUserItem(user, true))
}

// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpmw.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}
