package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/internal/storage"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	authSvc    *service.AuthService
	userSvc    *service.UserService
	chatSvc    *service.ChatService
	messageSvc *service.MessageService
	files      *storage.FileStore

	validate *validator.Validate
}

func NewHandler(auth *service.AuthService, user *service.UserService,
	chat *service.ChatService, message *service.MessageService, files *storage.FileStore) *Handler {
	return &Handler{
		authSvc:    auth,
		userSvc:    user,
		chatSvc:    chat,
		messageSvc: message,
		files:      files,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// decodeValid: JSON decode + validator; пишет 400 и возвращает false при ошибке.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
