package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
)

const maxAvatarSize = 5 << 20 // 5 MiB

// GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	user, err := h.userSvc.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("handler.Me:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	httputil.JSON(w, http.StatusOK, toUserItem(user, true))
}

// GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List(r.Context())
	if err != nil {
		slog.Error("handler.ListUsers:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return
	}

	items := make([]UserItem, 0, len(users))
	for i := range users {
		items = append(items, toUserItem(&users[i], false))
	}
	httputil.JSON(w, http.StatusOK, items)
}

// GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userSvc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("handler.GetUser:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	httputil.JSON(w, http.StatusOK, toUserItem(user, false))
}

// PATCH /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req UpdateUserRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	user, err := h.userSvc.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Username:    req.Username,
		Phone:       req.Phone,
		Bio:         req.Bio,
	})
	if err != nil {
		if _, ok := postgres.IsUniqueViolation(err); ok {
			httputil.Error(w, http.StatusConflict, "username already taken")
			return
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("handler.UpdateMe:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	httputil.JSON(w, http.StatusOK, toUserItem(user, true))
}

// POST /users/me/avatar — multipart, поле "avatar".
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	fileURL, _, err := h.files.SaveAvatar(data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		slog.Error("handler.UploadAvatar: save:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return
	}

	if err := h.userSvc.UpdateAvatar(r.Context(), userID, fileURL); err != nil {
		slog.Error("handler.UploadAvatar: update:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"avatar_url": fileURL})
}
