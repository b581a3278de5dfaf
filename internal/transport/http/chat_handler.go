package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
)

func (h *Handler) chatError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrChatNotFound):
		httputil.Error(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, domain.ErrNotMember):
		httputil.Error(w, http.StatusForbidden, "not a member of this chat")
	case errors.Is(err, domain.ErrAccessDenied):
		httputil.Error(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrUserNotFound):
		httputil.Error(w, http.StatusNotFound, "user not found")
	default:
		slog.Error("handler."+op+":", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
	}
}

// requireMember пишет 403/500 и возвращает false, если userID не состоит в чате.
func (h *Handler) requireMember(w http.ResponseWriter, r *http.Request, chatID, userID int64) bool {
	ok, err := h.chatSvc.IsMember(r.Context(), chatID, userID)
	if err != nil {
		slog.Error("handler.requireMember:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "server error")
		return false
	}
	if !ok {
		httputil.Error(w, http.StatusForbidden, "not a member of this chat")
		return false
	}
	return true
}

// POST /chats
func (h *Handler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req CreateGroupChatRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	chat, err := h.chatSvc.CreateGroupChat(r.Context(), req.Name, userID, req.MemberIDs)
	if err != nil {
		h.chatError(w, "CreateGroupChat", err)
		return
	}
	httputil.JSON(w, http.StatusCreated, toChatItem(*chat))
}

// POST /chats/direct
func (h *Handler) CreateDirectChat(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req CreateDirectChatRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if req.UserID == userID {
		httputil.Error(w, http.StatusBadRequest, "cannot start a direct chat with yourself")
		return
	}

	chat, created, err := h.chatSvc.GetOrCreateDirectChat(r.Context(), userID, req.UserID)
	if err != nil {
		h.chatError(w, "CreateDirectChat", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.JSON(w, status, toChatItem(*chat))
}

// GET /chats
func (h *Handler) ListMyChats(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	previews, err := h.chatSvc.ListUserChats(r.Context(), userID)
	if err != nil {
		h.chatError(w, "ListMyChats", err)
		return
	}

	items := make([]ChatItem, 0, len(previews))
	for _, p := range previews {
		item := toChatItem(p.Chat)
		if p.LastMessage != nil {
			item.LastMessage = &LastMessageItem{
				ID:        p.LastMessage.ID,
				SenderID:  p.LastMessage.SenderID,
				Content:   p.LastMessage.Content,
				CreatedAt: p.LastMessage.CreatedAt,
			}
		}
		items = append(items, item)
	}
	httputil.JSON(w, http.StatusOK, items)
}

// GET /chats/direct
func (h *Handler) ListDirectChats(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	dms, err := h.chatSvc.ListDirectChats(r.Context(), userID)
	if err != nil {
		h.chatError(w, "ListDirectChats", err)
		return
	}

	items := make([]ChatItem, 0, len(dms))
	for i := range dms {
		item := toChatItem(dms[i].Chat)
		item.Members = []UserItem{toUserItem(&dms[i].OtherUser, false)}
		items = append(items, item)
	}
	httputil.JSON(w, http.StatusOK, items)
}

// GET /chats/unjoined — групповые чаты, в которых пользователь ещё не состоит.
func (h *Handler) ListUnjoinedGroups(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	chats, err := h.chatSvc.ListUnjoinedGroups(r.Context(), userID)
	if err != nil {
		h.chatError(w, "ListUnjoinedGroups", err)
		return
	}

	items := make([]ChatItem, 0, len(chats))
	for _, c := range chats {
		items = append(items, toChatItem(c))
	}
	httputil.JSON(w, http.StatusOK, items)
}

// GET /chats/{id}
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	chatID, ok := idParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	if !h.requireMember(w, r, chatID, userID) {
		return
	}

	chat, err := h.chatSvc.GetChatWithMembers(r.Context(), chatID)
	if err != nil {
		h.chatError(w, "GetChat", err)
		return
	}

	item := toChatItem(chat.Chat)
	item.Members = make([]UserItem, 0, len(chat.Members))
	for i := range chat.Members {
		item.Members = append(item.Members, toUserItem(&chat.Members[i], false))
	}
	httputil.JSON(w, http.StatusOK, item)
}

// PATCH /chats/{id}
func (h *Handler) RenameChat(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	chatID, ok := idParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	var req RenameChatRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if err := h.chatSvc.RenameChat(r.Context(), chatID, userID, req.Name); err != nil {
		h.chatError(w, "RenameChat", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "chat renamed"})
}

// DELETE /chats/{id} — только создатель.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	chatID, ok := idParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	if err := h.chatSvc.DeleteChat(r.Context(), chatID, userID); err != nil {
		h.chatError(w, "DeleteChat", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "chat deleted"})
}

// POST /chats/{id}/members
func (h *Handler) AddMembers(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	chatID, ok := idParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	var req MembersRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if err := h.chatSvc.AddMembers(r.Context(), chatID, userID, req.UserIDs); err != nil {
		h.chatError(w, "AddMembers", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "members added"})
}

// POST /chats/{id}/leave
func (h *Handler) LeaveChat(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	chatID, ok := idParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	if err := h.chatSvc.RemoveMember(r.Context(), chatID, userID); err != nil {
		h.chatError(w, "LeaveChat", err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "left chat"})
}

// GET /chats/{id}/messages — история чата.
func (h *Handler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	chatID, ok := idParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	if !h.requireMember(w, r, chatID, userID) {
		return
	}

	views, err := h.messageSvc.GetChatMessages(r.Context(), chatID)
	if err != nil {
		h.chatError(w, "GetChatMessages", err)
		return
	}

	items := make([]MessageItem, 0, len(views))
	for _, v := range views {
		items = append(items, toMessageItem(v))
	}
	httputil.JSON(w, http.StatusOK, items)
}
