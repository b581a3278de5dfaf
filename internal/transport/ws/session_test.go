package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"
)

// --- фейки коллабораторов ---

type fakeMembers struct {
	chats   map[int64]bool            // существующие чаты
	members map[int64]map[int64]bool  // chat -> user set
	added   [][2]int64
	removed [][2]int64
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{chats: map[int64]bool{}, members: map[int64]map[int64]bool{}}
}

func (f *fakeMembers) addMembership(chatID, userID int64) {
	f.chats[chatID] = true
	if f.members[chatID] == nil {
		f.members[chatID] = map[int64]bool{}
	}
	f.members[chatID][userID] = true
}

func (f *fakeMembers) IsMember(_ context.Context, chatID, userID int64) (bool, error) {
	return f.members[chatID][userID], nil
}

func (f *fakeMembers) ListUserChatIDs(_ context.Context, userID int64) ([]int64, error) {
	var out []int64
	for chatID, users := range f.members {
		if users[userID] {
			out = append(out, chatID)
		}
	}
	return out, nil
}

func (f *fakeMembers) AddMember(_ context.Context, chatID, userID int64) error {
	if !f.chats[chatID] {
		return domain.ErrChatNotFound
	}
	f.addMembership(chatID, userID)
	f.added = append(f.added, [2]int64{chatID, userID})
	return nil
}

func (f *fakeMembers) RemoveMember(_ context.Context, chatID, userID int64) error {
	if !f.members[chatID][userID] {
		return domain.ErrNotMember
	}
	delete(f.members[chatID], userID)
	f.removed = append(f.removed, [2]int64{chatID, userID})
	return nil
}

type fakeMessages struct {
	sent    []string
	lastAtt []service.AttachmentInput
	editErr error
	delErr  error
	delChat int64
}

func (f *fakeMessages) Send(_ context.Context, chatID, senderID int64, content string, atts []service.AttachmentInput) (*domain.MessageView, error) {
	f.sent = append(f.sent, content)
	f.lastAtt = atts
	v := &domain.MessageView{
		Message: domain.Message{ID: int64(len(f.sent)), ChatID: chatID, SenderID: senderID, Content: content, CreatedAt: time.Now()},
		Sender:  domain.UserInfo{DisplayName: "Sender", Username: "sender"},
	}
	for _, a := range atts {
		v.Attachments = append(v.Attachments, domain.Attachment{FileURL: a.FileURL, FileType: a.FileType})
	}
	return v, nil
}

func (f *fakeMessages) Edit(_ context.Context, messageID, userID int64, content string) (*domain.MessageView, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	return &domain.MessageView{
		Message: domain.Message{ID: messageID, ChatID: 10, SenderID: userID, Content: content},
		Sender:  domain.UserInfo{DisplayName: "Sender", Username: "sender"},
	}, nil
}

func (f *fakeMessages) Delete(_ context.Context, messageID, userID int64) (int64, error) {
	if f.delErr != nil {
		return 0, f.delErr
	}
	return f.delChat, nil
}

type fakeUsers struct{}

func (fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return &domain.User{ID: id, Username: fmt.Sprintf("user%d", id), DisplayName: fmt.Sprintf("User %d", id)}, nil
}

type fakeFiles struct{ saved int }

func (f *fakeFiles) SaveAttachment(data []byte, name, declaredType string) (string, string, error) {
	f.saved++
	return "http://localhost/uploads/messages/" + name, declaredType, nil
}

// --- сборка тестовой сессии ---

type sessionEnv struct {
	hub      *Hub
	presence *Registry
	members  *fakeMembers
	messages *fakeMessages
	files    *fakeFiles
}

func newSessionEnv() *sessionEnv {
	return &sessionEnv{
		hub:      NewHub(),
		presence: NewRegistry(),
		members:  newFakeMembers(),
		messages: &fakeMessages{delChat: 10},
		files:    &fakeFiles{},
	}
}

func (e *sessionEnv) session(userID int64) (*session, *fakeConn) {
	conn := newFakeConn(userID)
	user := &domain.User{ID: userID, Username: fmt.Sprintf("user%d", userID), DisplayName: fmt.Sprintf("User %d", userID)}
	return newSession(conn, user, e.hub, e.presence, e.members, e.messages, fakeUsers{}, e.files), conn
}

func rawEvent(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(map[string]any{"type": eventType, "payload": json.RawMessage(data)})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return raw
}

func errorMessages(c *fakeConn) []string {
	var out []string
	for _, ev := range c.sentOfType(EventError) {
		out = append(out, ev.Payload.(ErrorPayload).Message)
	}
	return out
}

// --- тесты ---

func TestSession_Start_SubscribesUserChatsAndBroadcastsPresence(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	env.members.addMembership(20, 1)

	other, otherConn := env.session(2)
	env.members.addMembership(10, 2)
	other.start(context.Background())

	sess, conn := env.session(1)
	sess.start(context.Background())

	rooms := env.hub.Rooms(conn)
	if len(rooms) != 2 {
		t.Fatalf("expected auto-subscription to 2 chats, got %v", rooms)
	}
	if !env.presence.IsPresent(1) {
		t.Fatalf("user must be present after start")
	}

	// оба присутствующих получают online-статус новичка
	for _, c := range []*fakeConn{conn, otherConn} {
		found := false
		for _, ev := range c.sentOfType(EventPresenceUpdate) {
			p := ev.Payload.(PresencePayload)
			if p.UserID == 1 && p.Status == StatusOnline {
				found = true
			}
		}
		if !found {
			t.Fatalf("conn %s: missing online presence for user 1", c.ID())
		}
	}
}

func TestSession_Close_BroadcastsOfflineOnlyForLiveConn(t *testing.T) {
	env := newSessionEnv()

	observer, observerConn := env.session(2)
	observer.start(context.Background())

	stale, _ := env.session(1)
	stale.start(context.Background())
	fresh, _ := env.session(1)
	fresh.start(context.Background()) // перезаписывает presence пользователя 1

	observerConn.mu.Lock()
	observerConn.events = nil
	observerConn.mu.Unlock()

	stale.close()
	for _, ev := range observerConn.sentOfType(EventPresenceUpdate) {
		if p := ev.Payload.(PresencePayload); p.UserID == 1 && p.Status == StatusOffline {
			t.Fatalf("stale connection teardown must not broadcast offline")
		}
	}
	if !env.presence.IsPresent(1) {
		t.Fatalf("user 1 must stay present")
	}

	fresh.close()
	found := false
	for _, ev := range observerConn.sentOfType(EventPresenceUpdate) {
		if p := ev.Payload.(PresencePayload); p.UserID == 1 && p.Status == StatusOffline {
			found = true
		}
	}
	if !found {
		t.Fatalf("live connection teardown must broadcast offline")
	}
}

func TestSession_SendMessage_BroadcastsToRoomOnly(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	env.members.addMembership(10, 2)
	env.members.addMembership(20, 3)

	sender, senderConn := env.session(1)
	sender.start(context.Background())
	member, memberConn := env.session(2)
	member.start(context.Background())
	outsider, outsiderConn := env.session(3)
	outsider.start(context.Background())

	sender.dispatch(context.Background(), rawEvent(t, EventMessageSend, SendMessagePayload{ChatID: 10, Content: "hello"}))

	if len(env.messages.sent) != 1 || env.messages.sent[0] != "hello" {
		t.Fatalf("message must be persisted, got %v", env.messages.sent)
	}
	// отправитель получает то же room-событие, что и остальные
	for _, c := range []*fakeConn{senderConn, memberConn} {
		evs := c.sentOfType(EventMessageNew)
		if len(evs) != 1 {
			t.Fatalf("conn %s: expected 1 message:new, got %d", c.ID(), len(evs))
		}
		p := evs[0].Payload.(MessagePayload)
		if p.Content != "hello" || p.ChatID != 10 || p.Attachments == nil {
			t.Fatalf("unexpected payload: %+v", p)
		}
	}
	if got := len(outsiderConn.sentOfType(EventMessageNew)); got != 0 {
		t.Fatalf("other room must not receive the message, got %d", got)
	}
}

func TestSession_SendMessage_NonMemberRejected(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 2)

	member, memberConn := env.session(2)
	member.start(context.Background())

	intruder, intruderConn := env.session(1)
	intruder.start(context.Background())

	intruder.dispatch(context.Background(), rawEvent(t, EventMessageSend, SendMessagePayload{ChatID: 10, Content: "hi"}))

	if len(env.messages.sent) != 0 {
		t.Fatalf("store must stay untouched for non-member, got %v", env.messages.sent)
	}
	msgs := errorMessages(intruderConn)
	if len(msgs) != 1 || msgs[0] != "access denied to this chat" {
		t.Fatalf("expected access denied error for sender, got %v", msgs)
	}
	if got := len(memberConn.sentOfType(EventError)); got != 0 {
		t.Fatalf("error must go to the initiator only, got %d", got)
	}
}

func TestSession_SendMessage_Validation(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	sess, conn := env.session(1)
	sess.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventMessageSend, SendMessagePayload{ChatID: 10, Content: "   "}))
	sess.dispatch(context.Background(), rawEvent(t, EventMessageSend, SendMessagePayload{
		ChatID: 10, Content: strings.Repeat("a", domain.MaxContentLength+1),
	}))

	msgs := errorMessages(conn)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", msgs)
	}
	if !strings.Contains(msgs[1], "too long") {
		t.Fatalf("expected length error, got %q", msgs[1])
	}
	if len(env.messages.sent) != 0 {
		t.Fatalf("invalid messages must not be persisted")
	}
}

func TestSession_SendMessage_AttachmentOnlyAllowed(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	sess, conn := env.session(1)
	sess.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventMessageSend, SendMessagePayload{
		ChatID:      10,
		Attachments: []AttachmentUpload{{Name: "pic.png", Type: "image/png", Data: []byte{1, 2, 3}}},
	}))

	if got := errorMessages(conn); len(got) != 0 {
		t.Fatalf("attachment-only message must be accepted, got errors %v", got)
	}
	if env.files.saved != 1 {
		t.Fatalf("blob must be persisted, saved=%d", env.files.saved)
	}
	if len(env.messages.lastAtt) != 1 || env.messages.lastAtt[0].FileType != "image/png" {
		t.Fatalf("attachment metadata must reach the store, got %v", env.messages.lastAtt)
	}
}

func TestSession_Typing_ExcludesSenderAndCarriesUserInfo(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	env.members.addMembership(10, 2)

	typer, typerConn := env.session(1)
	typer.start(context.Background())
	watcher, watcherConn := env.session(2)
	watcher.start(context.Background())

	typer.dispatch(context.Background(), rawEvent(t, EventTypingStart, ChatRefPayload{ChatID: 10}))

	if got := len(typerConn.sentOfType(EventTypingStart)); got != 0 {
		t.Fatalf("typing must not echo to the typist, got %d", got)
	}
	evs := watcherConn.sentOfType(EventTypingStart)
	if len(evs) != 1 {
		t.Fatalf("expected 1 typing:start for the watcher, got %d", len(evs))
	}
	p := evs[0].Payload.(TypingPayload)
	if p.UserID != 1 || p.UserInfo == nil || p.UserInfo.Username != "user1" {
		t.Fatalf("unexpected typing payload: %+v", p)
	}

	typer.dispatch(context.Background(), rawEvent(t, EventTypingStop, ChatRefPayload{ChatID: 10}))
	stops := watcherConn.sentOfType(EventTypingStop)
	if len(stops) != 1 {
		t.Fatalf("expected 1 typing:stop, got %d", len(stops))
	}
	if sp := stops[0].Payload.(TypingPayload); sp.UserInfo != nil {
		t.Fatalf("typing:stop must not hydrate user info")
	}
}

func TestSession_Typing_NonMemberRejected(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 2)
	sess, conn := env.session(1)
	sess.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventTypingStart, ChatRefPayload{ChatID: 10}))

	msgs := errorMessages(conn)
	if len(msgs) != 1 || msgs[0] != "access denied to this chat" {
		t.Fatalf("expected access denied, got %v", msgs)
	}
}

func TestSession_EditMessage_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrMessageNotFound, "message not found"},
		{domain.ErrAccessDenied, "cannot edit this message"},
		{domain.ErrEditWindowExpired, "edit window expired"},
	}
	for _, tc := range cases {
		env := newSessionEnv()
		env.messages.editErr = tc.err
		sess, conn := env.session(1)

		sess.dispatch(context.Background(), rawEvent(t, EventMessageEdit, EditMessagePayload{MessageID: 5, Content: "x"}))

		msgs := errorMessages(conn)
		if len(msgs) != 1 || msgs[0] != tc.want {
			t.Fatalf("err %v: expected %q, got %v", tc.err, tc.want, msgs)
		}
	}
}

func TestSession_EditMessage_BroadcastsToRoom(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	sess, conn := env.session(1)
	sess.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventMessageEdit, EditMessagePayload{MessageID: 5, Content: "edited"}))

	evs := conn.sentOfType(EventMessageEdit)
	if len(evs) != 1 {
		t.Fatalf("expected message:edit broadcast, got %d", len(evs))
	}
	if p := evs[0].Payload.(MessagePayload); p.Content != "edited" || p.ID != 5 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestSession_DeleteMessage_BroadcastsID(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	env.members.addMembership(10, 2)
	sess, _ := env.session(1)
	sess.start(context.Background())
	member, memberConn := env.session(2)
	member.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventMessageDelete, DeleteMessagePayload{MessageID: 7}))

	evs := memberConn.sentOfType(EventMessageDelete)
	if len(evs) != 1 {
		t.Fatalf("expected message:delete broadcast, got %d", len(evs))
	}
	if p := evs[0].Payload.(DeleteMessagePayload); p.MessageID != 7 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestSession_DeleteMessage_AccessDenied(t *testing.T) {
	env := newSessionEnv()
	env.messages.delErr = domain.ErrAccessDenied
	sess, conn := env.session(1)

	sess.dispatch(context.Background(), rawEvent(t, EventMessageDelete, DeleteMessagePayload{MessageID: 7}))

	msgs := errorMessages(conn)
	if len(msgs) != 1 || msgs[0] != "cannot delete this message" {
		t.Fatalf("expected delete denial, got %v", msgs)
	}
}

func TestSession_ChatJoin_AddsMembershipAndNotifies(t *testing.T) {
	env := newSessionEnv()
	env.members.chats[10] = true
	env.members.addMembership(10, 2)

	member, memberConn := env.session(2)
	member.start(context.Background())

	joiner, joinerConn := env.session(1)
	joiner.start(context.Background())

	joiner.dispatch(context.Background(), rawEvent(t, EventChatJoin, ChatRefPayload{ChatID: 10}))

	if len(env.members.added) != 1 || env.members.added[0] != [2]int64{10, 1} {
		t.Fatalf("membership row must be added, got %v", env.members.added)
	}
	// user:joined видят и старый участник, и сам вступивший
	for _, c := range []*fakeConn{memberConn, joinerConn} {
		evs := c.sentOfType(EventUserJoined)
		if len(evs) != 1 {
			t.Fatalf("conn %s: expected user:joined, got %d", c.ID(), len(evs))
		}
		if p := evs[0].Payload.(MemberEventPayload); p.ChatID != 10 || p.UserID != 1 {
			t.Fatalf("unexpected payload: %+v", p)
		}
	}
}

func TestSession_ChatJoin_UnknownChat(t *testing.T) {
	env := newSessionEnv()
	sess, conn := env.session(1)
	sess.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventChatJoin, ChatRefPayload{ChatID: 99}))

	msgs := errorMessages(conn)
	if len(msgs) != 1 || msgs[0] != "chat not found" {
		t.Fatalf("expected chat not found, got %v", msgs)
	}
	if got := env.hub.Rooms(conn); len(got) != 0 {
		t.Fatalf("failed join must roll back the subscription, got %v", got)
	}
}

func TestSession_ChatLeave_MemberLeavesAndSeesOwnEvent(t *testing.T) {
	env := newSessionEnv()
	env.members.addMembership(10, 1)
	sess, conn := env.session(1)
	sess.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventChatLeave, ChatRefPayload{ChatID: 10}))

	if len(env.members.removed) != 1 || env.members.removed[0] != [2]int64{10, 1} {
		t.Fatalf("membership row must be removed, got %v", env.members.removed)
	}
	// ушедший ещё получает собственный user:left до отписки от комнаты
	evs := conn.sentOfType(EventUserLeft)
	if len(evs) != 1 {
		t.Fatalf("expected user:left for the leaver, got %d", len(evs))
	}
	if got := env.hub.Rooms(conn); len(got) != 0 {
		t.Fatalf("leaver must be unsubscribed, got %v", got)
	}
}

func TestSession_ChatLeave_NonMemberRejected(t *testing.T) {
	env := newSessionEnv()
	sess, conn := env.session(1)
	sess.start(context.Background())

	sess.dispatch(context.Background(), rawEvent(t, EventChatLeave, ChatRefPayload{ChatID: 10}))

	msgs := errorMessages(conn)
	if len(msgs) != 1 || msgs[0] != "not a member of this chat" {
		t.Fatalf("expected membership error, got %v", msgs)
	}
}

func TestSession_Dispatch_MalformedAndUnknownEvents(t *testing.T) {
	env := newSessionEnv()
	sess, conn := env.session(1)

	sess.dispatch(context.Background(), []byte("{not json"))
	if msgs := errorMessages(conn); len(msgs) != 1 || msgs[0] != "invalid event payload" {
		t.Fatalf("expected payload error, got %v", msgs)
	}

	sess.dispatch(context.Background(), rawEvent(t, "room:unknown", ChatRefPayload{ChatID: 1}))
	if got := len(conn.sent()); got != 1 {
		t.Fatalf("unknown events must be ignored silently, got %d events", got)
	}
}
