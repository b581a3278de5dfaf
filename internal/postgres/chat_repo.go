package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO chats (is_group, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, chat.IsGroup, chat.Name, chat.CreatedBy).
		Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt)
}

func (r *ChatRepository) Get(ctx context.Context, id int64) (*domain.Chat, error) {
	var c domain.Chat
	err := r.db.QueryRow(ctx,
		`SELECT id, is_group, name, created_by, created_at, updated_at FROM chats WHERE id=$1`, id).
		Scan(&c.ID, &c.IsGroup, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepository) UpdateName(ctx context.Context, id int64, name string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE chats SET name=$2, updated_at=now() WHERE id=$1`, id, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

func (r *ChatRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chats WHERE id=$1`, id)
	return err
}

// --- membership (durable source of truth for room authorization) ---

func (r *ChatRepository) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id=$1 AND user_id=$2)`,
		chatID, userID).Scan(&exists)
	return exists, err
}

// AddMembers вставляет участников; дубликаты молча пропускаются
// (unique(chat_id,user_id) + ON CONFLICT DO NOTHING — идемпотентный join).
func (r *ChatRepository) AddMembers(ctx context.Context, chatID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, uid := range userIDs {
		batch.Queue(`
			INSERT INTO chat_members (chat_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (chat_id, user_id) DO NOTHING
		`, chatID, uid)
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range userIDs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChatRepository) RemoveMember(ctx context.Context, chatID, userID int64) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM chat_members WHERE chat_id=$1 AND user_id=$2`, chatID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotMember
	}
	return nil
}

func (r *ChatRepository) ListMembers(ctx context.Context, chatID int64) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.email, u.username, u.display_name, u.password,
		       u.phone, u.avatar_url, u.bio, u.created_at, u.updated_at
		FROM chat_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.chat_id = $1
		ORDER BY cm.joined_at
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListChatIDsByUser — все чаты пользователя; гейтвей по этому списку
// восстанавливает live-подписки при каждом подключении.
func (r *ChatRepository) ListChatIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chat_id FROM chat_members WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ChatRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Chat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.is_group, c.name, c.created_by, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_members cm ON c.id = cm.chat_id
		WHERE cm.user_id = $1
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChats(rows)
}

func (r *ChatRepository) ListUnjoinedGroups(ctx context.Context, userID int64) ([]domain.Chat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.is_group, c.name, c.created_by, c.created_at, c.updated_at
		FROM chats c
		WHERE c.is_group = true
		  AND c.id NOT IN (SELECT chat_id FROM chat_members WHERE user_id = $1)
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChats(rows)
}

// FindDirectChat ищет DM ровно с двумя заданными участниками (не больше).
func (r *ChatRepository) FindDirectChat(ctx context.Context, userID1, userID2 int64) (*domain.Chat, error) {
	var c domain.Chat
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.is_group, c.name, c.created_by, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_members cm1 ON c.id = cm1.chat_id AND cm1.user_id = $1
		JOIN chat_members cm2 ON c.id = cm2.chat_id AND cm2.user_id = $2
		WHERE c.is_group = false
		  AND (SELECT COUNT(*) FROM chat_members cm WHERE cm.chat_id = c.id) = 2
		LIMIT 1
	`, userID1, userID2).
		Scan(&c.ID, &c.IsGroup, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepository) ListDirectByUser(ctx context.Context, userID int64) ([]domain.DirectChat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.is_group, c.name, c.created_by, c.created_at, c.updated_at,
		       u.id, u.email, u.username, u.display_name, u.password,
		       u.phone, u.avatar_url, u.bio, u.created_at, u.updated_at
		FROM chats c
		JOIN chat_members cm ON c.id = cm.chat_id AND cm.user_id = $1
		JOIN chat_members cm2 ON c.id = cm2.chat_id AND cm2.user_id != $1
		JOIN users u ON u.id = cm2.user_id
		WHERE c.is_group = false
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DirectChat
	for rows.Next() {
		var d domain.DirectChat
		if err := rows.Scan(
			&d.ID, &d.IsGroup, &d.Name, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
			&d.OtherUser.ID, &d.OtherUser.Email, &d.OtherUser.Username, &d.OtherUser.DisplayName,
			&d.OtherUser.PasswordHash, &d.OtherUser.Phone, &d.OtherUser.AvatarURL, &d.OtherUser.Bio,
			&d.OtherUser.CreatedAt, &d.OtherUser.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func collectChats(rows pgx.Rows) ([]domain.Chat, error) {
	var out []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ID, &c.IsGroup, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
