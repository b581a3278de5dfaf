package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO messages (chat_id, sender_id, content, reply_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, m.ChatID, m.SenderID, m.Content, m.ReplyTo).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// Get возвращает не удалённое сообщение без гидрации.
func (r *MessageRepository) Get(ctx context.Context, id int64) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, chat_id, sender_id, content, reply_to,
		       created_at, updated_at, edited_at, deleted_at
		FROM messages
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.ReplyTo,
		&m.CreatedAt, &m.UpdatedAt, &m.EditedAt, &m.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetView — сообщение вместе с профилем отправителя и вложениями.
func (r *MessageRepository) GetView(ctx context.Context, id int64) (*domain.MessageView, error) {
	var v domain.MessageView
	err := r.db.QueryRow(ctx, `
		SELECT m.id, m.chat_id, m.sender_id, m.content, m.reply_to,
		       m.created_at, m.updated_at, m.edited_at, m.deleted_at,
		       u.display_name, u.username, u.avatar_url
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1 AND m.deleted_at IS NULL
	`, id).Scan(&v.ID, &v.ChatID, &v.SenderID, &v.Content, &v.ReplyTo,
		&v.CreatedAt, &v.UpdatedAt, &v.EditedAt, &v.DeletedAt,
		&v.Sender.DisplayName, &v.Sender.Username, &v.Sender.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}

	atts, err := r.ListAttachments(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	v.Attachments = atts
	return &v, nil
}

// ListByChat — история чата (без soft-deleted), старые сначала.
func (r *MessageRepository) ListByChat(ctx context.Context, chatID int64) ([]domain.MessageView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.chat_id, m.sender_id, m.content, m.reply_to,
		       m.created_at, m.updated_at, m.edited_at, m.deleted_at,
		       u.display_name, u.username, u.avatar_url
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = $1 AND m.deleted_at IS NULL
		ORDER BY m.created_at ASC, m.id ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MessageView
	for rows.Next() {
		var v domain.MessageView
		if err := rows.Scan(&v.ID, &v.ChatID, &v.SenderID, &v.Content, &v.ReplyTo,
			&v.CreatedAt, &v.UpdatedAt, &v.EditedAt, &v.DeletedAt,
			&v.Sender.DisplayName, &v.Sender.Username, &v.Sender.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// вложения одним запросом на всю страницу, не по одному на сообщение
	if len(out) > 0 {
		ids := make([]int64, 0, len(out))
		byID := make(map[int64]*domain.MessageView, len(out))
		for i := range out {
			ids = append(ids, out[i].ID)
			byID[out[i].ID] = &out[i]
		}
		arows, err := r.db.Query(ctx, `
			SELECT id, message_id, file_url, file_type, created_at
			FROM message_attachments
			WHERE message_id = ANY($1)
			ORDER BY id
		`, ids)
		if err != nil {
			return nil, err
		}
		defer arows.Close()
		for arows.Next() {
			var a domain.Attachment
			if err := arows.Scan(&a.ID, &a.MessageID, &a.FileURL, &a.FileType, &a.CreatedAt); err != nil {
				return nil, err
			}
			if v, ok := byID[a.MessageID]; ok {
				v.Attachments = append(v.Attachments, a)
			}
		}
		if err := arows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetLastByChat — последнее сообщение чата для превью списка чатов.
func (r *MessageRepository) GetLastByChat(ctx context.Context, chatID int64) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, chat_id, sender_id, content, reply_to,
		       created_at, updated_at, edited_at, deleted_at
		FROM messages
		WHERE chat_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, chatID).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.ReplyTo,
		&m.CreatedAt, &m.UpdatedAt, &m.EditedAt, &m.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) UpdateContent(ctx context.Context, id int64, content string, now time.Time) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE messages SET content=$2, edited_at=$3, updated_at=$3
		WHERE id=$1 AND deleted_at IS NULL
	`, id, content, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// SoftDelete помечает сообщение удалённым; строка остаётся.
func (r *MessageRepository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE messages SET deleted_at=$2, updated_at=$2
		WHERE id=$1 AND deleted_at IS NULL
	`, id, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// DeleteAuth — кто может удалить: отправитель или создатель чата.
type DeleteAuth struct {
	SenderID      int64
	ChatID        int64
	ChatCreatedBy int64
}

func (r *MessageRepository) GetDeleteAuth(ctx context.Context, id int64) (*DeleteAuth, error) {
	var a DeleteAuth
	err := r.db.QueryRow(ctx, `
		SELECT m.sender_id, m.chat_id, c.created_by
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE m.id = $1 AND m.deleted_at IS NULL
	`, id).Scan(&a.SenderID, &a.ChatID, &a.ChatCreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *MessageRepository) AddAttachments(ctx context.Context, messageID int64, atts []domain.Attachment) error {
	if len(atts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range atts {
		batch.Queue(`
			INSERT INTO message_attachments (message_id, file_url, file_type)
			VALUES ($1, $2, $3)
		`, messageID, a.FileURL, a.FileType)
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range atts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *MessageRepository) ListAttachments(ctx context.Context, messageID int64) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, message_id, file_url, file_type, created_at
		FROM message_attachments
		WHERE message_id = $1
		ORDER BY id
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.FileURL, &a.FileType, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
