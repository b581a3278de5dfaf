package domain

import "errors"

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrNotMember    = errors.New("user is not a member of the chat")
	ErrAccessDenied = errors.New("access denied")

	ErrEmptyMessage      = errors.New("message content or attachments required")
	ErrContentTooLong    = errors.New("message content too long")
	ErrEditWindowExpired = errors.New("edit window expired")
)
