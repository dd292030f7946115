package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

func TestConversationAppendPushesMessageAndKeepsTitle(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO conversations .*ON CONFLICT \(session_id\) DO UPDATE SET\s+messages = conversations.messages \|\| EXCLUDED.messages`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	conv := &models.Conversation{SessionID: "chat-1", UserID: "s1", Title: "Horaires"}
	require.NoError(t, repo.Append(context.Background(), conv, models.ChatMessage{User: "bonjour", AI: "salut"}))
	require.Len(t, conv.Messages, 1)
	assert.False(t, conv.Messages[0].Time.IsZero())
	assert.False(t, conv.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationFindByIDDecodesMessages(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM conversations WHERE session_id = \\$1").
		WithArgs("chat-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "user_id", "title", "messages", "created_at", "updated_at"}).
			AddRow("chat-1", "s1", "Horaires", []byte(`[{"user":"bonjour","ai":"salut","time":"2024-01-02T10:00:00Z"}]`), now, now))
	mock.ExpectQuery("FROM conversations WHERE session_id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	conv, err := repo.FindByID(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "salut", conv.Messages[0].AI)
	assert.Equal(t, "s1", conv.UserID)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationListByUserNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewConversationRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM conversations WHERE user_id = \\$1 ORDER BY updated_at DESC").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "title", "updated_at"}).
			AddRow("chat-2", "Examens", now).
			AddRow("chat-1", "Horaires", now.Add(-time.Hour)))

	list, err := repo.ListByUser(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "chat-2", list[0].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
