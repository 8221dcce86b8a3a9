package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ClarkHamofares/chat-app/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.MessageModel{}))
	return db
}

func appendAt(t *testing.T, repo *GormMessageRepository, from, to, text string, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Append(context.Background(), &domain.Message{
		From:      from,
		To:        to,
		Text:      text,
		CreatedAt: at,
	}))
}

func TestConversationReturnsOldestFirst(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	appendAt(t, repo, "u1", "u2", "oldest", base)
	appendAt(t, repo, "u2", "u1", "middle", base.Add(time.Minute))
	appendAt(t, repo, "u1", "u2", "newest", base.Add(2*time.Minute))

	msgs, err := repo.Conversation(context.Background(), "u1", "u2", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "oldest", msgs[0].Text)
	assert.Equal(t, "middle", msgs[1].Text)
	assert.Equal(t, "newest", msgs[2].Text)

	// Either side of the pair reads the same order.
	flipped, err := repo.Conversation(context.Background(), "u2", "u1", 100)
	require.NoError(t, err)
	assert.Equal(t, msgs, flipped)
}

func TestConversationLimitSelectsLatestPage(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	appendAt(t, repo, "u1", "u2", "dropped", base)
	appendAt(t, repo, "u1", "u2", "second", base.Add(time.Minute))
	appendAt(t, repo, "u2", "u1", "third", base.Add(2*time.Minute))

	// The limit trims the oldest messages, not the newest, and the page
	// still reads chronologically.
	msgs, err := repo.Conversation(context.Background(), "u1", "u2", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Text)
	assert.Equal(t, "third", msgs[1].Text)
}

func TestConversationExcludesOtherPairs(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	appendAt(t, repo, "u1", "u2", "ours", base)
	appendAt(t, repo, "u1", "u3", "theirs", base.Add(time.Minute))

	msgs, err := repo.Conversation(context.Background(), "u1", "u2", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ours", msgs[0].Text)
}
