package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrate(context.Background(), conn))
	return conn
}

func seedNotification(t *testing.T, conn *gorm.DB, userID uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	row := models.Notification{
		UserID:    userID,
		Type:      enums.NotificationTypeOrderPlaced,
		Title:     "Order placed successfully!",
		Message:   "msg",
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func TestRepository_ListPagesNewestFirst(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	oldest := seedNotification(t, conn, userID, base)
	middle := seedNotification(t, conn, userID, base.Add(time.Minute))
	newest := seedNotification(t, conn, userID, base.Add(2*time.Minute))
	seedNotification(t, conn, uuid.New(), base.Add(3*time.Minute))

	page, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID)
	assert.Equal(t, middle.ID, page[1].ID)

	cursor := &pagination.Cursor{CreatedAt: page[1].CreatedAt.UTC(), ID: page[1].ID}
	rest, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)
}

func TestRepository_MarkReadScopedToUser(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()
	row := seedNotification(t, conn, owner, time.Now().UTC())

	res, err := repo.MarkRead(ctx, uuid.New(), row.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = repo.MarkRead(ctx, owner, row.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.Updated)

	res, err = repo.MarkRead(ctx, owner, row.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.False(t, res.Updated)

	unread, err := repo.List(ctx, listNotificationsParams{UserID: owner, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRepository_MarkAllRead(t *testing.T) {
	conn := setupNotificationsTestDB(t)
	repo := NewRepository(conn)
	userID := uuid.New()
	seedNotification(t, conn, userID, time.Now().UTC())
	seedNotification(t, conn, userID, time.Now().UTC().Add(time.Second))

	count, err := repo.MarkAllRead(context.Background(), userID, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
