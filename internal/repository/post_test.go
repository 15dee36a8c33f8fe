package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"lookup/internal/models"
	"lookup/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedFeed(t *testing.T, repo FeedRepository, created time.Time) *models.Feed {
	t.Helper()
	feed := &models.Feed{Emoji: "☀️", Location: "Seoul", CreatedAt: created, ExpiresAt: created.Add(3 * time.Minute)}
	require.NoError(t, repo.Create(context.Background(), feed))
	require.NotZero(t, feed.ID)
	return feed
}

func TestFeedRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	feed := seedFeed(t, repo, now)

	got, err := repo.GetByID(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seoul", got.Location)
	assert.Equal(t, 180*time.Second, got.ExpiresAt.Sub(got.CreatedAt))

	ok, err := repo.Exists(ctx, feed.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, feed.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetByID(ctx, feed.ID+100)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_ListByFeed(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := NewUserRepository(db, nil)
	feeds := NewFeedRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := newUser("kate")
	author.Nickname = "Kate"
	require.NoError(t, users.Create(ctx, author))

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	feed := seedFeed(t, feeds, base)
	other := seedFeed(t, feeds, base)

	empty, err := posts.ListByFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	caption := "hello"
	inputs := []*models.Post{
		{ImagePath: "/uploads/a.jpg", UserID: "kate", FeedID: feed.ID, CreatedAt: base.Add(time.Second)},
		{ImagePath: "/uploads/b.jpg", Caption: &caption, UserID: "kate", FeedID: feed.ID, CreatedAt: base.Add(3 * time.Second)},
		{ImagePath: "/uploads/c.mp4", IsVideo: true, UserID: "kate", FeedID: feed.ID, CreatedAt: base.Add(3 * time.Second)},
		{ImagePath: "/uploads/d.jpg", UserID: "kate", FeedID: other.ID, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, p := range inputs {
		require.NoError(t, posts.Create(ctx, p))
	}

	list, err := posts.ListByFeed(ctx, feed.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Equal timestamps fall back to id order, newest id first.
	assert.Equal(t, "/uploads/c.mp4", list[0].ImagePath)
	assert.True(t, list[0].IsVideo)
	assert.Equal(t, "/uploads/b.jpg", list[1].ImagePath)
	require.NotNil(t, list[1].Caption)
	assert.Equal(t, "hello", *list[1].Caption)
	assert.Equal(t, "/uploads/a.jpg", list[2].ImagePath)
	assert.Nil(t, list[2].Caption)
	for _, p := range list {
		assert.Equal(t, "Kate", p.Nickname)
		assert.Equal(t, feed.ID, p.FeedID)
	}

	all, err := posts.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "/uploads/d.jpg", all[2].ImagePath)
}

func TestPostRepository_CreateRequiresExistingReferences(t *testing.T) {
	db := testutil.NewTestDB(t)
	posts := NewPostRepository(db)

	err := posts.Create(context.Background(), &models.Post{ImagePath: "/uploads/x.jpg", UserID: "ghost", FeedID: 42})
	assert.True(t, models.HasCode(err, models.CodeInternal))

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostRepository_CreateDriverError(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	posts := NewPostRepository(db)
	dbErr := errors.New("Error 1452: Cannot add or update a child row")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `posts`")).WillReturnError(dbErr)

	err := posts.Create(context.Background(), &models.Post{ImagePath: "/uploads/x.jpg", UserID: "u", FeedID: 1})
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListQueryError(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	posts := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN users ON users.id = posts.user_id")).WillReturnError(gorm.ErrInvalidDB)

	_, err := posts.ListAll(context.Background())
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}
