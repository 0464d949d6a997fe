package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/logging"
	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newPostService(db *sql.DB, rm *fakeRepoManager) *PostService {
	s := NewPostService(db, rm, logging.Nop())
	s.now = func() time.Time { return fixedNow }
	s.loc = time.UTC
	return s
}

func TestSchedule_Success(t *testing.T) {
	rm := newFakeRepoManager()
	s := newPostService(nil, rm)

	post, err := s.Schedule(context.Background(), ScheduleRequest{
		UserID:       "spez",
		Subreddit:    "  golang ",
		Title:        " hello ",
		ScheduleTime: "2030-01-01T14:00:00+01:00",
		Body:         strp("  "),
		Link:         strp(" https://go.dev "),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, post.PostID)
	assert.Equal(t, "golang", post.Subreddit)
	assert.Equal(t, "hello", post.Title)
	assert.Equal(t, common.StatusPending, post.Status)
	assert.Nil(t, post.Body)
	require.NotNil(t, post.Link)
	assert.Equal(t, "https://go.dev", *post.Link)
	assert.Equal(t, time.Date(2030, 1, 1, 13, 0, 0, 0, time.UTC), post.ScheduleTime)
	assert.Len(t, rm.posts.rows, 1)
}

func TestSchedule_TrimsUserID(t *testing.T) {
	rm := newFakeRepoManager()
	s := newPostService(nil, rm)

	post, err := s.Schedule(context.Background(), ScheduleRequest{
		UserID:       " spez ",
		Subreddit:    "golang",
		Title:        "hello",
		ScheduleTime: "2030-01-02T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "spez", post.UserID)
}

func TestSchedule_LocalTimeLayout(t *testing.T) {
	rm := newFakeRepoManager()
	s := newPostService(nil, rm)

	post, err := s.Schedule(context.Background(), ScheduleRequest{
		UserID: "spez", Subreddit: "test", Title: "t", ScheduleTime: "2030-01-01T12:30",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 1, 12, 30, 0, 0, time.UTC), post.ScheduleTime)
}

func TestSchedule_Validation(t *testing.T) {
	valid := ScheduleRequest{UserID: "spez", Subreddit: "test", Title: "t", ScheduleTime: "2030-01-02T00:00:00Z"}

	tests := []struct {
		name   string
		mutate func(r *ScheduleRequest)
		kind   error
		msg    string
	}{
		{"missing subreddit", func(r *ScheduleRequest) { r.Subreddit = "" }, common.ErrorValidation, msgMissingFields},
		{"blank title", func(r *ScheduleRequest) { r.Title = "   " }, common.ErrorValidation, msgMissingFields},
		{"missing time", func(r *ScheduleRequest) { r.ScheduleTime = "" }, common.ErrorValidation, msgMissingFields},
		{"fields checked before user", func(r *ScheduleRequest) { r.Title = ""; r.UserID = "" }, common.ErrorValidation, msgMissingFields},
		{"missing user", func(r *ScheduleRequest) { r.UserID = "" }, common.ErrorUnauthorized, msgNotAuthenticated},
		{"user checked before time", func(r *ScheduleRequest) { r.UserID = ""; r.ScheduleTime = "yesterday" }, common.ErrorUnauthorized, msgNotAuthenticated},
		{"unparseable time", func(r *ScheduleRequest) { r.ScheduleTime = "tomorrow" }, common.ErrorValidation, msgInvalidTime},
		{"time equals now", func(r *ScheduleRequest) { r.ScheduleTime = "2030-01-01T12:00:00Z" }, common.ErrorValidation, msgTimeNotFuture},
		{"time in past", func(r *ScheduleRequest) { r.ScheduleTime = "2030-01-01T11:59:59Z" }, common.ErrorValidation, msgTimeNotFuture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newFakeRepoManager()
			s := newPostService(nil, rm)
			req := valid
			tt.mutate(&req)

			_, err := s.Schedule(context.Background(), req)
			requireRequestError(t, err, tt.kind, tt.msg)
			assert.Empty(t, rm.posts.rows)
		})
	}
}

func TestSchedule_PersistenceError(t *testing.T) {
	rm := newFakeRepoManager()
	rm.posts.createErr = errors.New("db error: connection refused")
	s := newPostService(nil, rm)

	_, err := s.Schedule(context.Background(), ScheduleRequest{
		UserID: "spez", Subreddit: "test", Title: "t", ScheduleTime: "2031-01-01T00:00:00Z",
	})
	require.Error(t, err)
	assert.False(t, IsRequestError(err))
	assert.Equal(t, "db error: connection refused", err.Error())
}

func TestList_OrderedNewestFirst(t *testing.T) {
	rm := newFakeRepoManager()
	s := newPostService(nil, rm)

	early := rm.posts.insert(models.ScheduledPost{UserID: "spez", Title: "early", ScheduleTime: fixedNow.Add(time.Hour)})
	late := rm.posts.insert(models.ScheduledPost{UserID: "spez", Title: "late", ScheduleTime: fixedNow.Add(48 * time.Hour)})
	rm.posts.insert(models.ScheduledPost{UserID: "other", Title: "x", ScheduleTime: fixedNow.Add(time.Hour)})

	got, err := s.List(context.Background(), "spez")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, late, got[0].PostID)
	assert.Equal(t, early, got[1].PostID)
}

func TestList_Errors(t *testing.T) {
	rm := newFakeRepoManager()
	s := newPostService(nil, rm)

	_, err := s.List(context.Background(), "")
	requireRequestError(t, err, common.ErrorUnauthorized, msgNotAuthenticated)

	rm.posts.listErr = errors.New("db error: x")
	_, err = s.List(context.Background(), "spez")
	assert.EqualError(t, err, "db error: x")
}

func TestDelete_Pending(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	s := newPostService(db, rm)
	id := rm.posts.insert(models.ScheduledPost{UserID: "spez", ScheduleTime: fixedNow.Add(time.Hour)})

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, s.Delete(context.Background(), "spez", id))
	assert.Nil(t, rm.posts.get(id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NonPendingForbidden(t *testing.T) {
	for _, status := range []string{common.StatusSent, common.StatusFailed} {
		t.Run(status, func(t *testing.T) {
			db, mock := newSQLMockDB(t)
			rm := newFakeRepoManager()
			s := newPostService(db, rm)
			id := rm.posts.insert(models.ScheduledPost{UserID: "spez", Status: status})

			mock.ExpectBegin()
			mock.ExpectRollback()

			err := s.Delete(context.Background(), "spez", id)
			requireRequestError(t, err, common.ErrorForbidden, msgOnlyPending)

			row := rm.posts.get(id)
			require.NotNil(t, row)
			assert.Equal(t, status, row.Status)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDelete_RequestChecks(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	s := newPostService(db, rm)

	err := s.Delete(context.Background(), "", "x")
	requireRequestError(t, err, common.ErrorUnauthorized, msgNotAuthenticated)

	err = s.Delete(context.Background(), "spez", "")
	requireRequestError(t, err, common.ErrorValidation, msgMissingPostID)

	err = s.Delete(context.Background(), "spez", "not-a-uuid")
	requireRequestError(t, err, common.ErrorNotFound, msgNotFoundOrNotOwned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotOwned(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	s := newPostService(db, rm)
	id := rm.posts.insert(models.ScheduledPost{UserID: "owner"})

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.Delete(context.Background(), "intruder", id)
	requireRequestError(t, err, common.ErrorNotFound, msgNotFoundOrNotOwned)
	assert.NotNil(t, rm.posts.get(id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_GoneAtDelete(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.posts.deleteErr = common.ErrorNotFound
	s := newPostService(db, rm)
	id := rm.posts.insert(models.ScheduledPost{UserID: "spez"})

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.Delete(context.Background(), "spez", id)
	requireRequestError(t, err, common.ErrorNotFound, msgPostNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_DBErrors(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		rm := newFakeRepoManager()
		s := newPostService(db, rm)
		id := rm.posts.insert(models.ScheduledPost{UserID: "spez"})

		mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

		err := s.Delete(context.Background(), "spez", id)
		assert.EqualError(t, err, "begin failed")
		assert.False(t, IsRequestError(err))
	})

	t.Run("find", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		rm := newFakeRepoManager()
		rm.posts.findErr = errors.New("db error: lock timeout")
		s := newPostService(db, rm)
		id := rm.posts.insert(models.ScheduledPost{UserID: "spez"})

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.Delete(context.Background(), "spez", id)
		assert.EqualError(t, err, "db error: lock timeout")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
