package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"backend-tweeter/internal/comment"
	"backend-tweeter/internal/shared/apperr"
	"backend-tweeter/internal/stream"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var errTimeline = errors.New("timeline error")

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func newService(mock pgxmock.PgxPoolIface, hub *stream.Hub) *Service {
	return NewService(mock, comment.NewService(mock), hub)
}

func postRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "content", "author_id", "username", "profile_photo",
		"likes", "created_at", "updated_at",
	})
}

func commentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "post_id", "content", "author_id", "username", "profile_photo",
		"likes", "created_at", "updated_at",
	})
}

func TestCreatePost(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now()

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(pgxmock.AnyArg(), "user-1", "hello").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(createdAt, createdAt))
	mock.ExpectQuery(`SELECT username, COALESCE`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"username", "profile_photo"}).AddRow("jo", ""))

	hub := stream.NewHub(nil)
	sub := hub.Register(stream.TopicGlobal)

	svc := newService(mock, hub)
	p, err := svc.Create(context.Background(), "user-1", "hello")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.Author.Username != "jo" || p.LikesCount != 0 {
		t.Fatalf("unexpected post %+v", p)
	}

	select {
	case payload := <-sub.Send:
		var event stream.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Type != "post.created" {
			t.Fatalf("unexpected event type %q", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a post.created event")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePostValidation(t *testing.T) {
	svc := newService(nil, nil)

	if _, err := svc.Create(context.Background(), "user-1", ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid for empty content, got %v", err)
	}
	long := strings.Repeat("x", maxContentLen+1)
	if _, err := svc.Create(context.Background(), "user-1", long); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid for overlong content, got %v", err)
	}
}

func TestFeedGlobal(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WillReturnRows(postRows().
			AddRow("post-2", "second", "user-2", "bo", "", []string{"user-1"}, now, now).
			AddRow("post-1", "first", "user-1", "jo", "", []string{}, now.Add(-time.Hour), now.Add(-time.Hour)))
	mock.ExpectQuery(`SELECT c.id, c.post_id`).
		WithArgs([]string{"post-2", "post-1"}).
		WillReturnRows(commentRows().
			AddRow("comment-1", "post-1", "hi", "user-2", "bo", "", []string{}, now, now))

	svc := newService(mock, nil)
	posts, err := svc.Feed(context.Background(), ModeGlobal, "user-1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if !posts[0].Liked || posts[0].LikesCount != 1 {
		t.Fatalf("expected first post liked by viewer, got %+v", posts[0])
	}
	if len(posts[0].Comments) != 0 || len(posts[1].Comments) != 1 {
		t.Fatalf("unexpected comment attachment %+v", posts)
	}
}

func TestFeedFollowing(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WithArgs("user-1").
		WillReturnRows(postRows().
			AddRow("post-1", "hello", "user-2", "bo", "", []string{}, now, now))
	mock.ExpectQuery(`SELECT c.id, c.post_id`).
		WithArgs([]string{"post-1"}).
		WillReturnRows(commentRows())

	svc := newService(mock, nil)
	posts, err := svc.Feed(context.Background(), ModeFollowing, "user-1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(posts) != 1 || posts[0].AuthorID != "user-2" {
		t.Fatalf("unexpected posts %+v", posts)
	}
}

func TestFeedFollowingAnonymous(t *testing.T) {
	svc := newService(nil, nil)
	if _, err := svc.Feed(context.Background(), ModeFollowing, ""); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestFeedUnknownMode(t *testing.T) {
	svc := newService(nil, nil)
	if _, err := svc.Feed(context.Background(), Mode("trending"), "user-1"); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestFeedEmpty(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WillReturnRows(postRows())

	svc := newService(mock, nil)
	posts, err := svc.Feed(context.Background(), ModeGlobal, "")
	if err != nil || len(posts) != 0 {
		t.Fatalf("expected empty feed, got %+v %v", posts, err)
	}
}

func TestGetPost(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WithArgs("post-1").
		WillReturnRows(postRows().
			AddRow("post-1", "hello", "user-1", "jo", "", []string{"user-2"}, now, now))
	mock.ExpectQuery(`SELECT c.id, c.post_id`).
		WithArgs([]string{"post-1"}).
		WillReturnRows(commentRows().
			AddRow("comment-1", "post-1", "hi", "user-2", "bo", "", []string{}, now, now))

	svc := newService(mock, nil)
	p, err := svc.Get(context.Background(), "post-1", "user-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.Liked || p.LikesCount != 1 || len(p.Comments) != 1 {
		t.Fatalf("unexpected post %+v", p)
	}
	if p.Author.ID != "user-1" || p.Author.Username != "jo" {
		t.Fatalf("unexpected author %+v", p.Author)
	}
}

func TestGetPostNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	svc := newService(mock, nil)
	if _, err := svc.Get(context.Background(), "missing", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostsByAuthor(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WithArgs("user-1").
		WillReturnRows(postRows().
			AddRow("post-1", "hello", "user-1", "jo", "", []string{}, now, now))
	mock.ExpectQuery(`SELECT c.id, c.post_id`).
		WithArgs([]string{"post-1"}).
		WillReturnRows(commentRows())

	svc := newService(mock, nil)
	posts, err := svc.ByAuthor(context.Background(), "user-1", "")
	if err != nil || len(posts) != 1 {
		t.Fatalf("unexpected posts %+v %v", posts, err)
	}
}

func TestDeletePost(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT author_id FROM posts`).
		WithArgs("post-1").
		WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow("user-1"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM comments`).
		WithArgs("post-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM posts`).
		WithArgs("post-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	hub := stream.NewHub(nil)
	sub := hub.Register(stream.TopicGlobal)

	svc := newService(mock, hub)
	if err := svc.Delete(context.Background(), "post-1", "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	select {
	case payload := <-sub.Send:
		var event stream.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Type != "post.deleted" {
			t.Fatalf("unexpected event type %q", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a post.deleted event")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeletePostNotAuthor(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT author_id FROM posts`).
		WithArgs("post-1").
		WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow("user-1"))

	svc := newService(mock, nil)
	if err := svc.Delete(context.Background(), "post-1", "user-2"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestDeletePostNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT author_id FROM posts`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	svc := newService(mock, nil)
	if err := svc.Delete(context.Background(), "missing", "user-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePostRollsBackOnError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT author_id FROM posts`).
		WithArgs("post-1").
		WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow("user-1"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM comments`).
		WithArgs("post-1").
		WillReturnError(errTimeline)
	mock.ExpectRollback()

	svc := newService(mock, nil)
	if err := svc.Delete(context.Background(), "post-1", "user-1"); !errors.Is(err, errTimeline) {
		t.Fatalf("expected storage error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFeedQueryError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WillReturnError(errTimeline)

	svc := newService(mock, nil)
	if _, err := svc.Feed(context.Background(), ModeGlobal, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFeedScanError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT p.id, p.content`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("post-1"))

	svc := newService(mock, nil)
	if _, err := svc.Feed(context.Background(), ModeGlobal, ""); err == nil {
		t.Fatalf("expected scan error")
	}
}
