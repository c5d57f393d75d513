package timeline

import (
	"context"
	"errors"

	"backend-tweeter/internal/comment"
	"backend-tweeter/internal/db"
	"backend-tweeter/internal/engagement"
	"backend-tweeter/internal/shared/apperr"
	"backend-tweeter/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxContentLen = 280

const postColumns = `p.id, p.content, p.author_id, u.username, COALESCE(u.profile_photo,''), p.likes, p.created_at, p.updated_at`

type Service struct {
	db       db.Pool
	comments *comment.Service
	hub      *stream.Hub
}

func NewService(db db.Pool, comments *comment.Service, hub *stream.Hub) *Service {
	return &Service{db: db, comments: comments, hub: hub}
}

func (s *Service) Create(ctx context.Context, authorID, content string) (Post, error) {
	if content == "" || len(content) > maxContentLen {
		return Post{}, apperr.ErrInvalid
	}

	p := Post{
		ID:       uuid.NewString(),
		Content:  content,
		AuthorID: authorID,
		Likes:    []string{},
		Comments: []comment.Comment{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, author_id, content)
		VALUES ($1,$2,$3)
		RETURNING created_at, updated_at
	`, p.ID, p.AuthorID, p.Content)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return Post{}, err
	}

	row = s.db.QueryRow(ctx, `
		SELECT username, COALESCE(profile_photo,'') FROM users WHERE id=$1
	`, authorID)
	if err := row.Scan(&p.Author.Username, &p.Author.ProfilePhoto); err != nil {
		return Post{}, err
	}
	p.Author.ID = authorID

	if s.hub != nil {
		s.hub.Publish(stream.TopicGlobal, stream.Event{Type: "post.created", Payload: p})
	}
	return p, nil
}

// Feed returns posts newest first, annotated for the viewer. Global
// mode accepts an anonymous viewer; following mode requires one and
// yields an empty list for viewers who follow nobody.
func (s *Service) Feed(ctx context.Context, mode Mode, viewerID string) ([]Post, error) {
	switch mode {
	case ModeGlobal:
		rows, err := s.db.Query(ctx, `
			SELECT `+postColumns+`
			FROM posts p
			JOIN users u ON u.id = p.author_id
			ORDER BY p.created_at DESC
		`)
		if err != nil {
			return nil, err
		}
		return s.attachComments(ctx, rows, viewerID)

	case ModeFollowing:
		if viewerID == "" {
			return nil, apperr.ErrUnauthorized
		}
		rows, err := s.db.Query(ctx, `
			SELECT `+postColumns+`
			FROM posts p
			JOIN users u ON u.id = p.author_id
			WHERE p.author_id = ANY (SELECT unnest(following) FROM users WHERE id=$1)
			ORDER BY p.created_at DESC
		`, viewerID)
		if err != nil {
			return nil, err
		}
		return s.attachComments(ctx, rows, viewerID)

	default:
		return nil, apperr.ErrInvalid
	}
}

// ByAuthor returns one user's posts newest first, annotated for the
// viewer. Used by the profile aggregation.
func (s *Service) ByAuthor(ctx context.Context, authorID, viewerID string) ([]Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.author_id=$1
		ORDER BY p.created_at DESC
	`, authorID)
	if err != nil {
		return nil, err
	}
	return s.attachComments(ctx, rows, viewerID)
}

func (s *Service) Get(ctx context.Context, postID, viewerID string) (Post, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id=$1
	`, postID)

	var p Post
	err := row.Scan(&p.ID, &p.Content, &p.AuthorID, &p.Author.Username, &p.Author.ProfilePhoto,
		&p.Likes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, apperr.ErrNotFound
		}
		return Post{}, err
	}
	p.Author.ID = p.AuthorID
	annotate(&p, viewerID)

	byPost, err := s.comments.ListForPosts(ctx, []string{p.ID}, viewerID)
	if err != nil {
		return Post{}, err
	}
	p.Comments = byPost[p.ID]
	if p.Comments == nil {
		p.Comments = []comment.Comment{}
	}
	return p, nil
}

// Delete removes the post and its comments in one transaction; only
// the author may delete.
func (s *Service) Delete(ctx context.Context, postID, viewerID string) error {
	var authorID string
	err := s.db.QueryRow(ctx, `SELECT author_id FROM posts WHERE id=$1`, postID).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return err
	}
	if authorID != viewerID {
		return apperr.ErrUnauthorized
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE post_id=$1`, postID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id=$1`, postID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Publish(stream.TopicGlobal, stream.Event{Type: "post.deleted", Payload: map[string]string{"id": postID}})
	}
	return nil
}

func (s *Service) attachComments(ctx context.Context, rows pgx.Rows, viewerID string) ([]Post, error) {
	posts, err := collectPosts(rows, viewerID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	byPost, err := s.comments.ListForPosts(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Comments = byPost[posts[i].ID]
		if posts[i].Comments == nil {
			posts[i].Comments = []comment.Comment{}
		}
	}
	return posts, nil
}

func collectPosts(rows pgx.Rows, viewerID string) ([]Post, error) {
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		err := rows.Scan(&p.ID, &p.Content, &p.AuthorID, &p.Author.Username, &p.Author.ProfilePhoto,
			&p.Likes, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		p.Author.ID = p.AuthorID
		annotate(&p, viewerID)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func annotate(p *Post, viewerID string) {
	p.Liked = engagement.LikedBy(p.Likes, viewerID)
	p.LikesCount = len(p.Likes)
}
