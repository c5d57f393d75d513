package comment

import (
	"context"
	"errors"

	"backend-tweeter/internal/db"
	"backend-tweeter/internal/engagement"
	"backend-tweeter/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxContentLen = 280

const commentColumns = `c.id, c.post_id, c.content, c.author_id, u.username, COALESCE(u.profile_photo,''), c.likes, c.created_at, c.updated_at`

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, postID, authorID, content string) (Comment, error) {
	if content == "" || postID == "" || len(content) > maxContentLen {
		return Comment{}, apperr.ErrInvalid
	}

	var postExists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id=$1)`, postID).Scan(&postExists)
	if err != nil {
		return Comment{}, err
	}
	if !postExists {
		return Comment{}, apperr.ErrNotFound
	}

	c := Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		Content:  content,
		AuthorID: authorID,
		Likes:    []string{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO comments (id, post_id, author_id, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at
	`, c.ID, c.PostID, c.AuthorID, c.Content)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Comment{}, err
	}

	row = s.db.QueryRow(ctx, `
		SELECT username, COALESCE(profile_photo,'') FROM users WHERE id=$1
	`, authorID)
	if err := row.Scan(&c.Author.Username, &c.Author.ProfilePhoto); err != nil {
		return Comment{}, err
	}
	c.Author.ID = authorID
	return c, nil
}

// ListForPost returns a post's comments newest first, annotated for the
// viewer. The embedded ordering under a post is the insertion-ordered
// ListForPosts; this standalone listing is the newest-first one.
func (s *Service) ListForPost(ctx context.Context, postID, viewerID string) ([]Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id=$1
		ORDER BY c.created_at DESC
	`, postID)
	if err != nil {
		return nil, err
	}
	return collectComments(rows, viewerID)
}

// ListForPosts batch-loads comments for a set of posts in insertion
// order, keyed by post id.
func (s *Service) ListForPosts(ctx context.Context, postIDs []string, viewerID string) (map[string][]Comment, error) {
	if len(postIDs) == 0 {
		return map[string][]Comment{}, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ANY($1)
		ORDER BY c.created_at
	`, postIDs)
	if err != nil {
		return nil, err
	}
	comments, err := collectComments(rows, viewerID)
	if err != nil {
		return nil, err
	}

	byPost := map[string][]Comment{}
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], c)
	}
	return byPost, nil
}

func (s *Service) Update(ctx context.Context, commentID, viewerID, content string) (Comment, error) {
	if content == "" || len(content) > maxContentLen {
		return Comment{}, apperr.ErrInvalid
	}
	if err := s.authorize(ctx, commentID, viewerID); err != nil {
		return Comment{}, err
	}

	_, err := s.db.Exec(ctx, `
		UPDATE comments SET content=$2, updated_at=now() WHERE id=$1
	`, commentID, content)
	if err != nil {
		return Comment{}, err
	}
	return s.byID(ctx, commentID, viewerID)
}

func (s *Service) Delete(ctx context.Context, commentID, viewerID string) error {
	if err := s.authorize(ctx, commentID, viewerID); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	return err
}

// authorize loads the comment's author and rejects everyone else.
func (s *Service) authorize(ctx context.Context, commentID, viewerID string) error {
	var authorID string
	err := s.db.QueryRow(ctx, `SELECT author_id FROM comments WHERE id=$1`, commentID).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return err
	}
	if authorID != viewerID {
		return apperr.ErrUnauthorized
	}
	return nil
}

func (s *Service) byID(ctx context.Context, commentID, viewerID string) (Comment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id=$1
	`, commentID)

	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.Author.Username, &c.Author.ProfilePhoto,
		&c.Likes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, apperr.ErrNotFound
		}
		return Comment{}, err
	}
	c.Author.ID = c.AuthorID
	annotate(&c, viewerID)
	return c, nil
}

func collectComments(rows pgx.Rows, viewerID string) ([]Comment, error) {
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		err := rows.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.Author.Username, &c.Author.ProfilePhoto,
			&c.Likes, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		c.Author.ID = c.AuthorID
		annotate(&c, viewerID)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func annotate(c *Comment, viewerID string) {
	c.Liked = engagement.LikedBy(c.Likes, viewerID)
	c.LikesCount = len(c.Likes)
}
