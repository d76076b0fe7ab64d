package memory

import (
	"fmt"
	"sort"

	"github.com/vsinha/moplan/pkg/domain/calendar"
	"github.com/vsinha/moplan/pkg/domain/repositories"
)

// PostRepository keeps posts by id. It owns the posts; callers receive the
// stored pointers so bookings persist across scheduling steps.
type PostRepository struct {
	posts map[string]*calendar.Post
}

// NewPostRepository creates a new in-memory post repository
func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts: make(map[string]*calendar.Post),
	}
}

// Verify interface compliance
var _ repositories.PostRepository = (*PostRepository)(nil)

// LoadPosts loads posts into the repository, replacing posts with the same id
func (r *PostRepository) LoadPosts(posts []*calendar.Post) error {
	for _, post := range posts {
		if post == nil {
			return fmt.Errorf("cannot load nil post")
		}
		r.posts[post.ID] = post
	}
	return nil
}

// GetPost returns the post with the given id
func (r *PostRepository) GetPost(id string) (*calendar.Post, error) {
	post, exists := r.posts[id]
	if !exists {
		return nil, fmt.Errorf("post %s: %w", id, repositories.ErrNotFound)
	}
	return post, nil
}

// GetAllPosts returns all posts ordered by id
func (r *PostRepository) GetAllPosts() ([]*calendar.Post, error) {
	posts := make([]*calendar.Post, 0, len(r.posts))
	for _, post := range r.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}
