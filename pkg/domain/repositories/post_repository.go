package repositories

import (
	"errors"

	"github.com/vsinha/moplan/pkg/domain/calendar"
)

// ErrNotFound is returned when a lookup by id finds nothing
var ErrNotFound = errors.New("not found")

// PostRepository provides access to work centers. Posts are returned by
// pointer because scheduling books slots on them.
type PostRepository interface {
	GetPost(id string) (*calendar.Post, error)
	GetAllPosts() ([]*calendar.Post, error)
	LoadPosts(posts []*calendar.Post) error
}
