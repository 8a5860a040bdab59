package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/story-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// AccountStore captures account persistence needed by the auth flows.
type AccountStore interface {
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (models.Account, error)
	FindAccountByID(ctx context.Context, id string) (models.Account, error)
}

// StoryStore captures story persistence. Characters are embedded in their story,
// so character writes go through the owning story row.
type StoryStore interface {
	CreateStory(ctx context.Context, story models.Story) (models.Story, error)
	FindStoryByID(ctx context.Context, id string) (models.Story, error)
	ListPublicStories(ctx context.Context) ([]models.Story, error)
	ListStoriesByOwner(ctx context.Context, ownerID string) ([]models.Story, error)
	UpdateStory(ctx context.Context, story models.Story) (models.Story, error)
	AppendCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error)
	ReplaceCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error)
}

// Store is the full persistence surface used by the server.
type Store interface {
	AccountStore
	StoryStore
	Ping(ctx context.Context) error
	Close()
}
