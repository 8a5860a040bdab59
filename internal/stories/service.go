package stories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hongminglow/story-be/internal/access"
	"github.com/hongminglow/story-be/internal/models"
	"github.com/hongminglow/story-be/internal/models/dto"
	"github.com/hongminglow/story-be/internal/storage"
	"github.com/hongminglow/story-be/internal/telemetry"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrCharacterNotFound = errors.New("character not found")
)

var tracer = telemetry.Tracer("github.com/hongminglow/story-be/internal/stories")

// Service runs story operations behind the access gate.
type Service struct {
	store    storage.StoryStore
	accounts storage.AccountStore
}

// NewService returns a story service over store. accounts resolves story owners.
func NewService(store storage.StoryStore, accounts storage.AccountStore) *Service {
	return &Service{store: store, accounts: accounts}
}

// Create stores a new story owned by the caller.
func (s *Service) Create(ctx context.Context, caller access.Caller, in dto.CreateStoryRequest) (_ models.Story, err error) {
	ctx, span := tracer.Start(ctx, "stories.Create")
	defer func() { telemetry.End(span, err) }()

	ownerID, ok := caller.ID()
	if !ok {
		return models.Story{}, ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Story{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	// a signed token can outlive its account
	if _, err := s.accounts.FindAccountByID(ctx, ownerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Story{}, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
		}
		return models.Story{}, fmt.Errorf("find account: %w", err)
	}

	now := time.Now().UTC()
	story := models.Story{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Genre:       strings.TrimSpace(in.Genre),
		IsPublic:    in.IsPublic,
		Owner:       ownerID,
		Characters:  []models.Character{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.store.CreateStory(ctx, story)
}

// ListPublic returns every public story. No caller is needed.
func (s *Service) ListPublic(ctx context.Context) (_ []models.Story, err error) {
	ctx, span := tracer.Start(ctx, "stories.ListPublic")
	defer func() { telemetry.End(span, err) }()

	return s.store.ListPublicStories(ctx)
}

// ListMine returns the caller's own stories.
func (s *Service) ListMine(ctx context.Context, caller access.Caller) (_ []models.Story, err error) {
	ctx, span := tracer.Start(ctx, "stories.ListMine")
	defer func() { telemetry.End(span, err) }()

	ownerID, ok := caller.ID()
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.store.ListStoriesByOwner(ctx, ownerID)
}

// Get returns a story the caller may read.
func (s *Service) Get(ctx context.Context, caller access.Caller, id string) (_ models.Story, err error) {
	ctx, span := tracer.Start(ctx, "stories.Get")
	defer func() { telemetry.End(span, err) }()

	return s.authorize(ctx, caller, id, access.Read)
}

// Update applies a partial update to a story the caller owns.
func (s *Service) Update(ctx context.Context, caller access.Caller, id string, in dto.UpdateStoryRequest) (_ models.Story, err error) {
	ctx, span := tracer.Start(ctx, "stories.Update")
	defer func() { telemetry.End(span, err) }()

	story, err := s.authorize(ctx, caller, id, access.Write)
	if err != nil {
		return models.Story{}, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return models.Story{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		story.Title = title
	}
	if in.Description != nil {
		story.Description = strings.TrimSpace(*in.Description)
	}
	if in.Genre != nil {
		story.Genre = strings.TrimSpace(*in.Genre)
	}
	if in.IsPublic != nil {
		story.IsPublic = *in.IsPublic
	}
	return s.store.UpdateStory(ctx, story)
}

// AddCharacter appends a character to a story the caller owns.
func (s *Service) AddCharacter(ctx context.Context, caller access.Caller, storyID string, in dto.CreateCharacterRequest) (_ models.Story, err error) {
	ctx, span := tracer.Start(ctx, "stories.AddCharacter")
	defer func() { telemetry.End(span, err) }()

	story, err := s.authorize(ctx, caller, storyID, access.Write)
	if err != nil {
		return models.Story{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Story{}, fmt.Errorf("%w: character name is required", ErrInvalidInput)
	}
	character := models.Character{
		ID:          uuid.NewString(),
		Name:        name,
		Role:        strings.TrimSpace(in.Role),
		Description: strings.TrimSpace(in.Description),
	}
	span.SetAttributes(attribute.String("character.id", character.ID))

	updated, err := s.store.AppendCharacter(ctx, story.ID, character)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Story{}, access.ErrNotFound
	}
	return updated, err
}

// UpdateCharacter applies a partial update to one character of a story the caller owns.
func (s *Service) UpdateCharacter(ctx context.Context, caller access.Caller, storyID, characterID string, in dto.UpdateCharacterRequest) (_ models.Story, err error) {
	ctx, span := tracer.Start(ctx, "stories.UpdateCharacter")
	defer func() { telemetry.End(span, err) }()

	story, err := s.authorize(ctx, caller, storyID, access.Write)
	if err != nil {
		return models.Story{}, err
	}
	idx := story.CharacterIndex(characterID)
	if idx < 0 {
		return models.Story{}, ErrCharacterNotFound
	}
	character := story.Characters[idx]
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.Story{}, fmt.Errorf("%w: character name cannot be empty", ErrInvalidInput)
		}
		character.Name = name
	}
	if in.Role != nil {
		character.Role = strings.TrimSpace(*in.Role)
	}
	if in.Description != nil {
		character.Description = strings.TrimSpace(*in.Description)
	}

	updated, err := s.store.ReplaceCharacter(ctx, story.ID, character)
	if errors.Is(err, storage.ErrNotFound) {
		// removed between the read and the write
		return models.Story{}, ErrCharacterNotFound
	}
	return updated, err
}

// authorize fetches the story and runs the gate. An absent story is handed to
// the gate as nil so the existence check stays in one place.
func (s *Service) authorize(ctx context.Context, caller access.Caller, id string, kind access.Kind) (models.Story, error) {
	story, err := s.store.FindStoryByID(ctx, strings.TrimSpace(id))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.Story{}, fmt.Errorf("find story: %w", err)
	}
	var found *models.Story
	if err == nil {
		found = &story
	}
	if err := access.Check(found, caller, kind); err != nil {
		return models.Story{}, err
	}
	return story, nil
}
