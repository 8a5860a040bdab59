package stories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/story-be/internal/access"
	"github.com/hongminglow/story-be/internal/models"
	"github.com/hongminglow/story-be/internal/models/dto"
	"github.com/hongminglow/story-be/internal/storage"
)

type stubStoryStore struct {
	stories map[string]models.Story
	findErr error
	writes  int
}

func newStubStore(stories ...models.Story) *stubStoryStore {
	s := &stubStoryStore{stories: map[string]models.Story{}}
	for _, st := range stories {
		s.stories[st.ID] = st
	}
	return s
}

func (s *stubStoryStore) CreateStory(ctx context.Context, story models.Story) (models.Story, error) {
	s.writes++
	s.stories[story.ID] = story
	return story, nil
}

func (s *stubStoryStore) FindStoryByID(ctx context.Context, id string) (models.Story, error) {
	if s.findErr != nil {
		return models.Story{}, s.findErr
	}
	story, ok := s.stories[id]
	if !ok {
		return models.Story{}, storage.ErrNotFound
	}
	story.Characters = append([]models.Character(nil), story.Characters...)
	return story, nil
}

func (s *stubStoryStore) ListPublicStories(ctx context.Context) ([]models.Story, error) {
	var out []models.Story
	for _, st := range s.stories {
		if st.IsPublic {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *stubStoryStore) ListStoriesByOwner(ctx context.Context, ownerID string) ([]models.Story, error) {
	var out []models.Story
	for _, st := range s.stories {
		if st.Owner == ownerID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *stubStoryStore) UpdateStory(ctx context.Context, story models.Story) (models.Story, error) {
	s.writes++
	existing, ok := s.stories[story.ID]
	if !ok {
		return models.Story{}, storage.ErrNotFound
	}
	story.Owner = existing.Owner
	story.Characters = existing.Characters
	s.stories[story.ID] = story
	return story, nil
}

func (s *stubStoryStore) AppendCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error) {
	s.writes++
	story, ok := s.stories[storyID]
	if !ok {
		return models.Story{}, storage.ErrNotFound
	}
	story.Characters = append(story.Characters, character)
	s.stories[storyID] = story
	return story, nil
}

func (s *stubStoryStore) ReplaceCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error) {
	s.writes++
	story, ok := s.stories[storyID]
	if !ok {
		return models.Story{}, storage.ErrNotFound
	}
	idx := story.CharacterIndex(character.ID)
	if idx < 0 {
		return models.Story{}, storage.ErrNotFound
	}
	story.Characters[idx] = character
	s.stories[storyID] = story
	return story, nil
}

type stubAccounts map[string]models.Account

func (s stubAccounts) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	s[account.ID] = account
	return account, nil
}

func (s stubAccounts) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	for _, acc := range s {
		if acc.Email == email {
			return acc, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s stubAccounts) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	if acc, ok := s[id]; ok {
		return acc, nil
	}
	return models.Account{}, storage.ErrNotFound
}

func newTestService(store *stubStoryStore) *Service {
	return NewService(store, stubAccounts{
		"u1": {ID: "u1", Email: "owner@x.com"},
		"u2": {ID: "u2", Email: "other@x.com"},
	})
}

func ptr[T any](v T) *T { return &v }

var (
	owner    = access.AsAccount("u1")
	stranger = access.AsAccount("u2")
	anon     = access.Anonymous()
)

func TestGetPrivateStory(t *testing.T) {
	svc := newTestService(newStubStore(models.Story{ID: "s1", Owner: "u1", IsPublic: false}))
	ctx := context.Background()

	got, err := svc.Get(ctx, owner, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	_, err = svc.Get(ctx, stranger, "s1")
	assert.ErrorIs(t, err, access.ErrForbidden)

	_, err = svc.Get(ctx, anon, "s1")
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestGetPublicStory(t *testing.T) {
	svc := newTestService(newStubStore(models.Story{ID: "s1", Owner: "u1", IsPublic: true}))
	ctx := context.Background()

	_, err := svc.Get(ctx, stranger, "s1")
	assert.NoError(t, err)
	_, err = svc.Get(ctx, anon, "s1")
	assert.NoError(t, err)
}

func TestMissingStoryIsNotFound(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Get(ctx, owner, "nope")
	assert.ErrorIs(t, err, access.ErrNotFound)
	_, err = svc.Update(ctx, owner, "nope", dto.UpdateStoryRequest{Title: ptr("x")})
	assert.ErrorIs(t, err, access.ErrNotFound)
	_, err = svc.AddCharacter(ctx, owner, "nope", dto.CreateCharacterRequest{Name: "Alice"})
	assert.ErrorIs(t, err, access.ErrNotFound)
	assert.Zero(t, store.writes)
}

func TestStoreFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	store := newStubStore()
	store.findErr = boom
	svc := newTestService(store)

	_, err := svc.Get(context.Background(), owner, "s1")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, access.ErrNotFound)
}

func TestUpdateRequiresOwner(t *testing.T) {
	store := newStubStore(models.Story{ID: "s1", Owner: "u1", Title: "Old", IsPublic: true})
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Update(ctx, stranger, "s1", dto.UpdateStoryRequest{Title: ptr("Hijacked")})
	assert.ErrorIs(t, err, access.ErrForbidden)
	_, err = svc.Update(ctx, anon, "s1", dto.UpdateStoryRequest{Title: ptr("Hijacked")})
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.Zero(t, store.writes)

	updated, err := svc.Update(ctx, owner, "s1", dto.UpdateStoryRequest{Title: ptr(" New "), IsPublic: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.False(t, updated.IsPublic)
	assert.Equal(t, "u1", updated.Owner)
}

func TestUpdateRejectsBlankTitle(t *testing.T) {
	svc := newTestService(newStubStore(models.Story{ID: "s1", Owner: "u1", Title: "Old"}))
	_, err := svc.Update(context.Background(), owner, "s1", dto.UpdateStoryRequest{Title: ptr("  ")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreate(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, anon, dto.CreateStoryRequest{Title: "Tale"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Create(ctx, owner, dto.CreateStoryRequest{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	created, err := svc.Create(ctx, owner, dto.CreateStoryRequest{Title: "Tale", IsPublic: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.Owner)
	assert.True(t, created.IsPublic)
	assert.NotNil(t, created.Characters)
}

func TestCreateRejectsDeletedAccount(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), access.AsAccount("ghost"), dto.CreateStoryRequest{Title: "Tale"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, store.writes)
}

func TestCreatePropagatesAccountLookupFailure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(newStubStore(), failingAccounts{err: boom})

	_, err := svc.Create(context.Background(), owner, dto.CreateStoryRequest{Title: "Tale"})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

type failingAccounts struct {
	stubAccounts
	err error
}

func (f failingAccounts) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	return models.Account{}, f.err
}

func TestListing(t *testing.T) {
	svc := newTestService(newStubStore(
		models.Story{ID: "s1", Owner: "u1", IsPublic: false},
		models.Story{ID: "s2", Owner: "u2", IsPublic: true},
	))
	ctx := context.Background()

	public, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "s2", public[0].ID)

	mine, err := svc.ListMine(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "s1", mine[0].ID)

	_, err = svc.ListMine(ctx, anon)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCharacterOperationsRequireOwner(t *testing.T) {
	store := newStubStore(models.Story{
		ID: "s1", Owner: "u1", IsPublic: true,
		Characters: []models.Character{{ID: "c1", Name: "Alice"}},
	})
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.AddCharacter(ctx, stranger, "s1", dto.CreateCharacterRequest{Name: "Mallory"})
	assert.ErrorIs(t, err, access.ErrForbidden)
	_, err = svc.UpdateCharacter(ctx, anon, "s1", "c1", dto.UpdateCharacterRequest{Name: ptr("Eve")})
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.Zero(t, store.writes)
}

func TestCharacterLifecycle(t *testing.T) {
	store := newStubStore(models.Story{ID: "s1", Owner: "u1"})
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.AddCharacter(ctx, owner, "s1", dto.CreateCharacterRequest{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	story, err := svc.AddCharacter(ctx, owner, "s1", dto.CreateCharacterRequest{Name: "Alice", Role: "hero"})
	require.NoError(t, err)
	require.Len(t, story.Characters, 1)
	charID := story.Characters[0].ID
	assert.NotEmpty(t, charID)

	story, err = svc.UpdateCharacter(ctx, owner, "s1", charID, dto.UpdateCharacterRequest{Description: ptr("curious")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", story.Characters[0].Name)
	assert.Equal(t, "hero", story.Characters[0].Role)
	assert.Equal(t, "curious", story.Characters[0].Description)

	_, err = svc.UpdateCharacter(ctx, owner, "s1", "missing", dto.UpdateCharacterRequest{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}
