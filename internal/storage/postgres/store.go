package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/hongminglow/story-be/internal/models"
	"github.com/hongminglow/story-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for accounts and stories.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and applies pending migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	migrator, err := NewMigrator(db)
	if err != nil {
		return err
	}
	return migrator.Up(ctx)
}

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	const query = `
		INSERT INTO accounts (id, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, first_name, last_name, password_hash, created_at;
		`
	row := s.pool.QueryRow(ctx, query, account.ID, account.Email, account.FirstName, account.LastName, account.PasswordHash)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Account{}, storage.ErrAlreadyExists
		}
		return models.Account{}, err
	}
	return created, nil
}

// FindAccountByEmail fetches an account by its normalized email.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `
	SELECT id, email, first_name, last_name, password_hash, created_at
	FROM accounts
	WHERE email = $1;
	`
	return scanAccount(s.pool.QueryRow(ctx, query, email))
}

// FindAccountByID fetches an account by identifier.
func (s *Store) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	const query = `
	SELECT id, email, first_name, last_name, password_hash, created_at
	FROM accounts
	WHERE id = $1;
	`
	return scanAccount(s.pool.QueryRow(ctx, query, id))
}

const storyColumns = `id, owner_id, title, description, genre, is_public, characters, created_at, updated_at`

// CreateStory inserts a story together with its initial characters.
func (s *Store) CreateStory(ctx context.Context, story models.Story) (models.Story, error) {
	characters, err := encodeCharacters(story.Characters)
	if err != nil {
		return models.Story{}, err
	}
	query := `
		INSERT INTO stories (id, owner_id, title, description, genre, is_public, characters)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		RETURNING ` + storyColumns + `;`
	row := s.pool.QueryRow(ctx, query, story.ID, story.Owner, story.Title, story.Description, story.Genre, story.IsPublic, characters)
	created, err := scanStory(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Story{}, storage.ErrAlreadyExists
		}
		return models.Story{}, err
	}
	return created, nil
}

// FindStoryByID fetches a story by identifier.
func (s *Store) FindStoryByID(ctx context.Context, id string) (models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1;`
	return scanStory(s.pool.QueryRow(ctx, query, id))
}

// ListPublicStories returns every story flagged public, newest first.
func (s *Store) ListPublicStories(ctx context.Context) ([]models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE is_public ORDER BY created_at DESC;`
	return s.queryStories(ctx, query)
}

// ListStoriesByOwner returns the stories owned by ownerID, newest first.
func (s *Store) ListStoriesByOwner(ctx context.Context, ownerID string) ([]models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE owner_id = $1 ORDER BY created_at DESC;`
	return s.queryStories(ctx, query, ownerID)
}

// UpdateStory persists the mutable story fields. Owner and characters are not touched.
func (s *Store) UpdateStory(ctx context.Context, story models.Story) (models.Story, error) {
	query := `
		UPDATE stories
		SET title = $2, description = $3, genre = $4, is_public = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + storyColumns + `;`
	row := s.pool.QueryRow(ctx, query, story.ID, story.Title, story.Description, story.Genre, story.IsPublic)
	return scanStory(row)
}

// AppendCharacter adds a character to the end of the story's character list.
func (s *Store) AppendCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error) {
	payload, err := encodeCharacters([]models.Character{character})
	if err != nil {
		return models.Story{}, err
	}
	query := `
		UPDATE stories
		SET characters = characters || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + storyColumns + `;`
	return scanStory(s.pool.QueryRow(ctx, query, storyID, payload))
}

// ReplaceCharacter swaps the character with the same ID inside a row-locked transaction.
func (s *Store) ReplaceCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Story{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1 FOR UPDATE;`
	story, err := scanStory(tx.QueryRow(ctx, query, storyID))
	if err != nil {
		return models.Story{}, err
	}
	idx := story.CharacterIndex(character.ID)
	if idx < 0 {
		return models.Story{}, storage.ErrNotFound
	}
	story.Characters[idx] = character

	payload, err := encodeCharacters(story.Characters)
	if err != nil {
		return models.Story{}, err
	}
	update := `
		UPDATE stories
		SET characters = $2::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + storyColumns + `;`
	updated, err := scanStory(tx.QueryRow(ctx, update, storyID, payload))
	if err != nil {
		return models.Story{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Story{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

func (s *Store) queryStories(ctx context.Context, query string, args ...any) ([]models.Story, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stories := make([]models.Story, 0)
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	if err := row.Scan(&account.ID, &account.Email, &account.FirstName, &account.LastName, &account.PasswordHash, &account.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

func scanStory(row pgx.Row) (models.Story, error) {
	var story models.Story
	var characters []byte
	if err := row.Scan(&story.ID, &story.Owner, &story.Title, &story.Description, &story.Genre, &story.IsPublic, &characters, &story.CreatedAt, &story.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Story{}, storage.ErrNotFound
		}
		return models.Story{}, err
	}
	if err := json.Unmarshal(characters, &story.Characters); err != nil {
		return models.Story{}, fmt.Errorf("decode characters: %w", err)
	}
	if story.Characters == nil {
		story.Characters = []models.Character{}
	}
	return story, nil
}

func encodeCharacters(characters []models.Character) (string, error) {
	if characters == nil {
		characters = []models.Character{}
	}
	raw, err := json.Marshal(characters)
	if err != nil {
		return "", fmt.Errorf("encode characters: %w", err)
	}
	return string(raw), nil
}
