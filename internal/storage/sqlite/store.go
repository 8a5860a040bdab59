package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/hongminglow/story-be/internal/models"
	"github.com/hongminglow/story-be/internal/storage"
	"github.com/hongminglow/story-be/internal/storage/sqlite/migrations"
)

var _ storage.Store = (*Store)(nil)

// Store is an embedded SQLite backend, used for local development and tests.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps the pragma in effect and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure goose: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	_ = s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, first_name, last_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID, account.Email, account.FirstName, account.LastName, account.PasswordHash, account.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, storage.ErrAlreadyExists
		}
		return models.Account{}, err
	}
	return account, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, password_hash, created_at FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, password_hash, created_at FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

const storyColumns = `id, owner_id, title, description, genre, is_public, characters, created_at, updated_at`

func (s *Store) CreateStory(ctx context.Context, story models.Story) (models.Story, error) {
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = story.CreatedAt
	if story.Characters == nil {
		story.Characters = []models.Character{}
	}
	characters, err := json.Marshal(story.Characters)
	if err != nil {
		return models.Story{}, fmt.Errorf("encode characters: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stories (`+storyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		story.ID, story.Owner, story.Title, story.Description, story.Genre, boolToInt(story.IsPublic),
		string(characters), story.CreatedAt.UnixNano(), story.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Story{}, storage.ErrAlreadyExists
		}
		return models.Story{}, err
	}
	return story, nil
}

func (s *Store) FindStoryByID(ctx context.Context, id string) (models.Story, error) {
	return findStory(ctx, s.db, id)
}

func (s *Store) ListPublicStories(ctx context.Context) ([]models.Story, error) {
	return s.queryStories(ctx, `SELECT `+storyColumns+` FROM stories WHERE is_public = 1 ORDER BY created_at DESC`)
}

func (s *Store) ListStoriesByOwner(ctx context.Context, ownerID string) ([]models.Story, error) {
	return s.queryStories(ctx, `SELECT `+storyColumns+` FROM stories WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
}

func (s *Store) UpdateStory(ctx context.Context, story models.Story) (models.Story, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stories SET title = ?, description = ?, genre = ?, is_public = ?, updated_at = ? WHERE id = ?`,
		story.Title, story.Description, story.Genre, boolToInt(story.IsPublic), time.Now().UTC().UnixNano(), story.ID,
	)
	if err != nil {
		return models.Story{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Story{}, storage.ErrNotFound
	}
	return s.FindStoryByID(ctx, story.ID)
}

func (s *Store) AppendCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error) {
	return s.mutateCharacters(ctx, storyID, func(characters []models.Character) ([]models.Character, error) {
		return append(characters, character), nil
	})
}

func (s *Store) ReplaceCharacter(ctx context.Context, storyID string, character models.Character) (models.Story, error) {
	return s.mutateCharacters(ctx, storyID, func(characters []models.Character) ([]models.Character, error) {
		for i := range characters {
			if characters[i].ID == character.ID {
				characters[i] = character
				return characters, nil
			}
		}
		return nil, storage.ErrNotFound
	})
}

// mutateCharacters rewrites the embedded character list inside one transaction.
func (s *Store) mutateCharacters(ctx context.Context, storyID string, fn func([]models.Character) ([]models.Character, error)) (models.Story, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Story{}, err
	}
	defer func() { _ = tx.Rollback() }()

	story, err := findStory(ctx, tx, storyID)
	if err != nil {
		return models.Story{}, err
	}
	characters, err := fn(story.Characters)
	if err != nil {
		return models.Story{}, err
	}
	raw, err := json.Marshal(characters)
	if err != nil {
		return models.Story{}, fmt.Errorf("encode characters: %w", err)
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE stories SET characters = ?, updated_at = ? WHERE id = ?`, string(raw), now.UnixNano(), storyID); err != nil {
		return models.Story{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Story{}, err
	}
	story.Characters = characters
	story.UpdatedAt = now
	return story, nil
}

func (s *Store) queryStories(ctx context.Context, query string, args ...any) ([]models.Story, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findStory(ctx context.Context, q queryer, id string) (models.Story, error) {
	return scanStory(q.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (models.Account, error) {
	var account models.Account
	var createdAt int64
	if err := row.Scan(&account.ID, &account.Email, &account.FirstName, &account.LastName, &account.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	account.CreatedAt = time.Unix(0, createdAt).UTC()
	return account, nil
}

func scanStory(row scanner) (models.Story, error) {
	var (
		story      models.Story
		isPublic   int
		characters string
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&story.ID, &story.Owner, &story.Title, &story.Description, &story.Genre, &isPublic, &characters, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Story{}, storage.ErrNotFound
		}
		return models.Story{}, err
	}
	story.IsPublic = isPublic == 1
	story.CreatedAt = time.Unix(0, createdAt).UTC()
	story.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if err := json.Unmarshal([]byte(characters), &story.Characters); err != nil {
		return models.Story{}, fmt.Errorf("decode characters: %w", err)
	}
	if story.Characters == nil {
		story.Characters = []models.Character{}
	}
	return story, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
