package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hongminglow/story-be/internal/models"
	"github.com/hongminglow/story-be/internal/storage"
	"github.com/hongminglow/story-be/internal/telemetry"
)

const (
	ReasonAccountNotFound = "account not found"
	ReasonBadPassword     = "bad password"

	minPasswordLength = 8
	// bcrypt ignores input past this length and x/crypto rejects it outright
	maxPasswordBytes = 72
)

var (
	// ErrInvalidCredentials is matched by every sign-in rejection.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredentials is returned when email or password is blank.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrInvalidRegistration wraps sign-up validation failures.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// CredentialsError is a sign-in rejection. Reason is for logs only and must not
// reach the client, otherwise it reveals which emails are registered.
type CredentialsError struct {
	Reason string
}

func (e *CredentialsError) Error() string {
	return "invalid credentials: " + e.Reason
}

func (e *CredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// RegisterInput carries sign-up fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Authenticator verifies credentials and registers accounts.
type Authenticator struct {
	accounts storage.AccountStore
	tokens   *TokenManager
	compare  func(hash, password string) bool
}

// NewAuthenticator wires the account store with a token manager.
func NewAuthenticator(accounts storage.AccountStore, tokens *TokenManager) *Authenticator {
	return &Authenticator{accounts: accounts, tokens: tokens, compare: ComparePassword}
}

var tracer = telemetry.Tracer("github.com/hongminglow/story-be/internal/auth")

// Authenticate checks email and password and mints an access token.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (_ AccessToken, err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer func() { telemetry.End(span, err) }()

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return AccessToken{}, ErrMissingCredentials
	}

	account, err := a.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = a.compare(unknownAccountHash(), password)
			return AccessToken{}, &CredentialsError{Reason: ReasonAccountNotFound}
		}
		return AccessToken{}, fmt.Errorf("find account: %w", err)
	}
	if !a.compare(account.PasswordHash, password) {
		return AccessToken{}, &CredentialsError{Reason: ReasonBadPassword}
	}

	token, err := a.tokens.Generate(account)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return AccessToken{AccessToken: token}, nil
}

// Register validates input, hashes the password and creates the account.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (_ models.Account, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { telemetry.End(span, err) }()

	account := models.Account{
		ID:        uuid.NewString(),
		Email:     NormalizeEmail(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		CreatedAt: time.Now().UTC(),
	}
	if err := validateRegistration(account, in.Password); err != nil {
		return models.Account{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash

	return a.accounts.CreateAccount(ctx, account)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(account models.Account, password string) error {
	if account.Email == "" || account.FirstName == "" || account.LastName == "" {
		return fmt.Errorf("%w: email, firstname, and lastname are required", ErrInvalidRegistration)
	}
	if _, err := mail.ParseAddress(account.Email); err != nil {
		return fmt.Errorf("%w: email is not valid", ErrInvalidRegistration)
	}
	if len(strings.TrimSpace(password)) < minPasswordLength || !utf8.ValidString(password) {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidRegistration, maxPasswordBytes)
	}
	return nil
}
