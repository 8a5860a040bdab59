package models

import "time"

// Account captures application-facing fields for a registered identity.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the public projection of an account.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// Profile returns the fields safe to expose to other users.
func (a Account) Profile() Profile {
	return Profile{ID: a.ID, Email: a.Email, FirstName: a.FirstName, LastName: a.LastName}
}
