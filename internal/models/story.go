package models

import "time"

// Story is the primary content entity. Owner never changes after creation.
type Story struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Genre       string      `json:"genre"`
	IsPublic    bool        `json:"isPublic"`
	Owner       string      `json:"owner"`
	Characters  []Character `json:"characters"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Character is embedded in a Story and addressed by ID within it.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// CharacterIndex returns the position of the character with the given ID, or -1.
func (s Story) CharacterIndex(id string) int {
	for i, c := range s.Characters {
		if c.ID == id {
			return i
		}
	}
	return -1
}
