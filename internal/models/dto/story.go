package dto

type CreateStoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	IsPublic    bool   `json:"isPublic"`
}

// UpdateStoryRequest is a partial update; nil fields are left unchanged.
type UpdateStoryRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Genre       *string `json:"genre"`
	IsPublic    *bool   `json:"isPublic"`
}

type CreateCharacterRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

type UpdateCharacterRequest struct {
	Name        *string `json:"name"`
	Role        *string `json:"role"`
	Description *string `json:"description"`
}
