package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/story-be/internal/access"
	"github.com/hongminglow/story-be/internal/http/respond"
	"github.com/hongminglow/story-be/internal/middleware"
	"github.com/hongminglow/story-be/internal/models"
	"github.com/hongminglow/story-be/internal/models/dto"
	"github.com/hongminglow/story-be/internal/stories"
)

// StoryHandler serves the story and character endpoints.
type StoryHandler struct {
	svc    *stories.Service
	bearer *middleware.Bearer
	logger *slog.Logger
}

func NewStoryHandler(svc *stories.Service, bearer *middleware.Bearer, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{svc: svc, bearer: bearer, logger: logger}
}

// Register attaches story routes to the mux.
func (h *StoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/story", h.bearer.Require(h.handleCreate))
	mux.HandleFunc("GET /api/story/public", h.bearer.Optional(h.handleListPublic))
	mux.HandleFunc("GET /api/story/mystory", h.bearer.Require(h.handleListMine))
	mux.HandleFunc("GET /api/story/id/{id}", h.bearer.Optional(h.handleGet))
	mux.HandleFunc("PATCH /api/story/id/{id}", h.bearer.Require(h.handleUpdate))
	mux.HandleFunc("POST /api/story/{storyId}/characters", h.bearer.Require(h.handleAddCharacter))
	mux.HandleFunc("PUT /api/story/{storyId}/characters/{characterId}", h.bearer.Require(h.handleUpdateCharacter))
}

func (h *StoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateStoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	story, err := h.svc.Create(r.Context(), middleware.CallerFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, story)
}

func (h *StoryHandler) handleListPublic(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPublic(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, nonNil(list))
}

func (h *StoryHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMine(r.Context(), middleware.CallerFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, nonNil(list))
}

func (h *StoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	story, err := h.svc.Get(r.Context(), middleware.CallerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, story)
}

func (h *StoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	story, err := h.svc.Update(r.Context(), middleware.CallerFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, story)
}

func (h *StoryHandler) handleAddCharacter(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCharacterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	story, err := h.svc.AddCharacter(r.Context(), middleware.CallerFromContext(r.Context()), r.PathValue("storyId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, story)
}

func (h *StoryHandler) handleUpdateCharacter(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateCharacterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	story, err := h.svc.UpdateCharacter(r.Context(), middleware.CallerFromContext(r.Context()),
		r.PathValue("storyId"), r.PathValue("characterId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, story)
}

// fail maps service errors onto HTTP statuses.
func (h *StoryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, access.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "story not found")
	case errors.Is(err, stories.ErrCharacterNotFound):
		respond.Error(w, http.StatusNotFound, "character not found")
	case errors.Is(err, access.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, stories.ErrUnauthenticated):
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, stories.ErrInvalidInput):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("story request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func nonNil(list []models.Story) []models.Story {
	if list == nil {
		return []models.Story{}
	}
	return list
}
