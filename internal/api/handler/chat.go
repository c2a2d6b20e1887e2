package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/api/response"
	"github.com/ecosphere/ecosphere/internal/chat"
)

// Assistant answers chat messages.
type Assistant interface {
	Answer(ctx context.Context, message string, loc *chat.Location) (chat.Answer, error)
}

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	assistant Assistant
	validate  *validator.Validate
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(assistant Assistant) *ChatHandler {
	return &ChatHandler{assistant: assistant, validate: models.NewValidator()}
}

// Chat handles POST /api/chat. Generator failures still answer 200 with the apology.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var input models.ChatRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		response.BadRequest(w, r, "invalid chat message", models.FieldErrorsFrom(err))
		return
	}

	var loc *chat.Location
	if input.Location != nil {
		loc = &chat.Location{Latitude: *input.Location.Latitude, Longitude: *input.Location.Longitude}
	}

	answer, err := h.assistant.Answer(r.Context(), input.Message, loc)
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, "invalid chat message", verr.Errors)
			return
		}
		response.InternalError(w, r, "failed to answer chat message")
		return
	}

	suggestions := answer.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	response.JSON(w, r, http.StatusOK, models.ChatResponse{Response: answer.Text, Suggestions: suggestions})
}
