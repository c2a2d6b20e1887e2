package models

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message  string           `json:"message" validate:"required,max=4000"`
	Location *LocationRequest `json:"location,omitempty"`
}

// ChatResponse is the assistant reply.
type ChatResponse struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}
