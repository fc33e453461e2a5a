package gateway

// ChatRequest is the body of POST /chat and of each WebSocket frame.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body returned for every chat request, including
// failures. Clients read Response regardless of the HTTP status.
type ChatResponse struct {
	Response string `json:"response"`
}

// SocketReply is the frame sent back over the WebSocket transport. OK is
// false when Response is a fallback message.
type SocketReply struct {
	Response string `json:"response"`
	OK       bool   `json:"ok"`
}

// StatusResponse describes the configured provider.
type StatusResponse struct {
	Persona    string `json:"persona"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Configured bool   `json:"configured"`
}
