package model

// CreateInstallationRequest is the body of POST /api/installations. Presence is
// checked after trimming by the service so the error message stays uniform.
type CreateInstallationRequest struct {
	InstallationID   string `json:"installation_id"`
	InstallationName string `json:"installation_name"`
	UnifyAPIToken    string `json:"unify_api_token"`
}

// AuthRequest is the body of POST /api/auth.
type AuthRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LiveURLResponse is returned by GET /api/websocket.
type LiveURLResponse struct {
	WebsocketURL   string `json:"websocket_url"`
	InstallationID string `json:"installation_id"`
	ExpiresIn      int    `json:"expires_in"`
}
