package model

// AuthPayload is the body of the login and register endpoints.
type AuthPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the bearer token issued by the booking API.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the error body used by the booking API.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
