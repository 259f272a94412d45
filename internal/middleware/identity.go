package middleware

// identity.go holds the context key shared by the session middleware, the
// rate limiter, the request logger and the handlers.

import "github.com/labstack/echo/v4"

// ClientIDKey is the echo context key of the authenticated client id.
const ClientIDKey = "client_id"

// ClientID returns the client id set by SessionAuth, or "" for guests.
func ClientID(c echo.Context) string {
	if v, ok := c.Get(ClientIDKey).(string); ok {
		return v
	}
	return ""
}

// clientOrAnon is ClientID with "anon" for guests, for use in keys and logs.
func clientOrAnon(c echo.Context) string {
	if id := ClientID(c); id != "" {
		return id
	}
	return "anon"
}

