package handlers

// Custom WebSocket close codes used by the connection handler. These
// provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	InvalidTokenError   = 3001 // Guest token was invalid or malformed.
)
