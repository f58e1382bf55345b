package handlers

// Custom WebSocket close codes used by the /ws handler.
const (
	BadSubprotocolError   = 3000 // Client connected without the joker subprotocol.
	InvalidAuthTokenError = 3001 // Missing, invalid or expired auth token.
	InvalidUserIDError    = 3002 // Token resolved to an unusable user id.
	InvalidRoomIDError    = 3003 // Target room does not exist or the id is malformed.
)
