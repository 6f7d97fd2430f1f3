// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Application close codes (4000-4999 is reserved for private use, 3000-3999
// for libraries and frameworks).
const (
	BadSubprotocolError websocket.StatusCode = 3000 // client did not request the hanabi subprotocol
)
