// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ViewHandler serves GET /game/view: the table state as seen by the player
// named in the bearer seat token.
func ViewHandler(logger logrus.FieldLogger, table *Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := table.ViewFor(extractBearerToken(r.Header.Get("Authorization")))
		switch {
		case err == nil:
		case errors.Is(err, ErrTokensNotSet):
			http.Error(w, "seat tokens are disabled", http.StatusNotFound)
			return
		case errors.Is(err, ErrNoSeatToken):
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		default:
			logger.Debugf("View rejected: %v", err)
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(view); err != nil {
			logger.Errorf("Failed to encode view: %v", err)
		}
	}
}
