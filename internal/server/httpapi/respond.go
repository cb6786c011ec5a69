package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeJSON serializes payload with the given status. Encoding failures are
// ignored at this point: headers are already on the wire.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the uniform error envelope the clients parse.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// userPayload shapes an account for the wire. Credential material never
// leaves the server.
func userPayload(id int64, username, email string, isActive bool) map[string]any {
	return map[string]any{
		"id":        id,
		"username":  username,
		"email":     email,
		"is_active": isActive,
	}
}
