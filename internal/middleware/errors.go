package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/linkhub/linkhub/internal/model"
)

// writeError writes the uniform {success:false, message} failure body.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Success: false, Message: message})
}
