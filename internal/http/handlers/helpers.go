package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wadtech/wad-calendar-service/internal/appointments"
)

// genericErrorMessage hides internals from callers on unexpected failures.
const genericErrorMessage = "Erro interno ao processar a solicitação"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps business errors to 400 with their message and
// everything else to a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var berr *appointments.BusinessError
	if errors.As(err, &berr) {
		jsonError(w, berr.Msg, http.StatusBadRequest)
		return
	}
	jsonError(w, genericErrorMessage, http.StatusInternalServerError)
}
