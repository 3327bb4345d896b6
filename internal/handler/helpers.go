// Package handler implements the HTTP API surface. Every handler assumes
// the session middleware has already put a user id on the context.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// mustUserID reads the authenticated user from the context. The middleware
// guarantees it; a miss means a wiring bug, answered with 401.
func mustUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := session.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
	}
	return userID, ok
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// typeParam parses the {type} path segment into a registry type.
func typeParam(w http.ResponseWriter, r *http.Request) (model.QuestionnaireType, bool) {
	qt, err := model.ParseQuestionnaireType(r.PathValue("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return qt, true
}
