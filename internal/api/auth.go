package api

import (
	"net/http"
	"strconv"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

// Identity headers injected by the auth gateway. The engine never
// authenticates; it trusts these and only enforces role gates.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
	headerUserRole  = "X-User-Role"
)

// identityFrom reads the gateway-asserted caller, nil when anonymous.
func identityFrom(r *http.Request) *models.User {
	email := r.Header.Get(headerUserEmail)
	role := r.Header.Get(headerUserRole)
	if email == "" && role == "" {
		return nil
	}
	id, _ := strconv.ParseInt(r.Header.Get(headerUserID), 10, 64)
	return &models.User{ID: id, Email: email, Role: models.Role(role)}
}
