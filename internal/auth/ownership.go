package auth

import "github.com/sakif/inkpost/internal/apperror"

// forbiddenMessage never names the real owner.
const forbiddenMessage = "not authorized to modify this resource"

// Authorize reports whether actorID may mutate a resource owned by ownerID.
// Identifiers compare by exact string value; an empty id never matches.
func Authorize(ownerID, actorID string) bool {
	return ownerID != "" && ownerID == actorID
}

// RequireOwner is Authorize as an error: nil when allowed, Forbidden otherwise.
func RequireOwner(ownerID, actorID string) error {
	if !Authorize(ownerID, actorID) {
		return apperror.Forbidden(forbiddenMessage)
	}
	return nil
}
