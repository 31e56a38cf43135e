package auth

// CanActOn is the authorization decision table: admins may act on any
// resource, the resource owner may act on their own, everyone else is
// denied. Pure predicate, no side effects.
func CanActOn(actor Actor, resourceOwnerID string) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID != "" && actor.ID == resourceOwnerID
}
