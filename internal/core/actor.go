// AngelaMos | 2026
// actor.go

package core

// KindAdmin is the user-type kind that unlocks back-office operations.
const KindAdmin = "admin"

// Actor is the authenticated caller as seen by services. Kind comes from the
// user store on every request, never from a client-supplied field.
type Actor struct {
	UserID string
	Kind   string
}

func (a Actor) IsAdmin() bool {
	return a.Kind == KindAdmin
}

// CanAccess reports whether the actor may touch a resource owned by ownerID.
func (a Actor) CanAccess(ownerID *string) bool {
	if a.IsAdmin() {
		return true
	}
	return ownerID != nil && *ownerID == a.UserID
}
