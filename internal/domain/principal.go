package domain

type Role string

const (
	RoleBuyer     Role = "BUYER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// Principal is the verified caller identity, taken verbatim from the
// identity provider's credential.
type Principal struct {
	UserID             string
	Role               Role
	SubscriptionActive bool
	Email              string
	Name               string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManage reports whether p may edit, delete or validate tickets for an
// event created by creatorID.
func (p Principal) CanManage(creatorID string) bool {
	if p.UserID == "" {
		return false
	}
	return p.IsAdmin() || p.UserID == creatorID
}

// CanPublish reports whether p passes the event-management gate: an admin,
// or an organizer with an active subscription.
func (p Principal) CanPublish() bool {
	if p.IsAdmin() {
		return true
	}
	return p.Role == RoleOrganizer && p.SubscriptionActive
}
