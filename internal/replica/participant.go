package replica

type Role string

const (
	RoleOrganizer Role = "Organizer"
	RolePresenter Role = "Presenter"
	RoleAttendee  Role = "Attendee"
	RoleGuest     Role = "Guest"
)

type ConnectionState string

const (
	StateOnline  ConnectionState = "online"
	StateAway    ConnectionState = "away"
	StateOffline ConnectionState = "offline"
)

// Identity is what a client knows about itself before joining.
type Identity struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	PrincipalName string `json:"principalName,omitempty"`
	Roles         []Role `json:"roles"`
}

type Participant struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Roles       []Role          `json:"roles"`
	State       ConnectionState `json:"state"`
}

func (p Participant) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Participant) Clone() Participant {
	c := p
	c.Roles = append([]Role(nil), p.Roles...)
	return c
}

func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		switch Role(name) {
		case RoleOrganizer, RolePresenter, RoleAttendee, RoleGuest:
			roles = append(roles, Role(name))
		}
	}
	return roles
}
