package session

import "net"

// Role distinguishes the local player from remote peers and pure
// observers, per §4.3's player roster.
type Role int

const (
	RoleLocal Role = iota
	RoleRemote
	RoleSpectator
)

func (r Role) String() string {
	switch r {
	case RoleLocal:
		return "Local"
	case RoleRemote:
		return "Remote"
	case RoleSpectator:
		return "Spectator"
	default:
		return "Unknown"
	}
}

// Player is one seat in the session: a player number, a role, and, for
// remote players, the UDP address the transport adapter dials.
type Player struct {
	Number int
	Role   Role
	Addr   *net.UDPAddr
}
