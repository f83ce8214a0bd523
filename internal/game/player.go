package game

// Conn is the transport half of a connected client. Enqueue must never block;
// a false return marks the peer as too slow to keep and the room drops it.
type Conn interface {
	Enqueue(v any) bool
	Close()
}

// Player is one identity in a room. A player can hold several live
// connections at once and survives brief disconnects until the room expires.
type Player struct {
	ID         string
	Username   string
	AvatarURL  string
	GuessCount int

	conns map[Conn]struct{}
}

func newPlayer(id, username, avatarURL string) *Player {
	return &Player{
		ID:        id,
		Username:  username,
		AvatarURL: avatarURL,
		conns:     make(map[Conn]struct{}),
	}
}

func (p *Player) attach(conn Conn) { p.conns[conn] = struct{}{} }
func (p *Player) detach(conn Conn) { delete(p.conns, conn) }
func (p *Player) connected() bool  { return len(p.conns) > 0 }

func (p *Player) info() PlayerInfo {
	return PlayerInfo{
		ID:         p.ID,
		Username:   p.Username,
		AvatarURL:  p.AvatarURL,
		GuessCount: p.GuessCount,
		Connected:  p.connected(),
	}
}

func (p *Player) entryUser() EntryUser {
	return EntryUser{ID: p.ID, Username: p.Username, AvatarURL: p.AvatarURL}
}
