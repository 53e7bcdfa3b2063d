package signaling

// Room represents a single meeting room holding every connected participant.
// A room is created implicitly on first join and deleted once the last
// member leaves.
type Room struct {
	// ID is the unique identifier for the room.
	ID string

	// Members maps connection ids to the clients currently in the room.
	Members map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Members: make(map[string]*Client),
	}
}

// others returns every member except the one with the given connection id.
func (r *Room) others(id string) []*Client {
	out := make([]*Client, 0, len(r.Members))
	for memberID, member := range r.Members {
		if memberID != id {
			out = append(out, member)
		}
	}
	return out
}
