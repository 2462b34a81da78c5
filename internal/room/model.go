package room

import "time"

// Member is one of the two participants bound to a room. Membership is fixed
// at creation; a partner change always goes through dissolve + re-pair.
type Member struct {
	ID   string
	Name string
}

type ChatMessage struct {
	Sender  string
	Content string
}

type Room struct {
	ID        string
	A         Member
	B         Member
	Log       []ChatMessage
	CreatedAt time.Time
}

// Other returns the member opposite to id, matched by identifier equality.
func (r *Room) Other(id string) (Member, bool) {
	switch id {
	case r.A.ID:
		return r.B, true
	case r.B.ID:
		return r.A, true
	}
	return Member{}, false
}

func (r *Room) member(id string) (Member, bool) {
	if r.A.ID == id {
		return r.A, true
	}
	if r.B.ID == id {
		return r.B, true
	}
	return Member{}, false
}
