package domain

// GameState represents the lifecycle stage of a room.
type GameState string

const (
	// StateWaiting indicates the room is not full or not yet started.
	StateWaiting GameState = "waiting"
	// StatePlaying indicates a game is in progress.
	StatePlaying GameState = "playing"
	// StateEnded indicates the game finished; only a rematch restarts it.
	StateEnded GameState = "ended"
)

// Player holds the per-room state of one participant. Selected and
// Marked are transient presentation state keyed by card id, kept off
// the cards themselves so shuffles and redraws can never persist UI
// flags into game history.
type Player struct {
	SessionID    string
	Name         string
	Health       int
	MaxHealth    int
	Hand         []Card
	Selected     map[int]bool
	Marked       map[int]bool
	DiscardsUsed int

	// Tactical mode only.
	Armor      int
	Prediction HandCategory // empty when no prediction is pending
}

// SelectedCards returns the hand cards currently toggled for play, in
// hand order.
func (p *Player) SelectedCards() []Card {
	return p.filterHand(p.Selected)
}

// MarkedCards returns the hand cards currently marked for discard, in
// hand order.
func (p *Player) MarkedCards() []Card {
	return p.filterHand(p.Marked)
}

func (p *Player) filterHand(set map[int]bool) []Card {
	var out []Card
	for _, c := range p.Hand {
		if set[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// HasCard reports whether the card id is in the player's hand.
func (p *Player) HasCard(cardID int) bool {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return true
		}
	}
	return false
}

// ResetTransient clears selection and discard marks.
func (p *Player) ResetTransient() {
	p.Selected = make(map[int]bool)
	p.Marked = make(map[int]bool)
}

// Room is a two-player match session with its own deck, turn state and
// rule variant.
type Room struct {
	ID      string
	Name    string
	Mode    Mode
	Players []*Player
	State   GameState

	CurrentPlayerIndex int
	Turn               int

	Deck        []Card
	DiscardPile []Card // recycling mode only

	LastPlayedHand *HandResult

	// RematchRequestedBy holds the session id of a pending rematch
	// request after the game ended.
	RematchRequestedBy string
}

// NewRoom creates an empty waiting room.
func NewRoom(id, name string, mode Mode) *Room {
	return &Room{
		ID:    id,
		Name:  name,
		Mode:  mode,
		State: StateWaiting,
	}
}

// IsFull reports whether both seats are taken.
func (r *Room) IsFull() bool {
	return len(r.Players) >= RoomCapacity
}

// PlayerIndex returns the seat index for a session id, or -1.
func (r *Room) PlayerIndex(sessionID string) int {
	for i, p := range r.Players {
		if p.SessionID == sessionID {
			return i
		}
	}
	return -1
}

// PlayerBySession returns the player for a session id, or nil.
func (r *Room) PlayerBySession(sessionID string) *Player {
	if i := r.PlayerIndex(sessionID); i >= 0 {
		return r.Players[i]
	}
	return nil
}

// CurrentPlayer returns the player whose turn-ending actions are
// permitted. Callers must ensure the room has players.
func (r *Room) CurrentPlayer() *Player {
	return r.Players[r.CurrentPlayerIndex]
}

// Opponent returns the player opposite the given seat index.
func (r *Room) Opponent(index int) *Player {
	return r.Players[1-index]
}

// AddPlayer seats a player if capacity allows.
func (r *Room) AddPlayer(p *Player) bool {
	if r.IsFull() {
		return false
	}
	r.Players = append(r.Players, p)
	return true
}

// RemovePlayer unseats a session and reports whether it was present.
func (r *Room) RemovePlayer(sessionID string) bool {
	for i, p := range r.Players {
		if p.SessionID == sessionID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveCards removes the given cards from a hand by id and returns the
// updated hand.
func RemoveCards(hand []Card, toRemove []Card) []Card {
	if len(toRemove) == 0 || len(hand) == 0 {
		return hand
	}
	drop := make(map[int]bool, len(toRemove))
	for _, c := range toRemove {
		drop[c.ID] = true
	}
	updated := make([]Card, 0, len(hand))
	for _, c := range hand {
		if drop[c.ID] {
			continue
		}
		updated = append(updated, c)
	}
	return updated
}
