package nakama

import "cardclash/internal/domain"

// cardView is a hand card joined with its owner's transient flags.
type cardView struct {
	ID       int    `json:"id"`
	Suit     string `json:"suit"`
	Rank     int    `json:"rank"`
	Selected bool   `json:"selected"`
	Marked   bool   `json:"markedForDiscard"`
}

// tacticalView carries the fields that only exist in tactical rooms.
// The prediction itself stays hidden; opponents only learn one is set.
type tacticalView struct {
	Armor         int  `json:"armor"`
	HasPrediction bool `json:"hasPrediction"`
}

// playerView is a player's public broadcast shape. Mode-specific
// sections are attached only for the room's mode instead of merging
// optional fields into one payload.
type playerView struct {
	SessionID    string        `json:"id"`
	Name         string        `json:"name"`
	Health       int           `json:"health"`
	MaxHealth    int           `json:"maxHealth"`
	HandCount    int           `json:"handCount"`
	DiscardsUsed int           `json:"discardsUsed"`
	MaxDiscards  int           `json:"maxDiscards"`
	Tactical     *tacticalView `json:"tactical,omitempty"`
}

// roomSnapshot is the full room view broadcast at game start and on
// request. Hands are included only in the start snapshot.
type roomSnapshot struct {
	RoomID             string                `json:"roomId"`
	Name               string                `json:"name"`
	Mode               domain.Mode           `json:"gameMode"`
	State              domain.GameState      `json:"gameState"`
	CurrentPlayerIndex int                   `json:"currentPlayerIndex"`
	Turn               int                   `json:"turn"`
	DeckCount          int                   `json:"deckCount"`
	DiscardCount       int                   `json:"discardCount,omitempty"`
	Players            []playerView          `json:"players"`
	Hands              map[string][]cardView `json:"hands,omitempty"`
	LastPlayedHand     *domain.HandResult    `json:"lastPlayedHand,omitempty"`
}

func toCardViews(p *domain.Player) []cardView {
	out := make([]cardView, 0, len(p.Hand))
	for _, c := range p.Hand {
		out = append(out, cardView{
			ID:       c.ID,
			Suit:     c.Suit,
			Rank:     c.Rank,
			Selected: p.Selected[c.ID],
			Marked:   p.Marked[c.ID],
		})
	}
	return out
}

func toPlayerView(room *domain.Room, p *domain.Player) playerView {
	view := playerView{
		SessionID:    p.SessionID,
		Name:         p.Name,
		Health:       p.Health,
		MaxHealth:    p.MaxHealth,
		HandCount:    len(p.Hand),
		DiscardsUsed: p.DiscardsUsed,
		MaxDiscards:  domain.MaxDiscards,
	}
	if room.Mode == domain.ModeTactical {
		view.Tactical = &tacticalView{
			Armor:         p.Armor,
			HasPrediction: p.Prediction != "",
		}
	}
	return view
}

func toRoomSnapshot(room *domain.Room, includeHands bool) roomSnapshot {
	snapshot := roomSnapshot{
		RoomID:             room.ID,
		Name:               room.Name,
		Mode:               room.Mode,
		State:              room.State,
		CurrentPlayerIndex: room.CurrentPlayerIndex,
		Turn:               room.Turn,
		DeckCount:          len(room.Deck),
		LastPlayedHand:     room.LastPlayedHand,
	}
	if room.Mode == domain.ModeRecycling {
		snapshot.DiscardCount = len(room.DiscardPile)
	}
	for _, p := range room.Players {
		snapshot.Players = append(snapshot.Players, toPlayerView(room, p))
	}
	if includeHands {
		snapshot.Hands = make(map[string][]cardView, len(room.Players))
		for _, p := range room.Players {
			snapshot.Hands[p.SessionID] = toCardViews(p)
		}
	}
	return snapshot
}
