package app

import "cardclash/internal/domain"

// EventKind identifies emitted engine events for dispatch at the port.
type EventKind string

const (
	EventGameStarted      EventKind = "game_started"
	EventHandDealt        EventKind = "hand_dealt"
	EventCardSelected     EventKind = "card_selected"
	EventCardMarked       EventKind = "card_marked_for_discard"
	EventCardsDiscarded   EventKind = "cards_discarded"
	EventHandPlayed       EventKind = "hand_played"
	EventArmorBuilt       EventKind = "armor_built"
	EventPredictionMade   EventKind = "prediction_made"
	EventInvalidHand      EventKind = "invalid_hand"
	EventGameEnded        EventKind = "game_ended"
	EventRematchRequested EventKind = "rematch_requested"
	EventRematchAccepted  EventKind = "rematch_accepted"
	EventRematchDeclined  EventKind = "rematch_declined"
)

// Event is an engine event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // session ids; empty means broadcast to the room
}

type GameStartedPayload struct {
	Mode             domain.Mode `json:"gameMode"`
	FirstPlayerIndex int         `json:"firstPlayerIndex"`
	Turn             int         `json:"turn"`
}

// HandDealtPayload is always sent privately to its owner.
type HandDealtPayload struct {
	SessionID string
	Hand      []domain.Card
}

type CardTogglePayload struct {
	SessionID string
	CardID    int
	On        bool
}

type CardsDiscardedPayload struct {
	SessionID    string `json:"id"`
	Count        int    `json:"count"`
	DiscardsUsed int    `json:"discardsUsed"`
	DeckCount    int    `json:"deckCount"`
}

type HandPlayedPayload struct {
	SessionID       string            `json:"id"`
	Cards           []domain.Card     `json:"cards"`
	Result          domain.HandResult `json:"result"`
	DamageDealt     int               `json:"damageDealt"`
	ArmorAbsorbed   int               `json:"armorAbsorbed"`
	PredictionHit   *bool             `json:"predictionHit"` // nil when no prediction was pending
	OpponentHealth  int               `json:"opponentHealth"`
	OpponentArmor   int               `json:"opponentArmor"`
	NextPlayerIndex int               `json:"nextPlayerIndex"`
	Turn            int               `json:"turn"`
}

type ArmorBuiltPayload struct {
	SessionID       string              `json:"id"`
	Cards           []domain.Card       `json:"cards"`
	Category        domain.HandCategory `json:"category"`
	ArmorGained     int                 `json:"armorGained"`
	Armor           int                 `json:"armor"`
	NextPlayerIndex int                 `json:"nextPlayerIndex"`
	Turn            int                 `json:"turn"`
}

// PredictionMadePayload is broadcast without the category; the private
// copy sent back to the predictor includes it.
type PredictionMadePayload struct {
	SessionID string
	Category  domain.HandCategory
}

type InvalidHandPayload struct {
	SessionID string
	Reason    string
}

type GameEndedPayload struct {
	WinnerSessionID string `json:"winner"`
	Turn            int    `json:"turn"`
}

type RematchPayload struct {
	SessionID string
}
