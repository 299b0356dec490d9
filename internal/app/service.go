package app

import (
	"errors"
	"math/rand"
	"time"

	"cardclash/internal/domain"
)

// Service contains the turn state machine operating on room state.
// Out-of-turn and wrong-state attempts return (nil, nil): they are
// expected races, not failures, and emit nothing.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with the provided rng or a
// time-seeded default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

// User-correctable errors; the port relays these to the offending
// session only.
var (
	ErrRoomNotFull      = errors.New("room needs two players to start")
	ErrGameNotEnded     = errors.New("game has not ended")
	ErrOwnHandPredicted = errors.New("cannot predict your own hand")
	ErrNoPrediction     = errors.New("prediction is empty")
)

// StartGame starts or restarts the game for a full room: fresh deck,
// mode starting health, eight cards each, random first player.
func (s *Service) StartGame(room *domain.Room) ([]Event, error) {
	if len(room.Players) != domain.RoomCapacity {
		return nil, ErrRoomNotFull
	}

	deck := domain.NewDeck(s.rng)
	health := domain.StartingHealth(room.Mode)

	events := make([]Event, 0, domain.RoomCapacity+1)
	for _, p := range room.Players {
		p.Health = health
		p.MaxHealth = health
		p.DiscardsUsed = 0
		p.Armor = 0
		p.Prediction = ""
		p.Hand, deck = domain.Deal(deck, domain.HandSize)
		p.ResetTransient()

		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{SessionID: p.SessionID, Hand: p.Hand},
			Recipients: []string{p.SessionID},
		})
	}

	room.Deck = deck
	room.DiscardPile = nil
	room.CurrentPlayerIndex = s.rng.Intn(domain.RoomCapacity)
	room.Turn = 1
	room.LastPlayedHand = nil
	room.RematchRequestedBy = ""
	room.State = domain.StatePlaying

	events = append(events, Event{
		Kind: EventGameStarted,
		Payload: GameStartedPayload{
			Mode:             room.Mode,
			FirstPlayerIndex: room.CurrentPlayerIndex,
			Turn:             room.Turn,
		},
	})
	return events, nil
}

// ToggleSelect flips the play-selection flag on a hand card.
func (s *Service) ToggleSelect(room *domain.Room, sessionID string, cardID int) ([]Event, error) {
	p := s.actingPlayer(room, sessionID)
	if p == nil || !p.HasCard(cardID) {
		return nil, nil
	}
	p.Selected[cardID] = !p.Selected[cardID]
	return []Event{{
		Kind:    EventCardSelected,
		Payload: CardTogglePayload{SessionID: sessionID, CardID: cardID, On: p.Selected[cardID]},
	}}, nil
}

// ToggleMark flips the discard mark on a hand card.
func (s *Service) ToggleMark(room *domain.Room, sessionID string, cardID int) ([]Event, error) {
	p := s.actingPlayer(room, sessionID)
	if p == nil || !p.HasCard(cardID) {
		return nil, nil
	}
	p.Marked[cardID] = !p.Marked[cardID]
	return []Event{{
		Kind:    EventCardMarked,
		Payload: CardTogglePayload{SessionID: sessionID, CardID: cardID, On: p.Marked[cardID]},
	}}, nil
}

// DiscardCards swaps the marked cards for fresh ones. A free action: it
// neither ends the turn nor switches the current player.
func (s *Service) DiscardCards(room *domain.Room, sessionID string) ([]Event, error) {
	p := s.actingPlayer(room, sessionID)
	if p == nil {
		return nil, nil
	}
	marked := p.MarkedCards()
	if len(marked) == 0 || len(marked) > domain.MaxCardsPerDiscard || p.DiscardsUsed >= domain.MaxDiscards {
		return nil, nil
	}

	p.Hand = domain.RemoveCards(p.Hand, marked)
	if room.Mode == domain.ModeRecycling {
		room.DiscardPile = append(room.DiscardPile, marked...)
	}
	for _, c := range marked {
		delete(p.Marked, c.ID)
		delete(p.Selected, c.ID)
	}

	var drawn []domain.Card
	drawn, room.Deck = domain.Deal(room.Deck, len(marked))
	p.Hand = append(p.Hand, drawn...)
	p.DiscardsUsed++

	return []Event{
		{
			Kind: EventCardsDiscarded,
			Payload: CardsDiscardedPayload{
				SessionID:    sessionID,
				Count:        len(marked),
				DiscardsUsed: p.DiscardsUsed,
				DeckCount:    len(room.Deck),
			},
		},
		{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{SessionID: sessionID, Hand: p.Hand},
			Recipients: []string{sessionID},
		},
	}, nil
}

// PlayHand resolves the current player's selection as an attack. An
// invalid selection only notifies the actor; nothing changes.
func (s *Service) PlayHand(room *domain.Room, sessionID string) ([]Event, error) {
	p := s.actingPlayer(room, sessionID)
	if p == nil {
		return nil, nil
	}
	selection := p.SelectedCards()
	if err := domain.ValidateHand(selection); err != nil {
		return s.invalidHand(sessionID, err), nil
	}

	actorIndex := room.PlayerIndex(sessionID)
	opponent := room.Opponent(actorIndex)
	result := domain.EvaluateHand(selection)
	damage := result.Damage

	var predictionHit *bool
	if room.Mode == domain.ModeTactical && opponent.Prediction != "" {
		hit := opponent.Prediction == result.Category
		damage = domain.PredictionDamage(damage, hit)
		opponent.Prediction = ""
		predictionHit = &hit
	}

	absorbed := 0
	if room.Mode == domain.ModeTactical && opponent.Armor > 0 {
		var remaining int
		before := damage
		opponent.Armor, remaining = domain.AbsorbDamage(opponent.Armor, damage)
		absorbed = before - remaining
		damage = remaining
	}

	opponent.Health -= damage
	if opponent.Health < 0 {
		opponent.Health = 0
	}

	s.consumeAndRedraw(room, p, selection)
	room.LastPlayedHand = &result

	if opponent.Health == 0 {
		room.State = domain.StateEnded
	} else {
		s.advanceTurn(room)
	}

	events := []Event{
		{
			Kind: EventHandPlayed,
			Payload: HandPlayedPayload{
				SessionID:       sessionID,
				Cards:           selection,
				Result:          result,
				DamageDealt:     damage,
				ArmorAbsorbed:   absorbed,
				PredictionHit:   predictionHit,
				OpponentHealth:  opponent.Health,
				OpponentArmor:   opponent.Armor,
				NextPlayerIndex: room.CurrentPlayerIndex,
				Turn:            room.Turn,
			},
		},
		{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{SessionID: sessionID, Hand: p.Hand},
			Recipients: []string{sessionID},
		},
	}

	if room.State == domain.StateEnded {
		events = append(events, Event{
			Kind:    EventGameEnded,
			Payload: GameEndedPayload{WinnerSessionID: sessionID, Turn: room.Turn},
		})
	}
	return events, nil
}

// BuildArmor resolves the selection as armor instead of damage.
// Tactical mode only; it consumes the turn but can never end the game.
func (s *Service) BuildArmor(room *domain.Room, sessionID string) ([]Event, error) {
	if room.Mode != domain.ModeTactical {
		return nil, nil
	}
	p := s.actingPlayer(room, sessionID)
	if p == nil {
		return nil, nil
	}
	selection := p.SelectedCards()
	if err := domain.ValidateHand(selection); err != nil {
		return s.invalidHand(sessionID, err), nil
	}

	result := domain.EvaluateHand(selection)
	gain := domain.ArmorGain(result.Category)
	p.Armor += gain
	if p.Armor > domain.MaxArmor {
		p.Armor = domain.MaxArmor
	}

	s.consumeAndRedraw(room, p, selection)
	s.advanceTurn(room)

	return []Event{
		{
			Kind: EventArmorBuilt,
			Payload: ArmorBuiltPayload{
				SessionID:       sessionID,
				Cards:           selection,
				Category:        result.Category,
				ArmorGained:     gain,
				Armor:           p.Armor,
				NextPlayerIndex: room.CurrentPlayerIndex,
				Turn:            room.Turn,
			},
		},
		{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{SessionID: sessionID, Hand: p.Hand},
			Recipients: []string{sessionID},
		},
	}, nil
}

// MakePrediction stores a hand-category guess for the player who is not
// current. Predicting on one's own turn is a user error, not a race.
func (s *Service) MakePrediction(room *domain.Room, sessionID string, category domain.HandCategory) ([]Event, error) {
	if room.Mode != domain.ModeTactical || room.State != domain.StatePlaying || len(room.Players) != domain.RoomCapacity {
		return nil, nil
	}
	p := room.PlayerBySession(sessionID)
	if p == nil {
		return nil, nil
	}
	if room.CurrentPlayer().SessionID == sessionID {
		return nil, ErrOwnHandPredicted
	}
	if category == "" {
		return nil, ErrNoPrediction
	}

	p.Prediction = category
	return []Event{
		{
			Kind:    EventPredictionMade,
			Payload: PredictionMadePayload{SessionID: sessionID},
		},
		{
			Kind:       EventPredictionMade,
			Payload:    PredictionMadePayload{SessionID: sessionID, Category: category},
			Recipients: []string{sessionID},
		},
	}, nil
}

// ForfeitGame resolves a mid-game departure: the remaining player wins
// and the room returns to waiting so a new opponent can be seated.
func (s *Service) ForfeitGame(room *domain.Room) ([]Event, error) {
	if room.State != domain.StatePlaying || len(room.Players) != 1 {
		return nil, nil
	}
	remaining := room.Players[0]
	remaining.Hand = nil
	remaining.ResetTransient()

	room.State = domain.StateWaiting
	room.Deck = nil
	room.DiscardPile = nil
	room.LastPlayedHand = nil
	room.RematchRequestedBy = ""

	return []Event{{
		Kind:    EventGameEnded,
		Payload: GameEndedPayload{WinnerSessionID: remaining.SessionID, Turn: room.Turn},
	}}, nil
}

// RequestRematch records a rematch offer after the game ended.
func (s *Service) RequestRematch(room *domain.Room, sessionID string) ([]Event, error) {
	if room.State != domain.StateEnded || room.PlayerBySession(sessionID) == nil {
		return nil, nil
	}
	if room.RematchRequestedBy != "" {
		return nil, nil
	}
	room.RematchRequestedBy = sessionID
	return []Event{{Kind: EventRematchRequested, Payload: RematchPayload{SessionID: sessionID}}}, nil
}

// AcceptRematch restarts the game when the opposing player accepts.
func (s *Service) AcceptRematch(room *domain.Room, sessionID string) ([]Event, error) {
	if room.State != domain.StateEnded || room.PlayerBySession(sessionID) == nil {
		return nil, nil
	}
	if room.RematchRequestedBy == "" || room.RematchRequestedBy == sessionID {
		return nil, nil
	}
	room.RematchRequestedBy = ""

	events := []Event{{Kind: EventRematchAccepted, Payload: RematchPayload{SessionID: sessionID}}}
	startEvents, err := s.StartGame(room)
	if err != nil {
		return nil, err
	}
	return append(events, startEvents...), nil
}

// DeclineRematch clears a pending rematch offer.
func (s *Service) DeclineRematch(room *domain.Room, sessionID string) ([]Event, error) {
	if room.State != domain.StateEnded || room.PlayerBySession(sessionID) == nil {
		return nil, nil
	}
	if room.RematchRequestedBy == "" {
		return nil, nil
	}
	room.RematchRequestedBy = ""
	return []Event{{Kind: EventRematchDeclined, Payload: RematchPayload{SessionID: sessionID}}}, nil
}

// actingPlayer resolves the current player for an in-turn action, or
// nil when the room is not playing, a seat is empty, or the session is
// out of turn.
func (s *Service) actingPlayer(room *domain.Room, sessionID string) *domain.Player {
	if room.State != domain.StatePlaying || len(room.Players) != domain.RoomCapacity {
		return nil
	}
	p := room.CurrentPlayer()
	if p.SessionID != sessionID {
		return nil
	}
	return p
}

func (s *Service) invalidHand(sessionID string, err error) []Event {
	return []Event{{
		Kind:       EventInvalidHand,
		Payload:    InvalidHandPayload{SessionID: sessionID, Reason: err.Error()},
		Recipients: []string{sessionID},
	}}
}

// consumeAndRedraw removes the played cards and replaces the actor's
// entire hand with a fresh eight-card draw. In recycling mode the
// played cards and the unplayed remainder both join the discard pile so
// the 52-card universe is conserved across reshuffles.
func (s *Service) consumeAndRedraw(room *domain.Room, p *domain.Player, played []domain.Card) {
	remainder := domain.RemoveCards(p.Hand, played)
	if room.Mode == domain.ModeRecycling {
		room.DiscardPile = append(room.DiscardPile, played...)
		room.DiscardPile = append(room.DiscardPile, remainder...)
	}
	p.Hand = nil

	s.recycleIfNeeded(room)
	p.Hand, room.Deck = domain.Deal(room.Deck, domain.HandSize)
	p.ResetTransient()
}

// recycleIfNeeded folds the shuffled discard pile under the draw pile
// when recycling mode is about to run short. Runs before the redraw so
// the eight-card deal has enough cards.
func (s *Service) recycleIfNeeded(room *domain.Room) {
	if room.Mode != domain.ModeRecycling {
		return
	}
	if len(room.Deck) >= domain.ReshuffleThreshold || len(room.DiscardPile) == 0 {
		return
	}
	recycled := room.DiscardPile
	s.rng.Shuffle(len(recycled), func(i, j int) { recycled[i], recycled[j] = recycled[j], recycled[i] })
	room.Deck = append(room.Deck, recycled...)
	room.DiscardPile = nil
}

// advanceTurn hands the turn to the opponent and resets their discard
// allowance.
func (s *Service) advanceTurn(room *domain.Room) {
	room.CurrentPlayerIndex = 1 - room.CurrentPlayerIndex
	room.Turn++
	room.CurrentPlayer().DiscardsUsed = 0
}
