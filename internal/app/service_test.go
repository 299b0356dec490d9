package app

import (
	"errors"
	"math/rand"
	"testing"

	"cardclash/internal/domain"
)

var suitIndex = map[string]int{
	domain.SuitHearts:   0,
	domain.SuitDiamonds: 1,
	domain.SuitClubs:    2,
	domain.SuitSpades:   3,
}

func tc(suit string, rank int) domain.Card {
	return domain.Card{ID: suitIndex[suit]*domain.RanksPerSuit + rank - 1, Suit: suit, Rank: rank}
}

func newPlayingRoom(t *testing.T, mode domain.Mode) (*Service, *domain.Room) {
	t.Helper()
	svc := NewService(rand.New(rand.NewSource(42)))
	room := domain.NewRoom("room-1", "Test Room", mode)
	room.AddPlayer(&domain.Player{SessionID: "p1", Name: "Alice"})
	room.AddPlayer(&domain.Player{SessionID: "p2", Name: "Bob"})
	if _, err := svc.StartGame(room); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return svc, room
}

// rigSelection replaces the player's hand with the given cards and
// selects all of them.
func rigSelection(p *domain.Player, cards ...domain.Card) {
	p.Hand = cards
	p.ResetTransient()
	for _, c := range cards {
		p.Selected[c.ID] = true
	}
}

func findEvent(events []Event, kind EventKind) *Event {
	for i := range events {
		if events[i].Kind == kind {
			return &events[i]
		}
	}
	return nil
}

func TestStartGame(t *testing.T) {
	_, room := newPlayingRoom(t, domain.ModeClassic)

	if room.State != domain.StatePlaying {
		t.Fatalf("state = %s, want %s", room.State, domain.StatePlaying)
	}
	if room.Turn != 1 {
		t.Fatalf("turn = %d, want 1", room.Turn)
	}
	if len(room.Deck) != 36 {
		t.Fatalf("deck = %d cards, want 36", len(room.Deck))
	}
	for _, p := range room.Players {
		if len(p.Hand) != domain.HandSize {
			t.Fatalf("player %s hand = %d cards, want %d", p.SessionID, len(p.Hand), domain.HandSize)
		}
		if p.Health != 100 || p.MaxHealth != 100 {
			t.Fatalf("player %s health = %d/%d, want 100/100", p.SessionID, p.Health, p.MaxHealth)
		}
	}
}

func TestStartGameEvents(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(42)))
	room := domain.NewRoom("room-1", "Test Room", domain.ModeClassic)
	room.AddPlayer(&domain.Player{SessionID: "p1"})
	room.AddPlayer(&domain.Player{SessionID: "p2"})

	events, err := svc.StartGame(room)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for _, sessionID := range []string{"p1", "p2"} {
		found := false
		for _, e := range events {
			if e.Kind != EventHandDealt {
				continue
			}
			p := e.Payload.(HandDealtPayload)
			if p.SessionID != sessionID {
				continue
			}
			found = true
			if len(e.Recipients) != 1 || e.Recipients[0] != sessionID {
				t.Fatalf("hand dealt for %s addressed to %v", sessionID, e.Recipients)
			}
		}
		if !found {
			t.Fatalf("no hand dealt event for %s", sessionID)
		}
	}
	started := findEvent(events, EventGameStarted)
	if started == nil {
		t.Fatal("no game started event")
	}
	if len(started.Recipients) != 0 {
		t.Fatalf("game started should broadcast, got recipients %v", started.Recipients)
	}
}

func TestStartGameNeedsTwoPlayers(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	room := domain.NewRoom("room-1", "Solo", domain.ModeClassic)
	room.AddPlayer(&domain.Player{SessionID: "p1"})

	if _, err := svc.StartGame(room); !errors.Is(err, ErrRoomNotFull) {
		t.Fatalf("err = %v, want %v", err, ErrRoomNotFull)
	}
}

func TestToggleSelect(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	current := room.CurrentPlayer()
	cardID := current.Hand[0].ID

	events, err := svc.ToggleSelect(room, current.SessionID, cardID)
	if err != nil || len(events) != 1 {
		t.Fatalf("toggle on: events=%d err=%v", len(events), err)
	}
	if !current.Selected[cardID] {
		t.Fatal("card should be selected after first toggle")
	}
	if p := events[0].Payload.(CardTogglePayload); !p.On {
		t.Fatal("toggle event should report on=true")
	}

	events, err = svc.ToggleSelect(room, current.SessionID, cardID)
	if err != nil || len(events) != 1 {
		t.Fatalf("toggle off: events=%d err=%v", len(events), err)
	}
	if current.Selected[cardID] {
		t.Fatal("card should be deselected after second toggle")
	}
}

func TestToggleSelectIgnoresRaces(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	current := room.CurrentPlayer()
	waiting := room.Opponent(room.CurrentPlayerIndex)

	// Out of turn.
	if events, err := svc.ToggleSelect(room, waiting.SessionID, waiting.Hand[0].ID); events != nil || err != nil {
		t.Fatalf("out-of-turn toggle: events=%v err=%v, want nil/nil", events, err)
	}
	// Card not in hand.
	if events, err := svc.ToggleSelect(room, current.SessionID, 999); events != nil || err != nil {
		t.Fatalf("unknown card toggle: events=%v err=%v, want nil/nil", events, err)
	}
	// Wrong state.
	room.State = domain.StateEnded
	if events, err := svc.ToggleSelect(room, current.SessionID, current.Hand[0].ID); events != nil || err != nil {
		t.Fatalf("ended-state toggle: events=%v err=%v, want nil/nil", events, err)
	}
}

func TestPlayHandInvalidSelection(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	current := room.CurrentPlayer()
	opponent := room.Opponent(room.CurrentPlayerIndex)
	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 8))
	turnBefore := room.Turn

	events, err := svc.PlayHand(room, current.SessionID)
	if err != nil {
		t.Fatalf("PlayHand: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventInvalidHand {
		t.Fatalf("got events %v, want a single invalid hand event", events)
	}
	if len(events[0].Recipients) != 1 || events[0].Recipients[0] != current.SessionID {
		t.Fatalf("invalid hand addressed to %v, want actor only", events[0].Recipients)
	}
	if room.Turn != turnBefore {
		t.Fatal("invalid play must not consume the turn")
	}
	if opponent.Health != opponent.MaxHealth {
		t.Fatal("invalid play must not deal damage")
	}
	if len(current.Hand) != 2 {
		t.Fatal("invalid play must not touch the hand")
	}
}

func TestPlayHandDealsDamageAndAdvancesTurn(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	actorIndex := room.CurrentPlayerIndex
	current := room.CurrentPlayer()
	opponent := room.Opponent(actorIndex)
	opponent.DiscardsUsed = 2
	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))

	events, err := svc.PlayHand(room, current.SessionID)
	if err != nil {
		t.Fatalf("PlayHand: %v", err)
	}

	if opponent.Health != 100-19 {
		t.Fatalf("opponent health = %d, want 81", opponent.Health)
	}
	if room.CurrentPlayerIndex != 1-actorIndex {
		t.Fatal("turn should pass to the opponent")
	}
	if room.Turn != 2 {
		t.Fatalf("turn = %d, want 2", room.Turn)
	}
	if opponent.DiscardsUsed != 0 {
		t.Fatal("new current player's discard allowance should reset")
	}
	if len(current.Hand) != domain.HandSize {
		t.Fatalf("actor hand = %d cards after redraw, want %d", len(current.Hand), domain.HandSize)
	}
	if room.LastPlayedHand == nil || room.LastPlayedHand.Category != domain.CategoryOnePair {
		t.Fatalf("last played hand = %v, want one pair", room.LastPlayedHand)
	}

	played := findEvent(events, EventHandPlayed)
	if played == nil {
		t.Fatal("no hand played event")
	}
	payload := played.Payload.(HandPlayedPayload)
	if payload.DamageDealt != 19 || payload.Result.Category != domain.CategoryOnePair {
		t.Fatalf("payload = %+v, want 19 damage from one pair", payload)
	}
	if payload.PredictionHit != nil {
		t.Fatal("classic mode must not report a prediction outcome")
	}
	dealt := findEvent(events, EventHandDealt)
	if dealt == nil || len(dealt.Recipients) != 1 || dealt.Recipients[0] != current.SessionID {
		t.Fatal("redraw must go to the actor only")
	}
}

func TestPlayHandWinsGame(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	actorIndex := room.CurrentPlayerIndex
	current := room.CurrentPlayer()
	opponent := room.Opponent(actorIndex)
	opponent.Health = 10
	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))

	events, err := svc.PlayHand(room, current.SessionID)
	if err != nil {
		t.Fatalf("PlayHand: %v", err)
	}

	if opponent.Health != 0 {
		t.Fatalf("opponent health = %d, want floor at 0", opponent.Health)
	}
	if room.State != domain.StateEnded {
		t.Fatalf("state = %s, want %s", room.State, domain.StateEnded)
	}
	if room.CurrentPlayerIndex != actorIndex {
		t.Fatal("winning play must not advance the turn")
	}
	ended := findEvent(events, EventGameEnded)
	if ended == nil {
		t.Fatal("no game ended event")
	}
	if p := ended.Payload.(GameEndedPayload); p.WinnerSessionID != current.SessionID {
		t.Fatalf("winner = %s, want %s", p.WinnerSessionID, current.SessionID)
	}
}

func TestPlayHandArmorAbsorbs(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeTactical)
	current := room.CurrentPlayer()
	opponent := room.Opponent(room.CurrentPlayerIndex)
	opponent.Armor = 10
	rigSelection(current, tc(domain.SuitHearts, 1)) // high card ace, 15 damage

	events, err := svc.PlayHand(room, current.SessionID)
	if err != nil {
		t.Fatalf("PlayHand: %v", err)
	}

	if opponent.Armor != 0 {
		t.Fatalf("opponent armor = %d, want 0", opponent.Armor)
	}
	if opponent.Health != 80-5 {
		t.Fatalf("opponent health = %d, want 75", opponent.Health)
	}
	payload := findEvent(events, EventHandPlayed).Payload.(HandPlayedPayload)
	if payload.DamageDealt != 5 || payload.ArmorAbsorbed != 10 {
		t.Fatalf("payload = %+v, want 5 dealt and 10 absorbed", payload)
	}
}

func TestPredictionHit(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeTactical)
	current := room.CurrentPlayer()
	opponent := room.Opponent(room.CurrentPlayerIndex)

	events, err := svc.MakePrediction(room, opponent.SessionID, domain.CategoryOnePair)
	if err != nil {
		t.Fatalf("MakePrediction: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d prediction events, want broadcast plus private", len(events))
	}
	if p := events[0].Payload.(PredictionMadePayload); p.Category != "" {
		t.Fatal("broadcast prediction event must not reveal the category")
	}
	if p := events[1].Payload.(PredictionMadePayload); p.Category != domain.CategoryOnePair {
		t.Fatal("private prediction event must carry the category")
	}

	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))
	playEvents, err := svc.PlayHand(room, current.SessionID)
	if err != nil {
		t.Fatalf("PlayHand: %v", err)
	}

	if opponent.Health != 80-4 { // 19 / 4 = 4
		t.Fatalf("opponent health = %d, want 76", opponent.Health)
	}
	if opponent.Prediction != "" {
		t.Fatal("prediction must clear after resolving")
	}
	payload := findEvent(playEvents, EventHandPlayed).Payload.(HandPlayedPayload)
	if payload.PredictionHit == nil || !*payload.PredictionHit {
		t.Fatalf("payload = %+v, want prediction hit", payload)
	}
}

func TestPredictionMiss(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeTactical)
	current := room.CurrentPlayer()
	opponent := room.Opponent(room.CurrentPlayerIndex)

	if _, err := svc.MakePrediction(room, opponent.SessionID, domain.CategoryFlush); err != nil {
		t.Fatalf("MakePrediction: %v", err)
	}

	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))
	events, err := svc.PlayHand(room, current.SessionID)
	if err != nil {
		t.Fatalf("PlayHand: %v", err)
	}

	if opponent.Health != 80-23 { // 19 * 5 / 4 = 23
		t.Fatalf("opponent health = %d, want 57", opponent.Health)
	}
	if opponent.Prediction != "" {
		t.Fatal("prediction must clear after resolving")
	}
	payload := findEvent(events, EventHandPlayed).Payload.(HandPlayedPayload)
	if payload.PredictionHit == nil || *payload.PredictionHit {
		t.Fatalf("payload = %+v, want prediction miss", payload)
	}
}

func TestMakePredictionRejections(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeTactical)
	current := room.CurrentPlayer()
	opponent := room.Opponent(room.CurrentPlayerIndex)

	if _, err := svc.MakePrediction(room, current.SessionID, domain.CategoryOnePair); !errors.Is(err, ErrOwnHandPredicted) {
		t.Fatalf("own-turn prediction err = %v, want %v", err, ErrOwnHandPredicted)
	}
	if _, err := svc.MakePrediction(room, opponent.SessionID, ""); !errors.Is(err, ErrNoPrediction) {
		t.Fatalf("empty prediction err = %v, want %v", err, ErrNoPrediction)
	}

	_, classicRoom := newPlayingRoom(t, domain.ModeClassic)
	waiting := classicRoom.Opponent(classicRoom.CurrentPlayerIndex)
	if events, err := svc.MakePrediction(classicRoom, waiting.SessionID, domain.CategoryOnePair); events != nil || err != nil {
		t.Fatalf("classic prediction: events=%v err=%v, want nil/nil", events, err)
	}
}

func TestBuildArmor(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeTactical)
	actorIndex := room.CurrentPlayerIndex
	current := room.CurrentPlayer()
	opponent := room.Opponent(actorIndex)
	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))

	events, err := svc.BuildArmor(room, current.SessionID)
	if err != nil {
		t.Fatalf("BuildArmor: %v", err)
	}

	if current.Armor != 5 {
		t.Fatalf("armor = %d, want 5 from one pair", current.Armor)
	}
	if opponent.Health != opponent.MaxHealth {
		t.Fatal("building armor must not deal damage")
	}
	if room.CurrentPlayerIndex != 1-actorIndex {
		t.Fatal("building armor consumes the turn")
	}
	if len(current.Hand) != domain.HandSize {
		t.Fatalf("actor hand = %d cards after redraw, want %d", len(current.Hand), domain.HandSize)
	}
	built := findEvent(events, EventArmorBuilt)
	if built == nil {
		t.Fatal("no armor built event")
	}
	if p := built.Payload.(ArmorBuiltPayload); p.ArmorGained != 5 || p.Armor != 5 {
		t.Fatalf("payload = %+v, want gain 5 total 5", p)
	}
}

func TestBuildArmorCapsAtMax(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeTactical)
	current := room.CurrentPlayer()
	current.Armor = 48
	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))

	if _, err := svc.BuildArmor(room, current.SessionID); err != nil {
		t.Fatalf("BuildArmor: %v", err)
	}
	if current.Armor != domain.MaxArmor {
		t.Fatalf("armor = %d, want cap %d", current.Armor, domain.MaxArmor)
	}
}

func TestBuildArmorTacticalOnly(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	current := room.CurrentPlayer()
	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))

	if events, err := svc.BuildArmor(room, current.SessionID); events != nil || err != nil {
		t.Fatalf("classic build armor: events=%v err=%v, want nil/nil", events, err)
	}
}

func TestDiscardIsFreeAction(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	actorIndex := room.CurrentPlayerIndex
	current := room.CurrentPlayer()
	turnBefore := room.Turn
	deckBefore := len(room.Deck)
	dropped := []int{current.Hand[0].ID, current.Hand[1].ID}
	for _, id := range dropped {
		if _, err := svc.ToggleMark(room, current.SessionID, id); err != nil {
			t.Fatalf("ToggleMark: %v", err)
		}
	}

	events, err := svc.DiscardCards(room, current.SessionID)
	if err != nil {
		t.Fatalf("DiscardCards: %v", err)
	}

	if room.Turn != turnBefore || room.CurrentPlayerIndex != actorIndex {
		t.Fatal("discarding must not consume the turn")
	}
	if len(current.Hand) != domain.HandSize {
		t.Fatalf("hand = %d cards, want %d", len(current.Hand), domain.HandSize)
	}
	for _, id := range dropped {
		if current.HasCard(id) {
			t.Fatalf("discarded card %d still in hand", id)
		}
	}
	if current.DiscardsUsed != 1 {
		t.Fatalf("discards used = %d, want 1", current.DiscardsUsed)
	}
	if len(room.Deck) != deckBefore-2 {
		t.Fatalf("deck = %d cards, want %d", len(room.Deck), deckBefore-2)
	}
	discarded := findEvent(events, EventCardsDiscarded)
	if discarded == nil {
		t.Fatal("no cards discarded event")
	}
	if p := discarded.Payload.(CardsDiscardedPayload); p.Count != 2 {
		t.Fatalf("payload count = %d, want 2", p.Count)
	}
	dealt := findEvent(events, EventHandDealt)
	if dealt == nil || len(dealt.Recipients) != 1 || dealt.Recipients[0] != current.SessionID {
		t.Fatal("replacement hand must go to the actor only")
	}
}

func TestDiscardLimits(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	current := room.CurrentPlayer()

	// Nothing marked.
	if events, err := svc.DiscardCards(room, current.SessionID); events != nil || err != nil {
		t.Fatalf("empty discard: events=%v err=%v, want nil/nil", events, err)
	}

	// Too many cards in one action.
	for _, c := range current.Hand[:4] {
		if _, err := svc.ToggleMark(room, current.SessionID, c.ID); err != nil {
			t.Fatalf("ToggleMark: %v", err)
		}
	}
	if events, err := svc.DiscardCards(room, current.SessionID); events != nil || err != nil {
		t.Fatalf("oversized discard: events=%v err=%v, want nil/nil", events, err)
	}

	// Per-turn allowance.
	current.ResetTransient()
	current.DiscardsUsed = domain.MaxDiscards
	if _, err := svc.ToggleMark(room, current.SessionID, current.Hand[0].ID); err != nil {
		t.Fatalf("ToggleMark: %v", err)
	}
	if events, err := svc.DiscardCards(room, current.SessionID); events != nil || err != nil {
		t.Fatalf("exhausted discard: events=%v err=%v, want nil/nil", events, err)
	}
}

func TestRecyclingDiscardFeedsPile(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeRecycling)
	current := room.CurrentPlayer()
	if _, err := svc.ToggleMark(room, current.SessionID, current.Hand[0].ID); err != nil {
		t.Fatalf("ToggleMark: %v", err)
	}
	if _, err := svc.DiscardCards(room, current.SessionID); err != nil {
		t.Fatalf("DiscardCards: %v", err)
	}
	if len(room.DiscardPile) != 1 {
		t.Fatalf("discard pile = %d cards, want 1", len(room.DiscardPile))
	}
}

func TestRecyclingReshuffleConservesCards(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeRecycling)
	current := room.CurrentPlayer()

	// Run the draw pile nearly dry so the next redraw must recycle.
	room.DiscardPile = append([]domain.Card{}, room.Deck[:31]...)
	room.Deck = room.Deck[31:]

	if _, err := svc.ToggleSelect(room, current.SessionID, current.Hand[0].ID); err != nil {
		t.Fatalf("ToggleSelect: %v", err)
	}
	if _, err := svc.PlayHand(room, current.SessionID); err != nil {
		t.Fatalf("PlayHand: %v", err)
	}

	if len(room.DiscardPile) != 0 {
		t.Fatalf("discard pile = %d cards after reshuffle, want 0", len(room.DiscardPile))
	}
	if len(current.Hand) != domain.HandSize {
		t.Fatalf("actor hand = %d cards, want %d", len(current.Hand), domain.HandSize)
	}

	seen := make(map[int]bool)
	total := 0
	count := func(cards []domain.Card) {
		for _, c := range cards {
			if seen[c.ID] {
				t.Fatalf("card id %d appears twice", c.ID)
			}
			seen[c.ID] = true
			total++
		}
	}
	count(room.Deck)
	count(room.DiscardPile)
	for _, p := range room.Players {
		count(p.Hand)
	}
	if total != domain.DeckSize {
		t.Fatalf("card universe = %d, want %d", total, domain.DeckSize)
	}
}

func TestClassicNeverRecycles(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	current := room.CurrentPlayer()
	room.Deck = room.Deck[:3]

	if _, err := svc.ToggleSelect(room, current.SessionID, current.Hand[0].ID); err != nil {
		t.Fatalf("ToggleSelect: %v", err)
	}
	if _, err := svc.PlayHand(room, current.SessionID); err != nil {
		t.Fatalf("PlayHand: %v", err)
	}

	if len(current.Hand) != 3 {
		t.Fatalf("actor hand = %d cards from a 3-card deck, want 3", len(current.Hand))
	}
	if len(room.Deck) != 0 {
		t.Fatalf("deck = %d cards, want 0", len(room.Deck))
	}
}

func TestActionsIgnoredWithEmptySeat(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeTactical)
	current := room.CurrentPlayer()
	waiting := room.Opponent(room.CurrentPlayerIndex)
	room.RemovePlayer(waiting.SessionID)

	if events, err := svc.ToggleSelect(room, current.SessionID, current.Hand[0].ID); events != nil || err != nil {
		t.Fatalf("toggle with empty seat: events=%v err=%v, want nil/nil", events, err)
	}
	if events, err := svc.PlayHand(room, current.SessionID); events != nil || err != nil {
		t.Fatalf("play with empty seat: events=%v err=%v, want nil/nil", events, err)
	}
	if events, err := svc.BuildArmor(room, current.SessionID); events != nil || err != nil {
		t.Fatalf("armor with empty seat: events=%v err=%v, want nil/nil", events, err)
	}
	if events, err := svc.MakePrediction(room, current.SessionID, domain.CategoryOnePair); events != nil || err != nil {
		t.Fatalf("prediction with empty seat: events=%v err=%v, want nil/nil", events, err)
	}
}

func TestForfeitGame(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeRecycling)
	remaining := room.CurrentPlayer()
	leaver := room.Opponent(room.CurrentPlayerIndex)

	// Both seats taken: nothing to forfeit.
	if events, err := svc.ForfeitGame(room); events != nil || err != nil {
		t.Fatalf("full-room forfeit: events=%v err=%v, want nil/nil", events, err)
	}

	room.RemovePlayer(leaver.SessionID)
	events, err := svc.ForfeitGame(room)
	if err != nil {
		t.Fatalf("ForfeitGame: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventGameEnded {
		t.Fatalf("events = %v, want a single game ended event", events)
	}
	if p := events[0].Payload.(GameEndedPayload); p.WinnerSessionID != remaining.SessionID {
		t.Fatalf("winner = %s, want %s", p.WinnerSessionID, remaining.SessionID)
	}
	if room.State != domain.StateWaiting {
		t.Fatalf("state = %s, want %s", room.State, domain.StateWaiting)
	}
	if room.Deck != nil || room.DiscardPile != nil || room.LastPlayedHand != nil {
		t.Fatal("forfeited room should clear its piles")
	}
	if len(remaining.Hand) != 0 {
		t.Fatal("remaining player's hand should clear")
	}

	// Already resolved.
	if events, err := svc.ForfeitGame(room); events != nil || err != nil {
		t.Fatalf("second forfeit: events=%v err=%v, want nil/nil", events, err)
	}
}

func endGame(t *testing.T, svc *Service, room *domain.Room) (winner, loser *domain.Player) {
	t.Helper()
	current := room.CurrentPlayer()
	opponent := room.Opponent(room.CurrentPlayerIndex)
	opponent.Health = 1
	rigSelection(current, tc(domain.SuitHearts, 7), tc(domain.SuitSpades, 7))
	if _, err := svc.PlayHand(room, current.SessionID); err != nil {
		t.Fatalf("PlayHand: %v", err)
	}
	if room.State != domain.StateEnded {
		t.Fatalf("state = %s, want %s", room.State, domain.StateEnded)
	}
	return current, opponent
}

func TestRematchFlow(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	winner, loser := endGame(t, svc, room)

	events, err := svc.RequestRematch(room, loser.SessionID)
	if err != nil || len(events) != 1 || events[0].Kind != EventRematchRequested {
		t.Fatalf("request: events=%v err=%v", events, err)
	}

	// A second pending request is ignored.
	if events, err := svc.RequestRematch(room, winner.SessionID); events != nil || err != nil {
		t.Fatalf("second request: events=%v err=%v, want nil/nil", events, err)
	}
	// The requester cannot accept their own offer.
	if events, err := svc.AcceptRematch(room, loser.SessionID); events != nil || err != nil {
		t.Fatalf("self accept: events=%v err=%v, want nil/nil", events, err)
	}

	events, err = svc.AcceptRematch(room, winner.SessionID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if findEvent(events, EventRematchAccepted) == nil || findEvent(events, EventGameStarted) == nil {
		t.Fatalf("accept events = %v, want rematch accepted plus a fresh start", events)
	}
	if room.State != domain.StatePlaying {
		t.Fatalf("state = %s, want %s", room.State, domain.StatePlaying)
	}
	for _, p := range room.Players {
		if p.Health != p.MaxHealth {
			t.Fatalf("player %s health = %d, want full %d", p.SessionID, p.Health, p.MaxHealth)
		}
		if len(p.Hand) != domain.HandSize {
			t.Fatalf("player %s hand = %d cards, want %d", p.SessionID, len(p.Hand), domain.HandSize)
		}
	}
	if room.RematchRequestedBy != "" {
		t.Fatal("pending rematch flag should clear on accept")
	}
}

func TestDeclineRematch(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	winner, loser := endGame(t, svc, room)

	if _, err := svc.RequestRematch(room, loser.SessionID); err != nil {
		t.Fatalf("request: %v", err)
	}
	events, err := svc.DeclineRematch(room, winner.SessionID)
	if err != nil || len(events) != 1 || events[0].Kind != EventRematchDeclined {
		t.Fatalf("decline: events=%v err=%v", events, err)
	}
	if room.RematchRequestedBy != "" {
		t.Fatal("pending rematch flag should clear on decline")
	}
	// Nothing left to accept.
	if events, err := svc.AcceptRematch(room, winner.SessionID); events != nil || err != nil {
		t.Fatalf("accept after decline: events=%v err=%v, want nil/nil", events, err)
	}
}

func TestRematchRequiresEndedGame(t *testing.T) {
	svc, room := newPlayingRoom(t, domain.ModeClassic)
	current := room.CurrentPlayer()

	if events, err := svc.RequestRematch(room, current.SessionID); events != nil || err != nil {
		t.Fatalf("mid-game request: events=%v err=%v, want nil/nil", events, err)
	}
}
