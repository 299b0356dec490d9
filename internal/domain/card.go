package domain

import "math/rand"

// Suit names as they appear on the wire.
const (
	SuitHearts   = "hearts"
	SuitDiamonds = "diamonds"
	SuitClubs    = "clubs"
	SuitSpades   = "spades"
)

// Suits lists all four suits in deck-build order.
var Suits = []string{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Card is a single playing card. ID is the card's identity within a
// room's 52-card universe; selection state is tracked per player, not
// on the card itself.
type Card struct {
	ID   int    `json:"id"`
	Suit string `json:"suit"`
	Rank int    `json:"rank"` // 1..13, 1 = Ace, 11 = Jack, 12 = Queen, 13 = King
}

const (
	// DeckSize is the number of cards in a full deck.
	DeckSize = 52
	// RanksPerSuit is the number of ranks per suit.
	RanksPerSuit = 13
)

// NewDeck returns a full 52-card deck shuffled with the given rng.
// Card IDs are assigned from the canonical suit-major ordering so they
// stay stable across shuffles.
func NewDeck(rng *rand.Rand) []Card {
	deck := make([]Card, 0, DeckSize)
	for si, suit := range Suits {
		for r := 1; r <= RanksPerSuit; r++ {
			deck = append(deck, Card{ID: si*RanksPerSuit + r - 1, Suit: suit, Rank: r})
		}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// Deal removes and returns the first n cards from the deck. n is
// clamped to the remaining deck size so a short pile can never
// underflow.
func Deal(deck []Card, n int) (dealt, rest []Card) {
	if n < 0 {
		n = 0
	}
	if n > len(deck) {
		n = len(deck)
	}
	dealt = append([]Card{}, deck[:n]...)
	rest = deck[n:]
	return dealt, rest
}

// FaceValue returns the per-card damage contribution of a rank.
// Aces are high (14); court cards keep their rank value.
func FaceValue(rank int) int {
	if rank == 1 {
		return 14
	}
	return rank
}
