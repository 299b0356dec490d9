package domain

import (
	"errors"
	"sort"
)

// HandCategory names one of the ten poker-style hand rankings used for
// damage scoring.
type HandCategory string

const (
	CategoryRoyalFlush    HandCategory = "Royal Flush"
	CategoryStraightFlush HandCategory = "Straight Flush"
	CategoryFourOfAKind   HandCategory = "Four of a Kind"
	CategoryFullHouse     HandCategory = "Full House"
	CategoryFlush         HandCategory = "Flush"
	CategoryStraight      HandCategory = "Straight"
	CategoryThreeOfAKind  HandCategory = "Three of a Kind"
	CategoryTwoPair       HandCategory = "Two Pair"
	CategoryOnePair       HandCategory = "One Pair"
	CategoryHighCard      HandCategory = "High Card"
	CategoryInvalid       HandCategory = "Invalid Hand"
)

// Validation errors for illegal card selections.
var (
	ErrNoCards      = errors.New("no cards selected")
	ErrTooManyCards = errors.New("too many cards selected")
	ErrNotPair      = errors.New("two cards must be a pair")
	ErrNotTrips     = errors.New("three cards must be three of a kind")
	ErrInvalidFour  = errors.New("four cards must be four of a kind or two pairs")
	ErrInvalidFive  = errors.New("five cards must form a straight, flush, full house, straight flush or royal flush")
)

// HandResult is the scoring outcome of a played selection.
type HandResult struct {
	Category HandCategory `json:"category"`
	Damage   int          `json:"damage"`
	Detail   string       `json:"detail,omitempty"`
}

// baseDamage is the fixed per-category damage added to the card face sum.
var baseDamage = map[HandCategory]int{
	CategoryRoyalFlush:    50,
	CategoryStraightFlush: 40,
	CategoryFourOfAKind:   35,
	CategoryFullHouse:     30,
	CategoryFlush:         25,
	CategoryStraight:      20,
	CategoryThreeOfAKind:  15,
	CategoryTwoPair:       10,
	CategoryOnePair:       5,
	CategoryHighCard:      1,
}

// armorGain maps a hand category to armor points for build-armor turns.
var armorGain = map[HandCategory]int{
	CategoryHighCard:      2,
	CategoryOnePair:       5,
	CategoryTwoPair:       8,
	CategoryThreeOfAKind:  12,
	CategoryStraight:      15,
	CategoryFlush:         18,
	CategoryFullHouse:     22,
	CategoryFourOfAKind:   25,
	CategoryStraightFlush: 30,
	CategoryRoyalFlush:    35,
}

// ArmorGain returns the armor awarded for a hand category. Unrecognized
// categories fall back to the high-card value.
func ArmorGain(category HandCategory) int {
	if gain, ok := armorGain[category]; ok {
		return gain
	}
	return 2
}

// ValidateHand reports whether a selection of 1-5 cards is a legal play.
func ValidateHand(cards []Card) error {
	switch n := len(cards); {
	case n == 0:
		return ErrNoCards
	case n == 1:
		return nil
	case n == 2:
		if cards[0].Rank != cards[1].Rank {
			return ErrNotPair
		}
		return nil
	case n == 3:
		if !allSameRank(cards) {
			return ErrNotTrips
		}
		return nil
	case n == 4:
		if isFourOfAKind(cards) || isTwoDistinctPairs(cards) {
			return nil
		}
		return ErrInvalidFour
	case n == 5:
		if isFlush(cards) && isRoyalPattern(cards) {
			return nil
		}
		if isStraight(cards) || isFlush(cards) || isFullHouse(cards) {
			return nil
		}
		return ErrInvalidFive
	default:
		return ErrTooManyCards
	}
}

// EvaluateHand classifies a selection and computes its damage value.
// Invalid selections produce a zero-damage Invalid Hand result instead
// of an error so callers can surface the reason to the acting player.
func EvaluateHand(cards []Card) HandResult {
	if err := ValidateHand(cards); err != nil {
		return HandResult{Category: CategoryInvalid, Damage: 0, Detail: err.Error()}
	}

	category := classify(cards)
	damage := baseDamage[category]
	for _, c := range cards {
		damage += FaceValue(c.Rank)
	}
	return HandResult{Category: category, Damage: damage}
}

func classify(cards []Card) HandCategory {
	switch len(cards) {
	case 1:
		return CategoryHighCard
	case 2:
		return CategoryOnePair
	case 3:
		return CategoryThreeOfAKind
	case 4:
		if isFourOfAKind(cards) {
			return CategoryFourOfAKind
		}
		return CategoryTwoPair
	default:
		flush := isFlush(cards)
		switch {
		case flush && isRoyalPattern(cards):
			return CategoryRoyalFlush
		case flush && isStraight(cards):
			return CategoryStraightFlush
		case isFullHouse(cards):
			return CategoryFullHouse
		case flush:
			return CategoryFlush
		default:
			return CategoryStraight
		}
	}
}

func allSameRank(cards []Card) bool {
	for _, c := range cards {
		if c.Rank != cards[0].Rank {
			return false
		}
	}
	return len(cards) > 0
}

func rankCounts(cards []Card) map[int]int {
	counts := make(map[int]int, len(cards))
	for _, c := range cards {
		counts[c.Rank]++
	}
	return counts
}

func isFourOfAKind(cards []Card) bool {
	for _, n := range rankCounts(cards) {
		if n == 4 {
			return true
		}
	}
	return false
}

func isTwoDistinctPairs(cards []Card) bool {
	counts := rankCounts(cards)
	if len(counts) != 2 {
		return false
	}
	for _, n := range counts {
		if n != 2 {
			return false
		}
	}
	return true
}

func isFullHouse(cards []Card) bool {
	counts := rankCounts(cards)
	if len(counts) != 2 {
		return false
	}
	for _, n := range counts {
		if n != 2 && n != 3 {
			return false
		}
	}
	return true
}

func isFlush(cards []Card) bool {
	for _, c := range cards {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return len(cards) == 5
}

// isStraight reports whether five cards hold distinct ranks spanning
// exactly four. The Ace-low wheel (1,2,3,4,5) satisfies the same span
// rule; the Ace-high royal pattern (1,10,11,12,13) spans twelve and is
// deliberately excluded, it only scores combined with a flush.
func isStraight(cards []Card) bool {
	ranks := sortedDistinctRanks(cards)
	if len(ranks) != 5 {
		return false
	}
	return ranks[4]-ranks[0] == 4
}

// isRoyalPattern reports the literal rank set Ace,10,J,Q,K.
func isRoyalPattern(cards []Card) bool {
	ranks := sortedDistinctRanks(cards)
	if len(ranks) != 5 {
		return false
	}
	want := []int{1, 10, 11, 12, 13}
	for i, r := range ranks {
		if r != want[i] {
			return false
		}
	}
	return true
}

func sortedDistinctRanks(cards []Card) []int {
	seen := make(map[int]bool, len(cards))
	ranks := make([]int, 0, len(cards))
	for _, c := range cards {
		if seen[c.Rank] {
			continue
		}
		seen[c.Rank] = true
		ranks = append(ranks, c.Rank)
	}
	sort.Ints(ranks)
	return ranks
}
