package domain

// Mode selects the rule variant a room plays under.
type Mode string

const (
	ModeClassic   Mode = "classic"
	ModeTactical  Mode = "tactical"
	ModeRecycling Mode = "recycling"
)

// Gameplay constants shared by all modes.
const (
	RoomCapacity       = 2
	HandSize           = 8
	MaxDiscards        = 3
	MaxCardsPerDiscard = 3
)

// Tactical-mode constants.
const (
	// MaxArmor caps accumulated armor.
	MaxArmor = 50
)

// ReshuffleThreshold is the draw-pile size below which recycling mode
// folds the discard pile back into the deck before a redraw.
const ReshuffleThreshold = HandSize

// startingHealth holds the per-mode starting (and maximum) health.
var startingHealth = map[Mode]int{
	ModeClassic:   100,
	ModeTactical:  80,
	ModeRecycling: 120,
}

// ParseMode maps a wire string to a Mode, defaulting to classic.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeTactical:
		return ModeTactical
	case ModeRecycling:
		return ModeRecycling
	default:
		return ModeClassic
	}
}

// StartingHealth returns the initial health pool for a mode.
func StartingHealth(mode Mode) int {
	if hp, ok := startingHealth[mode]; ok {
		return hp
	}
	return startingHealth[ModeClassic]
}

// PredictionDamage applies the tactical prediction multiplier to a
// damage value: a correct guess quarters it, a wrong guess raises it by
// a quarter. Both results truncate toward zero.
func PredictionDamage(damage int, hit bool) int {
	if hit {
		return damage / 4
	}
	return damage * 5 / 4
}

// AbsorbDamage subtracts incoming damage from armor first and returns
// the remaining armor and unabsorbed damage.
func AbsorbDamage(armor, damage int) (remainingArmor, remainingDamage int) {
	absorbed := armor
	if damage < absorbed {
		absorbed = damage
	}
	return armor - absorbed, damage - absorbed
}
