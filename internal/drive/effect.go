package drive

import "strings"

// Effect is a fire-and-forget waveform played by the chip's sequencer.
type Effect int

const (
	EffectTextureTick Effect = iota
	EffectTick
	EffectClick
	EffectDoubleClick
	EffectHeavyClick
)

// Strength selects how hard a discrete effect is played.
type Strength int

const (
	StrengthLight Strength = iota
	StrengthMedium
	StrengthStrong
)

// Sequencer programs for the waveform library.
const (
	seqClick       = "1 0"
	seqTick        = "2 0"
	seqDoubleClick = "3 0"
	seqHeavyClick  = "4 0"
)

var effectNames = map[Effect]string{
	EffectTextureTick: "texture_tick",
	EffectTick:        "tick",
	EffectClick:       "click",
	EffectDoubleClick: "double_click",
	EffectHeavyClick:  "heavy_click",
}

var strengthNames = map[Strength]string{
	StrengthLight:  "light",
	StrengthMedium: "medium",
	StrengthStrong: "strong",
}

func (e Effect) String() string {
	if n, ok := effectNames[e]; ok {
		return n
	}
	return "unknown"
}

func (s Strength) String() string {
	if n, ok := strengthNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseEffect accepts the lower case effect names, e.g. "double_click".
func ParseEffect(s string) (Effect, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for e, n := range effectNames {
		if n == s {
			return e, nil
		}
	}
	return 0, invalidArg("unknown effect %q", s)
}

// ParseStrength accepts "light", "medium" or "strong".
func ParseStrength(s string) (Strength, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for st, n := range strengthNames {
		if n == s {
			return st, nil
		}
	}
	return 0, invalidArg("unknown strength %q", s)
}

// SupportedEffects lists every effect Perform accepts.
func SupportedEffects() []Effect {
	return []Effect{EffectTextureTick, EffectTick, EffectClick, EffectHeavyClick, EffectDoubleClick}
}

// strengthOffset is the row offset added to an effect's base row.
// Medium and strong share an offset on this hardware.
func strengthOffset(s Strength) (int, error) {
	switch s {
	case StrengthLight:
		return 0, nil
	case StrengthMedium, StrengthStrong:
		return 1, nil
	}
	return 0, invalidArg("unknown strength %d", int(s))
}

// effectRow resolves the effect table row and sequencer program.
func effectRow(e Effect, s Strength) (row int, seq string, err error) {
	off, err := strengthOffset(s)
	if err != nil {
		return 0, "", err
	}
	switch e {
	case EffectTextureTick:
		return 0, seqTick, nil
	case EffectTick:
		return 1 + off, seqTick, nil
	case EffectClick:
		return 2 + off, seqClick, nil
	case EffectDoubleClick:
		return 2 + off, seqDoubleClick, nil
	case EffectHeavyClick:
		return 3 + off, seqHeavyClick, nil
	}
	return 0, "", invalidArg("unknown effect %d", int(e))
}
