package skill

import (
	"fmt"
	"strings"
)

// EffectKind identifies which calculator resolves an effect.
type EffectKind int

const (
	EffectDamage EffectKind = iota
	EffectHeal
	EffectBuffStat
	EffectDebuffStat
	EffectApplyStatus
	EffectClearStatus
	EffectMoveTarget
	EffectRevive
)

var effectKindNames = []string{"damage", "heal", "buff_stat", "debuff_stat", "apply_status", "clear_status", "move_target", "revive"}

// String returns the snake_case kind name used in content files.
func (k EffectKind) String() string {
	if int(k) >= 0 && int(k) < len(effectKindNames) {
		return effectKindNames[k]
	}
	return "unknown"
}

// IsImpactful reports whether the effect makes its target play a hit reaction.
func (k EffectKind) IsImpactful() bool {
	return k == EffectDamage || k == EffectDebuffStat
}

// ParseEffectKind converts a content-file name into an EffectKind.
func ParseEffectKind(name string) (EffectKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, kn := range effectKindNames {
		if kn == n {
			return EffectKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown effect kind %q", name)
}

// TargetType describes which actors a skill may affect.
type TargetType int

const (
	TargetNone TargetType = iota
	TargetSelf
	TargetSingleAlly
	TargetSingleEnemy
	TargetAllAllies
	TargetAllEnemies
	TargetAllyRow
	TargetEnemyRow
)

var targetTypeNames = []string{"none", "self", "single_ally", "single_enemy", "all_allies", "all_enemies", "ally_row", "enemy_row"}

// String returns the snake_case target type name used in content files.
func (t TargetType) String() string {
	if int(t) >= 0 && int(t) < len(targetTypeNames) {
		return targetTypeNames[t]
	}
	return "unknown"
}

// ParseTargetType converts a content-file name into a TargetType.
// The empty string parses as TargetNone.
func ParseTargetType(name string) (TargetType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return TargetNone, nil
	}
	for i, tn := range targetTypeNames {
		if tn == n {
			return TargetType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown target type %q", name)
}

// Side is the faction-relative side a target type selects from.
type Side int

const (
	SideNone Side = iota
	SideSelf
	SideAllies
	SideEnemies
)

// Side returns which side of the battle t draws candidates from.
func (t TargetType) Side() Side {
	switch t {
	case TargetSelf:
		return SideSelf
	case TargetSingleAlly, TargetAllAllies, TargetAllyRow:
		return SideAllies
	case TargetSingleEnemy, TargetAllEnemies, TargetEnemyRow:
		return SideEnemies
	default:
		return SideNone
	}
}

// IsSingle reports whether t resolves to exactly one chosen actor.
func (t TargetType) IsSingle() bool {
	return t == TargetSingleAlly || t == TargetSingleEnemy
}

// IsRow reports whether t resolves to one formation row.
func (t TargetType) IsRow() bool {
	return t == TargetAllyRow || t == TargetEnemyRow
}

// NeedsSelection reports whether a player must pick a primary target for t.
func (t TargetType) NeedsSelection() bool {
	return t.IsSingle() || t.IsRow()
}

// DamageChannel selects which defensive stat mitigates damage.
type DamageChannel int

const (
	ChannelPhysical DamageChannel = iota
	ChannelMagical
	ChannelTrue
)

var channelNames = []string{"physical", "magical", "true"}

// String returns the channel name.
func (c DamageChannel) String() string {
	if int(c) >= 0 && int(c) < len(channelNames) {
		return channelNames[c]
	}
	return "unknown"
}

// ParseDamageChannel converts a content-file name into a DamageChannel.
// The empty string parses as ChannelPhysical.
func ParseDamageChannel(name string) (DamageChannel, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ChannelPhysical, nil
	}
	for i, cn := range channelNames {
		if cn == n {
			return DamageChannel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown damage channel %q", name)
}

// Motion is the caster animation a skill plays.
type Motion string

const (
	MotionAttack  Motion = "attack"
	MotionCast    Motion = "cast"
	MotionUseItem Motion = "use_item"
	MotionDefend  Motion = "defend"
)

// ParseMotion validates a content-file motion name. The empty string returns fallback.
func ParseMotion(name string, fallback Motion) (Motion, error) {
	switch m := Motion(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return fallback, nil
	case MotionAttack, MotionCast, MotionUseItem, MotionDefend:
		return m, nil
	default:
		return "", fmt.Errorf("unknown motion %q", name)
	}
}
