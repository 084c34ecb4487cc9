package targeting_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/targeting"
)

func mk(id string, f actor.Faction, rank int) *actor.Actor {
	return actor.New(id, id, f, actor.Stats{MaxHealth: 30}, rank)
}

func setup(t *testing.T) (targeting.Teams, *targeting.Resolver, *observer.ObservedLogs) {
	t.Helper()
	teams := targeting.Teams{
		Friendlies: []*actor.Actor{mk("f0", actor.FactionFriendly, 0), mk("f1", actor.FactionFriendly, 2)},
		Hostiles:   []*actor.Actor{mk("h0", actor.FactionHostile, 0), mk("h1", actor.FactionHostile, 1), mk("h2", actor.FactionHostile, 3)},
	}
	core, logs := observer.New(zapcore.WarnLevel)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(7), zap.NewNop())
	return teams, targeting.NewResolver(teams, roller, zap.New(core)), logs
}

func ids(list []*actor.Actor) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestCandidates_BySide(t *testing.T) {
	teams, r, _ := setup(t)
	caster := teams.Friendlies[0]
	teams.Hostiles[1].ApplyDamage(100)

	assert.Equal(t, []string{"h0", "h2"}, ids(r.Candidates(skill.TargetSingleEnemy, caster, false)))
	assert.Equal(t, []string{"f0", "f1"}, ids(r.Candidates(skill.TargetAllAllies, caster, false)))
	assert.Equal(t, []string{"f0"}, ids(r.Candidates(skill.TargetSelf, caster, false)))
	assert.Empty(t, r.Candidates(skill.TargetNone, caster, false))
	assert.Equal(t, []string{"h0", "h1", "h2"}, ids(r.Candidates(skill.TargetSingleEnemy, caster, true)))
}

func TestResolve_SelfIsExactlyCaster(t *testing.T) {
	teams, r, _ := setup(t)
	for _, caster := range append(teams.Friendlies, teams.Hostiles...) {
		got := r.Resolve(skill.TargetSelf, caster, teams.Hostiles[0], false)
		assert.Equal(t, []*actor.Actor{caster}, got)
	}
}

func TestResolve_AllEnemiesThree(t *testing.T) {
	teams, r, _ := setup(t)
	got := r.Resolve(skill.TargetAllEnemies, teams.Friendlies[0], nil, false)
	assert.ElementsMatch(t, teams.Hostiles, got)
}

func TestResolve_SingleValidHint(t *testing.T) {
	teams, r, logs := setup(t)
	got := r.Resolve(skill.TargetSingleEnemy, teams.Friendlies[0], teams.Hostiles[2], false)
	assert.Equal(t, []*actor.Actor{teams.Hostiles[2]}, got)
	assert.Zero(t, logs.Len())
}

func TestResolve_SingleDeadHintFallsBack(t *testing.T) {
	teams, r, logs := setup(t)
	teams.Hostiles[0].ApplyDamage(100)
	got := r.Resolve(skill.TargetSingleEnemy, teams.Friendlies[0], teams.Hostiles[0], false)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsDefeated())
	assert.Equal(t, actor.FactionHostile, got[0].Faction)
	assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
}

func TestResolve_SingleWrongFactionFallsBack(t *testing.T) {
	teams, r, _ := setup(t)
	got := r.Resolve(skill.TargetSingleAlly, teams.Friendlies[0], teams.Hostiles[0], false)
	require.Len(t, got, 1)
	assert.Equal(t, actor.FactionFriendly, got[0].Faction)
}

func TestResolve_RowUsesHintRow(t *testing.T) {
	teams, r, _ := setup(t)
	front := r.Resolve(skill.TargetEnemyRow, teams.Friendlies[0], teams.Hostiles[1], false)
	assert.Equal(t, []string{"h0", "h1"}, ids(front))
	back := r.Resolve(skill.TargetEnemyRow, teams.Friendlies[0], teams.Hostiles[2], false)
	assert.Equal(t, []string{"h2"}, ids(back))
}

func TestResolve_RowWithoutHintUsesFirstCandidate(t *testing.T) {
	teams, r, _ := setup(t)
	teams.Hostiles[0].ApplyDamage(100)
	got := r.Resolve(skill.TargetEnemyRow, teams.Friendlies[0], nil, false)
	assert.Equal(t, []string{"h1"}, ids(got))
}

func TestResolve_ReviveIncludesDefeated(t *testing.T) {
	teams, r, _ := setup(t)
	teams.Friendlies[1].ApplyDamage(100)
	got := r.Resolve(skill.TargetSingleAlly, teams.Friendlies[0], teams.Friendlies[1], true)
	assert.Equal(t, []*actor.Actor{teams.Friendlies[1]}, got)
	got = r.Resolve(skill.TargetSingleAlly, teams.Friendlies[0], teams.Friendlies[1], false)
	assert.Equal(t, []*actor.Actor{teams.Friendlies[0]}, got)
}

func TestResolve_NoCandidates(t *testing.T) {
	teams, r, _ := setup(t)
	for _, h := range teams.Hostiles {
		h.ApplyDamage(100)
	}
	assert.Empty(t, r.Resolve(skill.TargetSingleEnemy, teams.Friendlies[0], nil, false))
	assert.Empty(t, r.Resolve(skill.TargetAllEnemies, teams.Friendlies[0], nil, false))
}

func TestResolve_Property_FallbackNeverEmptyNeverDead(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "hostiles")
		var hostiles []*actor.Actor
		alive := 0
		for i := 0; i < n; i++ {
			h := mk(fmt.Sprintf("h%d", i), actor.FactionHostile, rapid.IntRange(0, 3).Draw(rt, "rank"))
			if rapid.Bool().Draw(rt, "dead") {
				h.ApplyDamage(100)
			} else {
				alive++
			}
			hostiles = append(hostiles, h)
		}
		caster := mk("f0", actor.FactionFriendly, 0)
		teams := targeting.Teams{Friendlies: []*actor.Actor{caster}, Hostiles: hostiles}
		r := targeting.NewResolver(teams, dice.NewLoggedRoller(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), nil), nil)
		hint := hostiles[rapid.IntRange(0, n-1).Draw(rt, "hint")]
		tt := rapid.SampledFrom([]skill.TargetType{skill.TargetSingleEnemy, skill.TargetAllEnemies, skill.TargetEnemyRow}).Draw(rt, "tt")

		got := r.Resolve(tt, caster, hint, false)
		if alive == 0 {
			assert.Empty(rt, got)
			return
		}
		require.NotEmpty(rt, got)
		seen := make(map[*actor.Actor]bool)
		for _, a := range got {
			assert.False(rt, a.IsDefeated())
			assert.Equal(rt, actor.FactionHostile, a.Faction)
			assert.False(rt, seen[a], "duplicate target")
			seen[a] = true
		}
		if tt.IsSingle() {
			assert.Len(rt, got, 1)
		}
	})
}
