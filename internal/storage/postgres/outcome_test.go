package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/pipeline"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func finishedResult(outcome battle.Outcome, turns int) *battle.Result {
	knight := actor.New("knight", "Knight", actor.FactionFriendly, actor.Stats{MaxHealth: 40}, 0)
	goblin := actor.New("goblin", "Goblin", actor.FactionHostile, actor.Stats{MaxHealth: 12}, 1)
	goblin.ApplyDamage(12)
	return &battle.Result{
		BattleID:   uuid.NewString(),
		Outcome:    outcome,
		Turns:      turns,
		Friendlies: []*actor.Actor{knight},
		Hostiles:   []*actor.Actor{goblin},
		Log:        []pipeline.Event{{ActorID: "knight", TargetID: "goblin", Amount: 12, Defeated: true}},
	}
}

func TestRecordFromResult(t *testing.T) {
	res := finishedResult(battle.OutcomeVictory, 3)
	rec := postgres.RecordFromResult(res)

	assert.Equal(t, res.BattleID, rec.BattleID)
	assert.Equal(t, "victory", rec.Outcome)
	assert.Equal(t, 3, rec.Turns)
	assert.Equal(t, 1, rec.Events)
	require.Len(t, rec.Participants, 2)
	assert.Equal(t, postgres.Participant{
		ID: "knight", Name: "Knight", Faction: "friendly", Rank: 0, Health: 40, MaxHealth: 40,
	}, rec.Participants[0])
	assert.Equal(t, "hostile", rec.Participants[1].Faction)
	assert.True(t, rec.Participants[1].Defeated)
}

// Property: participants are friendlies followed by hostiles, preserving roster order.
func TestPropertyRecordFromResult_Order(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nf := rapid.IntRange(0, 4).Draw(t, "friendlies")
		nh := rapid.IntRange(0, 4).Draw(t, "hostiles")
		res := &battle.Result{BattleID: "b"}
		for i := 0; i < nf; i++ {
			res.Friendlies = append(res.Friendlies, actor.New(string(rune('a'+i)), "F", actor.FactionFriendly, actor.Stats{MaxHealth: 1}, 0))
		}
		for i := 0; i < nh; i++ {
			res.Hostiles = append(res.Hostiles, actor.New(string(rune('p'+i)), "H", actor.FactionHostile, actor.Stats{MaxHealth: 1}, 0))
		}
		rec := postgres.RecordFromResult(res)
		if len(rec.Participants) != nf+nh {
			t.Fatalf("got %d participants, want %d", len(rec.Participants), nf+nh)
		}
		for i, p := range rec.Participants {
			want := "friendly"
			if i >= nf {
				want = "hostile"
			}
			if p.Faction != want {
				t.Fatalf("participant %d faction %q, want %q", i, p.Faction, want)
			}
		}
	})
}

func TestOutcomeRepository_RoundTrip(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewOutcomeRepository(pool, zap.NewNop())
	ctx := context.Background()

	res := finishedResult(battle.OutcomeVictory, 5)
	require.NoError(t, repo.OnBattleEnd(ctx, res))

	got, err := repo.Get(ctx, res.BattleID)
	require.NoError(t, err)
	assert.Equal(t, res.BattleID, got.BattleID)
	assert.Equal(t, "victory", got.Outcome)
	assert.Equal(t, 5, got.Turns)
	assert.Equal(t, 1, got.Events)
	assert.Equal(t, postgres.RecordFromResult(res).Participants, got.Participants)
	assert.False(t, got.RecordedAt.IsZero())

	err = repo.OnBattleEnd(ctx, res)
	assert.ErrorIs(t, err, postgres.ErrOutcomeExists)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, postgres.ErrOutcomeNotFound)

	require.NoError(t, repo.OnBattleEnd(ctx, finishedResult(battle.OutcomeDefeat, 7)))
	tally, err := repo.Tally(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"victory": 1, "defeat": 1}, tally)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	_, err = repo.Recent(ctx, 0)
	assert.Error(t, err)
}

func TestPool_Health(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	assert.NoError(t, pc.Pool.Health(context.Background(), 5*time.Second))

	var app string
	require.NoError(t, pc.RawPool.QueryRow(context.Background(), `SHOW application_name`).Scan(&app))
	assert.Equal(t, postgres.ApplicationName, app)
}

func TestOutcomeRepository_AsHandler(t *testing.T) {
	pool := testutil.NewPool(t)
	var handler battle.OutcomeHandler = postgres.NewOutcomeRepository(pool, zap.NewNop())
	assert.Error(t, handler.OnBattleEnd(context.Background(), nil))
}
