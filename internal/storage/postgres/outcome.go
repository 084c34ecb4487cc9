package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/actor"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
)

// ErrOutcomeNotFound is returned when no outcome row matches a battle ID.
var ErrOutcomeNotFound = errors.New("battle outcome not found")

// ErrOutcomeExists is returned when a battle's outcome was already recorded.
var ErrOutcomeExists = errors.New("battle outcome already recorded")

// Participant is the persisted end-of-battle snapshot of one combatant.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Faction   string `json:"faction"`
	Rank      int    `json:"rank"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
	Defeated  bool   `json:"defeated"`
}

// OutcomeRecord is one row of battle_outcomes.
type OutcomeRecord struct {
	BattleID     string
	Outcome      string
	Turns        int
	Events       int
	Participants []Participant
	RecordedAt   time.Time
}

// OutcomeRepository stores finished battles. It implements battle.OutcomeHandler.
type OutcomeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewOutcomeRepository creates an OutcomeRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; logger must be non-nil.
func NewOutcomeRepository(db *pgxpool.Pool, logger *zap.Logger) *OutcomeRepository {
	return &OutcomeRepository{db: db, logger: logger}
}

// OnBattleEnd records result as a new battle_outcomes row.
//
// Precondition: result must be non-nil with a UUID BattleID.
// Postcondition: The row exists, or ErrOutcomeExists is returned for a duplicate battle ID.
func (r *OutcomeRepository) OnBattleEnd(ctx context.Context, result *battle.Result) error {
	if result == nil {
		return errors.New("recording outcome: nil result")
	}
	rec := RecordFromResult(result)

	_, err := r.db.Exec(ctx,
		`INSERT INTO battle_outcomes (battle_id, outcome, turns, events, participants)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.BattleID, rec.Outcome, rec.Turns, rec.Events, rec.Participants,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrOutcomeExists
		}
		return fmt.Errorf("inserting battle outcome: %w", err)
	}

	r.logger.Info("battle outcome recorded",
		zap.String("battle_id", rec.BattleID),
		zap.String("outcome", rec.Outcome),
		zap.Int("turns", rec.Turns),
	)
	return nil
}

// Get retrieves the outcome recorded for battleID.
//
// Postcondition: Returns the record or ErrOutcomeNotFound.
func (r *OutcomeRepository) Get(ctx context.Context, battleID string) (OutcomeRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT battle_id::text, outcome, turns, events, participants, recorded_at
		 FROM battle_outcomes WHERE battle_id = $1`,
		battleID,
	)
	rec, err := scanOutcome(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OutcomeRecord{}, ErrOutcomeNotFound
		}
		return OutcomeRecord{}, fmt.Errorf("querying battle outcome: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit outcomes, newest first.
//
// Precondition: limit must be > 0.
func (r *OutcomeRepository) Recent(ctx context.Context, limit int) ([]OutcomeRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0, got %d", limit)
	}
	rows, err := r.db.Query(ctx,
		`SELECT battle_id::text, outcome, turns, events, participants, recorded_at
		 FROM battle_outcomes ORDER BY recorded_at DESC, battle_id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		rec, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle outcome: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Tally counts recorded outcomes by result ("victory" / "defeat").
func (r *OutcomeRepository) Tally(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT outcome, COUNT(*) FROM battle_outcomes GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("tallying outcomes: %w", err)
	}
	defer rows.Close()

	tally := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning tally: %w", err)
		}
		tally[outcome] = n
	}
	return tally, rows.Err()
}

// RecordFromResult converts a finished battle into its persisted form.
//
// Precondition: result must be non-nil.
// Postcondition: Participants lists friendlies then hostiles in roster order.
func RecordFromResult(result *battle.Result) OutcomeRecord {
	parts := make([]Participant, 0, len(result.Friendlies)+len(result.Hostiles))
	for _, a := range result.Friendlies {
		parts = append(parts, participantOf(a))
	}
	for _, a := range result.Hostiles {
		parts = append(parts, participantOf(a))
	}
	return OutcomeRecord{
		BattleID:     result.BattleID,
		Outcome:      result.Outcome.String(),
		Turns:        result.Turns,
		Events:       len(result.Log),
		Participants: parts,
	}
}

func participantOf(a *actor.Actor) Participant {
	return Participant{
		ID:        a.ID,
		Name:      a.Name,
		Faction:   a.Faction.String(),
		Rank:      a.Rank,
		Health:    a.Health,
		MaxHealth: a.MaxHealth(),
		Defeated:  a.IsDefeated(),
	}
}

func scanOutcome(row pgx.Row) (OutcomeRecord, error) {
	var rec OutcomeRecord
	err := row.Scan(&rec.BattleID, &rec.Outcome, &rec.Turns, &rec.Events, &rec.Participants, &rec.RecordedAt)
	return rec, err
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
