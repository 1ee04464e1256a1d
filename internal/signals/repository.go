package signals

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Signal log (append-only)
	InsertSignal(ctx context.Context, s *Signal) error
	ListSignalsByActor(ctx context.Context, actorID int64, since time.Time) ([]*Signal, error)
	ListSignalsByTarget(ctx context.Context, targetID int64, since time.Time) ([]*Signal, error)
	CountSignalsByActorAndType(ctx context.Context, actorID int64, t SignalType) (int64, error)

	// Behavior profiles (snapshot replace)
	GetBehaviorProfile(ctx context.Context, userID int64) (*BehaviorProfile, error)
	UpsertBehaviorProfile(ctx context.Context, p *BehaviorProfile) error

	// Batch support
	ListActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) InsertSignal(ctx context.Context, s *Signal) error {
	query := `
        INSERT INTO signals (id, actor_id, target_id, signal_type, weight, metadata, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := r.db.ExecContext(
		ctx, query,
		s.ID, s.ActorID, s.TargetID, s.Type, s.Weight, s.Metadata, s.OccurredAt,
	)

	return err
}

func (r *postgresRepository) ListSignalsByActor(ctx context.Context, actorID int64, since time.Time) ([]*Signal, error) {
	var out []*Signal
	query := `
        SELECT id, actor_id, target_id, signal_type, weight, metadata, occurred_at
        FROM signals
        WHERE actor_id = $1 AND occurred_at >= $2
        ORDER BY occurred_at ASC
    `

	err := r.db.SelectContext(ctx, &out, query, actorID, since)
	return out, err
}

func (r *postgresRepository) ListSignalsByTarget(ctx context.Context, targetID int64, since time.Time) ([]*Signal, error) {
	var out []*Signal
	query := `
        SELECT id, actor_id, target_id, signal_type, weight, metadata, occurred_at
        FROM signals
        WHERE target_id = $1 AND occurred_at >= $2
        ORDER BY occurred_at ASC
    `

	err := r.db.SelectContext(ctx, &out, query, targetID, since)
	return out, err
}

func (r *postgresRepository) CountSignalsByActorAndType(ctx context.Context, actorID int64, t SignalType) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM signals WHERE actor_id = $1 AND signal_type = $2`

	err := r.db.GetContext(ctx, &count, query, actorID, t)
	return count, err
}

func (r *postgresRepository) GetBehaviorProfile(ctx context.Context, userID int64) (*BehaviorProfile, error) {
	var p BehaviorProfile
	query := `SELECT * FROM behavior_profiles WHERE user_id = $1`

	err := r.db.GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// UpsertBehaviorProfile replaces the whole snapshot in one statement so
// concurrent readers never observe a partially-updated aggregate.
func (r *postgresRepository) UpsertBehaviorProfile(ctx context.Context, p *BehaviorProfile) error {
	query := `
        INSERT INTO behavior_profiles (
            user_id, profile_views, swipes_right, swipes_left,
            messages_sent, messages_received, message_replies,
            paid_interactions, meetings_booked, matches, right_swipes_received,
            response_rate, match_conversion_rate, activity_recency_score,
            last_signal_at, last_recomputed_at
        ) VALUES (
            :user_id, :profile_views, :swipes_right, :swipes_left,
            :messages_sent, :messages_received, :message_replies,
            :paid_interactions, :meetings_booked, :matches, :right_swipes_received,
            :response_rate, :match_conversion_rate, :activity_recency_score,
            :last_signal_at, :last_recomputed_at
        )
        ON CONFLICT (user_id) DO UPDATE SET
            profile_views = EXCLUDED.profile_views,
            swipes_right = EXCLUDED.swipes_right,
            swipes_left = EXCLUDED.swipes_left,
            messages_sent = EXCLUDED.messages_sent,
            messages_received = EXCLUDED.messages_received,
            message_replies = EXCLUDED.message_replies,
            paid_interactions = EXCLUDED.paid_interactions,
            meetings_booked = EXCLUDED.meetings_booked,
            matches = EXCLUDED.matches,
            right_swipes_received = EXCLUDED.right_swipes_received,
            response_rate = EXCLUDED.response_rate,
            match_conversion_rate = EXCLUDED.match_conversion_rate,
            activity_recency_score = EXCLUDED.activity_recency_score,
            last_signal_at = EXCLUDED.last_signal_at,
            last_recomputed_at = EXCLUDED.last_recomputed_at
    `

	_, err := r.db.NamedExecContext(ctx, query, p)
	return err
}

func (r *postgresRepository) ListActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error) {
	var ids []int64
	query := `
        SELECT DISTINCT actor_id FROM signals WHERE occurred_at >= $1
    `

	err := r.db.SelectContext(ctx, &ids, query, since)
	return ids, err
}
