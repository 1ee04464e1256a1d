package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
)

type Repository interface {
	GetPreference(ctx context.Context, userID int64) (*LearnedPreference, error)
	UpsertPreference(ctx context.Context, p *LearnedPreference) error

	// Swipe-history reads against the shared signal log
	CountRightSwipes(ctx context.Context, userID int64) (int64, error)
	ListRightSwipeContexts(ctx context.Context, userID int64) ([]signals.SwipeContext, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetPreference(ctx context.Context, userID int64) (*LearnedPreference, error) {
	var p LearnedPreference
	query := `SELECT * FROM learned_preferences WHERE user_id = $1`

	err := r.db.GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// UpsertPreference overwrites the whole snapshot; preferences are not versioned
func (r *postgresRepository) UpsertPreference(ctx context.Context, p *LearnedPreference) error {
	query := `
        INSERT INTO learned_preferences (
            user_id, age_min, age_max, max_distance_km,
            interest_affinities, confidence, swipe_sample, learned_at
        ) VALUES (
            :user_id, :age_min, :age_max, :max_distance_km,
            :interest_affinities, :confidence, :swipe_sample, :learned_at
        )
        ON CONFLICT (user_id) DO UPDATE SET
            age_min = EXCLUDED.age_min,
            age_max = EXCLUDED.age_max,
            max_distance_km = EXCLUDED.max_distance_km,
            interest_affinities = EXCLUDED.interest_affinities,
            confidence = EXCLUDED.confidence,
            swipe_sample = EXCLUDED.swipe_sample,
            learned_at = EXCLUDED.learned_at
    `

	_, err := r.db.NamedExecContext(ctx, query, p)
	return err
}

func (r *postgresRepository) CountRightSwipes(ctx context.Context, userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM signals WHERE actor_id = $1 AND signal_type = $2`

	err := r.db.GetContext(ctx, &count, query, userID, signals.SignalSwipeRight)
	return count, err
}

func (r *postgresRepository) ListRightSwipeContexts(ctx context.Context, userID int64) ([]signals.SwipeContext, error) {
	var rows []json.RawMessage
	query := `
        SELECT metadata FROM signals
        WHERE actor_id = $1 AND signal_type = $2 AND metadata IS NOT NULL
        ORDER BY occurred_at ASC
    `

	if err := r.db.SelectContext(ctx, &rows, query, userID, signals.SignalSwipeRight); err != nil {
		return nil, err
	}

	contexts := make([]signals.SwipeContext, 0, len(rows))
	for _, raw := range rows {
		var sc signals.SwipeContext
		if err := json.Unmarshal(raw, &sc); err != nil {
			continue
		}
		contexts = append(contexts, sc)
	}

	return contexts, nil
}

// MemoryRepository is an in-memory Repository for tests and development mode
type MemoryRepository struct {
	mu       sync.RWMutex
	prefs    map[int64]*LearnedPreference
	Swipes   map[int64]int64
	Contexts map[int64][]signals.SwipeContext
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		prefs:    make(map[int64]*LearnedPreference),
		Swipes:   make(map[int64]int64),
		Contexts: make(map[int64][]signals.SwipeContext),
	}
}

func (r *MemoryRepository) GetPreference(ctx context.Context, userID int64) (*LearnedPreference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) UpsertPreference(ctx context.Context, p *LearnedPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.prefs[p.UserID] = &cp
	return nil
}

func (r *MemoryRepository) CountRightSwipes(ctx context.Context, userID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Swipes[userID], nil
}

func (r *MemoryRepository) ListRightSwipeContexts(ctx context.Context, userID int64) ([]signals.SwipeContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Contexts[userID], nil
}
