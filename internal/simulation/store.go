package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/storage"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

// Store keeps at most one live snapshot per session. Every save overwrites
// the previous one, there is no history.
type Store struct {
	sessions storage.SessionStore
	ttl      time.Duration
}

func NewStore(sessions storage.SessionStore, ttl time.Duration) *Store {
	return &Store{sessions: sessions, ttl: ttl}
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("simulation:snapshot:%s", sessionID)
}

func (s *Store) Save(ctx context.Context, sessionID string, snapshot *domain.LoanSimulationSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return customError.WrapStorageError(err)
	}
	if err := s.sessions.Set(ctx, snapshotKey(sessionID), string(data), s.ttl); err != nil {
		return customError.WrapStorageError(err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.LoanSimulationSnapshot, error) {
	data, err := s.sessions.Get(ctx, snapshotKey(sessionID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, customError.WrapSnapshotNotFound(sessionID)
	}
	if err != nil {
		return nil, customError.WrapStorageError(err)
	}

	var snapshot domain.LoanSimulationSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, customError.WrapStorageError(err)
	}
	return &snapshot, nil
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, snapshotKey(sessionID)); err != nil {
		return customError.WrapStorageError(err)
	}
	return nil
}

// Service couples the pure engine with the snapshot slot so that every
// successful computation overwrites the session's snapshot.
type Service struct {
	engine *Engine
	store  *Store
}

func NewService(engine *Engine, store *Store) *Service {
	return &Service{engine: engine, store: store}
}

func (s *Service) Simulate(ctx context.Context, sessionID string, in Input) (*domain.LoanSimulationSnapshot, error) {
	snapshot := s.engine.Compute(in)
	if err := s.store.Save(ctx, sessionID, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Service) LastSnapshot(ctx context.Context, sessionID string) (*domain.LoanSimulationSnapshot, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.store.Clear(ctx, sessionID)
}
