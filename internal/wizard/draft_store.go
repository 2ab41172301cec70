package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/storage"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

// DraftStore persists the non-file portion of a draft to session-scoped
// storage. Writes triggered by field edits are debounced; step transitions
// and submits use the immediate path. Document bytes never pass through
// here; IntakeDraft only carries metadata by construction.
type DraftStore struct {
	sessions storage.SessionStore
	ttl      time.Duration
	debounce time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewDraftStore(sessions storage.SessionStore, ttl, debounce time.Duration, log *zap.Logger) *DraftStore {
	return &DraftStore{
		sessions: sessions,
		ttl:      ttl,
		debounce: debounce,
		log:      log,
		timers:   make(map[string]*time.Timer),
	}
}

func draftKey(sessionID string) string {
	return fmt.Sprintf("intake:draft:%s", sessionID)
}

func (s *DraftStore) Load(ctx context.Context, sessionID string) (*domain.IntakeDraft, error) {
	data, err := s.sessions.Get(ctx, draftKey(sessionID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, customError.WrapDraftNotFound(sessionID)
	}
	if err != nil {
		return nil, customError.WrapStorageError(err)
	}

	var draft domain.IntakeDraft
	if err := json.Unmarshal([]byte(data), &draft); err != nil {
		return nil, customError.WrapStorageError(err)
	}
	if draft.Documents == nil {
		draft.Documents = make(map[string]*domain.DocumentMeta)
	}
	return &draft, nil
}

func (s *DraftStore) Save(ctx context.Context, sessionID string, draft *domain.IntakeDraft) error {
	draft.UpdatedAt = time.Now()
	data, err := json.Marshal(draft)
	if err != nil {
		return customError.WrapStorageError(err)
	}
	if err := s.sessions.Set(ctx, draftKey(sessionID), string(data), s.ttl); err != nil {
		return customError.WrapStorageError(err)
	}
	return nil
}

// ScheduleSave arms (or re-arms) the per-session debounce timer with a copy
// of the draft taken now. Concurrent edits in two tabs of the same session
// race on this timer with last-write-wins semantics; accepted limitation.
func (s *DraftStore) ScheduleSave(sessionID string, draft *domain.IntakeDraft) {
	snapshot := *draft
	if draft.Documents != nil {
		snapshot.Documents = make(map[string]*domain.DocumentMeta, len(draft.Documents))
		for slot, meta := range draft.Documents {
			snapshot.Documents[slot] = meta
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[sessionID]; ok {
		timer.Stop()
	}
	s.timers[sessionID] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, sessionID)
		s.mu.Unlock()

		if err := s.Save(context.Background(), sessionID, &snapshot); err != nil {
			s.log.Warn("debounced draft save failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	})
}

// Clear cancels any pending debounced write and removes the persisted draft.
func (s *DraftStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if timer, ok := s.timers[sessionID]; ok {
		timer.Stop()
		delete(s.timers, sessionID)
	}
	s.mu.Unlock()

	if err := s.sessions.Delete(ctx, draftKey(sessionID)); err != nil {
		return customError.WrapStorageError(err)
	}
	return nil
}
