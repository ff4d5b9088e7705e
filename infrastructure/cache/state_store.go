package cache

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// StateTTL bounds how long an issued handshake state stays valid.
const StateTTL = 10 * time.Minute

const stateKeyPrefix = "oauth_state:"

func newStateValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// StateStore keeps handshake states in Redis so callbacks can land on any
// instance behind a load balancer. Consume uses GETDEL for single use.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client, ttl: StateTTL}
}

func (s *StateStore) Issue(ctx context.Context, userID, codeVerifier string) (*model.HandshakeState, error) {
	value, err := newStateValue()
	if err != nil {
		return nil, err
	}
	state := &model.HandshakeState{
		StateValue:   value,
		UserID:       userID,
		CodeVerifier: codeVerifier,
		CreatedAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+value, payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

func (s *StateStore) Consume(ctx context.Context, stateValue string) (*model.HandshakeState, error) {
	payload, err := s.client.GetDel(ctx, stateKeyPrefix+stateValue).Result()
	if err == redis.Nil {
		return nil, apperrors.ErrInvalidOrExpiredState
	}
	if err != nil {
		return nil, fmt.Errorf("consume state: %w", err)
	}
	state := &model.HandshakeState{}
	if err := json.Unmarshal([]byte(payload), state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	state.StateValue = stateValue
	return state, nil
}

// MemoryStateStore is the single-instance fallback used when Redis is not
// configured. Entries expire lazily on Consume.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
	ttl    time.Duration
}

type memoryState struct {
	state     model.HandshakeState
	expiresAt time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]memoryState), ttl: StateTTL}
}

func (s *MemoryStateStore) Issue(_ context.Context, userID, codeVerifier string) (*model.HandshakeState, error) {
	value, err := newStateValue()
	if err != nil {
		return nil, err
	}
	state := model.HandshakeState{
		StateValue:   value,
		UserID:       userID,
		CodeVerifier: codeVerifier,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked()
	s.states[value] = memoryState{state: state, expiresAt: time.Now().Add(s.ttl)}
	out := state
	return &out, nil
}

func (s *MemoryStateStore) Consume(_ context.Context, stateValue string) (*model.HandshakeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.states[stateValue]
	if !ok {
		return nil, apperrors.ErrInvalidOrExpiredState
	}
	delete(s.states, stateValue)
	if time.Now().After(entry.expiresAt) {
		return nil, apperrors.ErrInvalidOrExpiredState
	}
	out := entry.state
	return &out, nil
}

func (s *MemoryStateStore) purgeExpiredLocked() {
	now := time.Now()
	for k, v := range s.states {
		if now.After(v.expiresAt) {
			delete(s.states, k)
		}
	}
}
