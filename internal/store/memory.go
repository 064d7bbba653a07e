// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/jason-s-yu/minigames/internal/models"
)

type docKind uint8

const (
	kindSession docKind = iota
	kindInvite
	kindQuota
)

type docKey struct {
	kind docKind
	id   uuid.UUID
}

// doc is a committed document. Version 0 means absent.
type doc struct {
	version uint64
	value   any
}

// Memory is an in-process Store with the same optimistic concurrency contract as the
// Postgres store. It backs tests and single-node development runs.
type Memory struct {
	mu       sync.Mutex
	docs     map[docKey]doc
	profiles map[uuid.UUID]models.UserProfile
	clock    uint64
	attempts int
}

// NewMemory creates an empty store. attempts <= 0 uses DefaultAttempts.
func NewMemory(attempts int) *Memory {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &Memory{
		docs:     make(map[docKey]doc),
		profiles: make(map[uuid.UUID]models.UserProfile),
		attempts: attempts,
	}
}

// PutProfile seeds the profile the social app would own.
func (m *Memory) PutProfile(p models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// RunInTx implements Store.
func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; attempt < m.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{
			m:      m,
			reads:  make(map[docKey]uint64),
			writes: make(map[docKey]any),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if m.commit(tx) {
			return nil
		}
	}
	return ErrConflict
}

// commit validates the read set and applies the writes atomically.
func (m *Memory) commit(tx *memTx) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, seen := range tx.reads {
		if m.docs[k].version != seen {
			return false
		}
	}
	for k, v := range tx.writes {
		if v == nil {
			delete(m.docs, k)
			continue
		}
		m.clock++
		m.docs[k] = doc{version: m.clock, value: v}
	}
	return true
}

// SessionsWithLongLogs implements Store.
func (m *Memory) SessionsWithLongLogs(_ context.Context, threshold int) ([]uuid.UUID, error) {
	return m.scanSessions(func(s *models.GameSession) bool {
		return len(s.MoveLog) > threshold
	}), nil
}

// IdleSessions implements Store.
func (m *Memory) IdleSessions(_ context.Context, updatedBefore time.Time) ([]uuid.UUID, error) {
	return m.scanSessions(func(s *models.GameSession) bool {
		return s.Status == models.SessionActive && s.Gameover == nil && s.UpdatedAt.Before(updatedBefore)
	}), nil
}

// PendingInvitesBefore implements Store.
func (m *Memory) PendingInvitesBefore(_ context.Context, createdBefore time.Time) ([]uuid.UUID, error) {
	return m.scanInvites(func(inv *models.GameInvite) bool {
		return inv.Status == models.InvitePending && inv.CreatedAt.Before(createdBefore)
	}), nil
}

// InvitesWithStatus implements Store.
func (m *Memory) InvitesWithStatus(_ context.Context, status models.InviteStatus) ([]uuid.UUID, error) {
	return m.scanInvites(func(inv *models.GameInvite) bool {
		return inv.Status == status
	}), nil
}

func (m *Memory) scanSessions(keep func(*models.GameSession) bool) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for k, d := range m.docs {
		if k.kind == kindSession && keep(d.value.(*models.GameSession)) {
			ids = append(ids, k.id)
		}
	}
	sortIDs(ids)
	return ids
}

func (m *Memory) scanInvites(keep func(*models.GameInvite) bool) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for k, d := range m.docs {
		if k.kind == kindInvite && keep(d.value.(*models.GameInvite)) {
			ids = append(ids, k.id)
		}
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

// memTx buffers writes and records the version of every document it reads.
type memTx struct {
	m      *Memory
	reads  map[docKey]uint64
	writes map[docKey]any
}

// get returns the transaction's view of k: its own write if any, else the committed
// value, recording the version read.
func (tx *memTx) get(k docKey) (any, bool) {
	if v, ok := tx.writes[k]; ok {
		return v, v != nil
	}
	tx.m.mu.Lock()
	d, ok := tx.m.docs[k]
	tx.m.mu.Unlock()
	if _, seen := tx.reads[k]; !seen {
		tx.reads[k] = d.version
	}
	return d.value, ok
}

func (tx *memTx) GetSession(_ context.Context, id uuid.UUID) (*models.GameSession, error) {
	v, ok := tx.get(docKey{kindSession, id})
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return v.(*models.GameSession).Clone(), nil
}

// FindWaitingSession only adds the session it returns to the read set. An empty
// result records nothing, so two concurrent callers that both see no waiting
// session may both create one.
func (tx *memTx) FindWaitingSession(ctx context.Context, gameID string, exclude uuid.UUID) (*models.GameSession, error) {
	candidates := make(map[uuid.UUID]*models.GameSession)
	tx.m.mu.Lock()
	for k, d := range tx.m.docs {
		if k.kind == kindSession {
			candidates[k.id] = d.value.(*models.GameSession)
		}
	}
	tx.m.mu.Unlock()
	for k, v := range tx.writes {
		if k.kind != kindSession {
			continue
		}
		if v == nil {
			delete(candidates, k.id)
		} else {
			candidates[k.id] = v.(*models.GameSession)
		}
	}

	var matches []*models.GameSession
	for _, s := range candidates {
		if s.GameID == gameID && s.IsWaiting() && s.Players[0] != exclude {
			matches = append(matches, s)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})

	// Re-read through get so the version validated at commit is the one checked here.
	for _, c := range matches {
		s, err := tx.GetSession(ctx, c.ID)
		if err != nil {
			continue
		}
		if s.IsWaiting() && s.Players[0] != exclude {
			return s, nil
		}
	}
	return nil, nil
}

func (tx *memTx) PutSession(_ context.Context, s *models.GameSession) error {
	tx.writes[docKey{kindSession, s.ID}] = s.Clone()
	return nil
}

func (tx *memTx) DeleteSession(_ context.Context, id uuid.UUID) error {
	tx.writes[docKey{kindSession, id}] = nil
	return nil
}

func (tx *memTx) GetInvite(_ context.Context, id uuid.UUID) (*models.GameInvite, error) {
	v, ok := tx.get(docKey{kindInvite, id})
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return v.(*models.GameInvite).Clone(), nil
}

func (tx *memTx) PutInvite(_ context.Context, inv *models.GameInvite) error {
	tx.writes[docKey{kindInvite, inv.ID}] = inv.Clone()
	return nil
}

func (tx *memTx) GetQuota(_ context.Context, uid uuid.UUID) (*models.UserQuota, error) {
	v, ok := tx.get(docKey{kindQuota, uid})
	if !ok {
		return &models.UserQuota{UserID: uid}, nil
	}
	return cloneQuota(v.(*models.UserQuota)), nil
}

func (tx *memTx) PutQuota(_ context.Context, q *models.UserQuota) error {
	tx.writes[docKey{kindQuota, q.UserID}] = cloneQuota(q)
	return nil
}

func (tx *memTx) GetProfile(_ context.Context, uid uuid.UUID) (models.UserProfile, error) {
	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	if p, ok := tx.m.profiles[uid]; ok {
		return p, nil
	}
	return models.UserProfile{ID: uid, TimeZone: "UTC"}, nil
}

func cloneQuota(q *models.UserQuota) *models.UserQuota {
	c := *q
	if q.LastInviteAt != nil {
		t := *q.LastInviteAt
		c.LastInviteAt = &t
	}
	if q.LastGamePlayedAt != nil {
		t := *q.LastGamePlayedAt
		c.LastGamePlayedAt = &t
	}
	return &c
}
