package memorystore

import (
	"strings"
	"sync"
	"time"

	"ai-orchestrator-be/internal/entity"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Store is the bounded per-session conversation memory. Appends for one
// session are serialized behind that session's lock; different sessions
// never contend. Idle sessions expire via the underlying cache.
type Store struct {
	sessions    *gocache.Cache
	maxItems    int
	tokenBudget int

	mu sync.Mutex // guards create-if-absent only
}

type sessionMemory struct {
	mu        sync.Mutex
	exchanges []entity.Exchange
	tokens    int
}

func NewStore(maxItems, tokenBudget int) *Store {
	return &Store{
		sessions:    gocache.New(1*time.Hour, 10*time.Minute),
		maxItems:    maxItems,
		tokenBudget: tokenBudget,
	}
}

func (s *Store) session(sessionId uuid.UUID) *sessionMemory {
	key := sessionId.String()
	if x, found := s.sessions.Get(key); found {
		return x.(*sessionMemory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if x, found := s.sessions.Get(key); found {
		return x.(*sessionMemory)
	}
	mem := &sessionMemory{}
	s.sessions.Set(key, mem, gocache.DefaultExpiration)
	return mem
}

// Append records one completed exchange, evicting oldest entries first when
// the item count or token budget is exceeded.
func (s *Store) Append(sessionId uuid.UUID, exchange entity.Exchange) {
	mem := s.session(sessionId)

	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.exchanges = append(mem.exchanges, exchange)
	mem.tokens += exchangeTokens(exchange)

	for len(mem.exchanges) > s.maxItems || (mem.tokens > s.tokenBudget && len(mem.exchanges) > 1) {
		evicted := mem.exchanges[0]
		mem.exchanges = mem.exchanges[1:]
		mem.tokens -= exchangeTokens(evicted)
	}
}

// Read returns the session's exchanges, oldest first, within budget.
func (s *Store) Read(sessionId uuid.UUID) []entity.Exchange {
	mem := s.session(sessionId)

	mem.mu.Lock()
	defer mem.mu.Unlock()

	out := make([]entity.Exchange, len(mem.exchanges))
	copy(out, mem.exchanges)
	return out
}

// exchangeTokens approximates token count as word count * 4/3, close enough
// for budget enforcement against the generation model's limits.
func exchangeTokens(e entity.Exchange) int {
	words := len(strings.Fields(e.RequestSummary)) + len(strings.Fields(e.AnswerSummary))
	return words * 4 / 3
}
