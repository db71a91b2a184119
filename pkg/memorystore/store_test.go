package memorystore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(i int) entity.Exchange {
	return entity.Exchange{
		RequestSummary: fmt.Sprintf("question %d", i),
		AnswerSummary:  fmt.Sprintf("answer %d", i),
		CreatedAt:      time.Now(),
	}
}

func TestAppendAndRead(t *testing.T) {
	store := NewStore(10, 2000)
	session := uuid.New()

	store.Append(session, exchange(1))
	store.Append(session, exchange(2))

	got := store.Read(session)
	require.Len(t, got, 2)
	assert.Equal(t, "question 1", got[0].RequestSummary)
	assert.Equal(t, "question 2", got[1].RequestSummary)
}

func TestMaxItemsEvictsOldestFirst(t *testing.T) {
	store := NewStore(3, 100000)
	session := uuid.New()

	for i := 1; i <= 5; i++ {
		store.Append(session, exchange(i))
	}

	got := store.Read(session)
	require.Len(t, got, 3)
	assert.Equal(t, "question 3", got[0].RequestSummary)
	assert.Equal(t, "question 5", got[2].RequestSummary)
}

func TestTokenBudgetEvicts(t *testing.T) {
	// Each exchange is 4 words ~ 5 tokens; a budget of 12 holds two.
	store := NewStore(100, 12)
	session := uuid.New()

	for i := 1; i <= 4; i++ {
		store.Append(session, exchange(i))
	}

	got := store.Read(session)
	assert.LessOrEqual(t, len(got), 2)
	assert.Equal(t, "question 4", got[len(got)-1].RequestSummary)
}

func TestBudgetNeverEvictsLastExchange(t *testing.T) {
	store := NewStore(10, 1) // budget smaller than any single exchange
	session := uuid.New()

	store.Append(session, exchange(1))

	got := store.Read(session)
	require.Len(t, got, 1)
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewStore(10, 2000)
	a, b := uuid.New(), uuid.New()

	store.Append(a, exchange(1))
	store.Append(b, exchange(2))

	assert.Len(t, store.Read(a), 1)
	assert.Len(t, store.Read(b), 1)
	assert.Equal(t, "question 1", store.Read(a)[0].RequestSummary)
}

func TestReadReturnsCopy(t *testing.T) {
	store := NewStore(10, 2000)
	session := uuid.New()
	store.Append(session, exchange(1))

	got := store.Read(session)
	got[0].RequestSummary = "mutated"

	assert.Equal(t, "question 1", store.Read(session)[0].RequestSummary)
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore(50, 100000)
	session := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Append(session, exchange(i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Read(session), 40)
}
