package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func turn(msg string) Turn {
	return Turn{
		Timestamp:   time.Now(),
		UserMessage: msg,
		BotResponse: "réponse à " + msg,
	}
}

func TestAddTurnEvictsBeyondCap(t *testing.T) {
	s := NewStore(5, 100, zaptest.NewLogger(t))

	for i := 0; i < 7; i++ {
		s.AddTurn("alice", turn(fmt.Sprintf("m%d", i)))
	}

	history := s.GetHistory("alice")
	require.Len(t, history, 5)
	// Oldest first, the two earliest turns evicted.
	for i, tn := range history {
		assert.Equal(t, fmt.Sprintf("m%d", i+2), tn.UserMessage)
	}
}

func TestHistoriesAreIsolatedPerUser(t *testing.T) {
	s := NewStore(5, 100, zaptest.NewLogger(t))

	s.AddTurn("alice", turn("question d'alice"))
	s.AddTurn("bob", turn("question de bob"))

	alice := s.GetHistory("alice")
	bob := s.GetHistory("bob")
	require.Len(t, alice, 1)
	require.Len(t, bob, 1)
	assert.Equal(t, "question d'alice", alice[0].UserMessage)
	assert.Equal(t, "question de bob", bob[0].UserMessage)
}

func TestGetHistoryUnknownUserIsEmpty(t *testing.T) {
	s := NewStore(5, 100, zaptest.NewLogger(t))

	history := s.GetHistory("nobody")
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestClearDropsUserHistory(t *testing.T) {
	s := NewStore(5, 100, zaptest.NewLogger(t))

	s.AddTurn("alice", turn("m0"))
	s.AddTurn("bob", turn("m0"))
	s.Clear("alice")

	assert.Empty(t, s.GetHistory("alice"))
	assert.Len(t, s.GetHistory("bob"), 1)
}

func TestUserCapEvictsLeastRecentlyActive(t *testing.T) {
	s := NewStore(5, 2, zaptest.NewLogger(t))

	s.AddTurn("alice", turn("m0"))
	s.AddTurn("bob", turn("m0"))
	s.AddTurn("carol", turn("m0"))

	assert.Empty(t, s.GetHistory("alice"))
	assert.Len(t, s.GetHistory("bob"), 1)
	assert.Len(t, s.GetHistory("carol"), 1)
	assert.Equal(t, 2, s.Stats().ActiveUsers)
}

func TestStatsCountsTurns(t *testing.T) {
	s := NewStore(5, 100, zaptest.NewLogger(t))

	s.AddTurn("alice", turn("m0"))
	s.AddTurn("alice", turn("m1"))
	s.AddTurn("bob", turn("m0"))

	stats := s.Stats()
	assert.Equal(t, int64(3), stats.TotalTurns)
	assert.Equal(t, 2, stats.ActiveUsers)
}

func TestNonPositiveCapsFallBackToDefaults(t *testing.T) {
	s := NewStore(0, 0, zaptest.NewLogger(t))

	for i := 0; i < DefaultMaxTurns+3; i++ {
		s.AddTurn("alice", turn(fmt.Sprintf("m%d", i)))
	}
	assert.Len(t, s.GetHistory("alice"), DefaultMaxTurns)
}
