package thread

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/rag-chat-client/pkg/models"
	"github.com/andrew/rag-chat-client/pkg/session"
)

// recordingStore wraps a MemoryStore and counts writes
type recordingStore struct {
	*session.MemoryStore
	mu      sync.Mutex
	saves   int
	clears  int
	failing bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: session.NewMemoryStore(quietLogger())}
}

func (s *recordingStore) Save(messages []models.Message) error {
	s.mu.Lock()
	s.saves++
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(messages)
}

func (s *recordingStore) Clear() error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return s.MemoryStore.Clear()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestThread_AppendScenario(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	th := New(newRecordingStore(), WithClock(fixedClock(at)), WithLogger(quietLogger()))

	user := th.AppendUserMessage("alice", "hello")
	assert.Equal(t, "alice", user.Sender)
	assert.Equal(t, "hello", user.Text)
	assert.False(t, user.Confirmed)
	assert.Equal(t, at, user.CreatedAt)
	require.Len(t, th.Messages(), 1)

	reply := th.AppendAssistantMessage("hi there")
	assert.True(t, reply.IsAssistant())
	assert.False(t, reply.Confirmed)

	msgs := th.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "hi there", msgs[1].Text)
}

func TestThread_IDsIncreaseWhenClockStalls(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	th := New(newRecordingStore(), WithClock(fixedClock(at)))

	a := th.AppendUserMessage("alice", "one")
	b := th.AppendUserMessage("alice", "two")
	c := th.AppendAssistantMessage("three")

	assert.Equal(t, at.UnixMilli(), a.ID)
	assert.Equal(t, a.ID+1, b.ID)
	assert.Equal(t, b.ID+1, c.ID)
}

func TestThread_UserMessageCountMatchesAppends(t *testing.T) {
	th := New(newRecordingStore())
	for i := 0; i < 25; i++ {
		th.AppendUserMessage("alice", "q")
		if i%3 == 0 {
			th.AppendAssistantMessage("a")
		}
	}

	users := 0
	for _, m := range th.Messages() {
		if m.Sender == "alice" {
			users++
		}
	}
	assert.Equal(t, 25, users)
}

func TestThread_SavesAfterEveryChange(t *testing.T) {
	store := newRecordingStore()
	th := New(store)

	m := th.AppendUserMessage("alice", "hello")
	th.AppendAssistantMessage("hi")
	_, err := th.UpdateMessage(m.ID, models.Confirm())
	require.NoError(t, err)

	assert.Equal(t, 3, store.saves)
	assert.Equal(t, th.Messages(), store.Load())

	require.NoError(t, th.Reset())
	assert.Equal(t, 1, store.clears)
	assert.Empty(t, store.Load())
	assert.Equal(t, 0, th.Len())
}

func TestThread_SaveFailureKeepsChange(t *testing.T) {
	store := newRecordingStore()
	store.failing = true
	th := New(store, WithLogger(quietLogger()))

	th.AppendUserMessage("alice", "hello")
	assert.Equal(t, 1, th.Len())
}

func TestThread_RestoresFromStore(t *testing.T) {
	store := newRecordingStore()
	first := New(store)
	a := first.AppendUserMessage("alice", "hello")
	first.AppendAssistantMessage("hi there")

	second := New(store, WithClock(fixedClock(time.UnixMilli(a.ID-1000))))
	require.Equal(t, first.Messages(), second.Messages())

	// ids continue past the restored ones even if the clock is behind
	next := second.AppendUserMessage("alice", "again")
	assert.Greater(t, next.ID, first.Messages()[1].ID)
}

func TestThread_UpdateMessage(t *testing.T) {
	th := New(newRecordingStore())
	th.AppendUserMessage("alice", "hello")
	reply := th.AppendAssistantMessage("hi there")

	updated, err := th.UpdateMessage(reply.ID, models.Confirm())
	require.NoError(t, err)
	assert.True(t, updated.Confirmed)
	assert.Equal(t, models.SenderAssistant, updated.Sender)

	got, ok := th.Get(reply.ID)
	require.True(t, ok)
	assert.True(t, got.Confirmed)

	text := "edited"
	updated, err = th.UpdateMessage(reply.ID, models.Patch{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Text)
	assert.True(t, updated.Confirmed)

	unconfirm := false
	_, err = th.UpdateMessage(reply.ID, models.Patch{Confirmed: &unconfirm})
	assert.ErrorIs(t, err, models.ErrUnconfirm)
	got, _ = th.Get(reply.ID)
	assert.True(t, got.Confirmed)
}

func TestThread_UpdateMissingMessage(t *testing.T) {
	store := newRecordingStore()
	th := New(store)
	th.AppendUserMessage("alice", "hello")
	saves := store.saves

	_, err := th.UpdateMessage(42, models.Confirm())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, saves, store.saves)
}

func TestThread_LastFrom(t *testing.T) {
	th := New(newRecordingStore())
	_, ok := th.LastAssistant()
	assert.False(t, ok)

	th.AppendUserMessage("alice", "first")
	th.AppendAssistantMessage("answer one")
	th.AppendUserMessage("alice", "second")
	th.AppendUserMessage("bob", "not mine")

	last, ok := th.LastFrom("alice")
	require.True(t, ok)
	assert.Equal(t, "second", last.Text)

	answer, ok := th.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "answer one", answer.Text)
}

func TestThread_ObserversSeeAppendImmediately(t *testing.T) {
	th := New(newRecordingStore())

	var seen [][]models.Message
	th.Subscribe(func(msgs []models.Message) { seen = append(seen, msgs) })

	th.AppendUserMessage("alice", "hello")
	require.Len(t, seen, 1)
	require.Len(t, seen[0], 1)
	assert.Equal(t, "hello", seen[0][0].Text)

	require.NoError(t, th.Reset())
	require.Len(t, seen, 2)
	assert.Empty(t, seen[1])
}

func TestThread_MessagesReturnsCopy(t *testing.T) {
	th := New(newRecordingStore())
	th.AppendUserMessage("alice", "hello")

	msgs := th.Messages()
	msgs[0].Text = "mutated"
	assert.Equal(t, "hello", th.Messages()[0].Text)
}

func TestThread_ConcurrentAppends(t *testing.T) {
	th := New(newRecordingStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th.AppendUserMessage("alice", "q")
		}()
	}
	wg.Wait()

	msgs := th.Messages()
	require.Len(t, msgs, 50)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}
}

func TestThread_ObserversSeeChangesInOrder(t *testing.T) {
	th := New(newRecordingStore())
	first := th.AppendUserMessage("alice", "hello")

	// observers run one at a time, so no lock is needed here
	var lengths []int
	var confirmed []bool
	th.Subscribe(func(msgs []models.Message) {
		lengths = append(lengths, len(msgs))
		confirmed = append(confirmed, msgs[0].Confirmed)
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th.AppendAssistantMessage("answer")
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := th.UpdateMessage(first.ID, models.Confirm())
		assert.NoError(t, err)
	}()
	wg.Wait()

	require.Len(t, lengths, 51)
	for i := 1; i < len(lengths); i++ {
		assert.GreaterOrEqual(t, lengths[i], lengths[i-1], "snapshot %d went backwards", i)
		if confirmed[i-1] {
			assert.True(t, confirmed[i], "snapshot %d lost the confirmation", i)
		}
	}
	assert.Equal(t, 51, lengths[len(lengths)-1])
	assert.True(t, confirmed[len(confirmed)-1])
}
