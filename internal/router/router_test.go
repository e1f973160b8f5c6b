package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

// memoryStore is an in-memory MessageStore with a fixed set of users
type memoryStore struct {
	mu       sync.Mutex
	users    map[types.UserID]bool
	messages map[int64]*types.Message
	nextID   int64
	failNext error
}

func newMemoryStore(users ...types.UserID) *memoryStore {
	s := &memoryStore{users: make(map[types.UserID]bool), messages: make(map[int64]*types.Message)}
	for _, id := range users {
		s.users[id] = true
	}
	return s
}

func (s *memoryStore) CreateMessage(_ context.Context, senderID, receiverID types.UserID, content string) (*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return nil, err
	}
	if !s.users[receiverID] {
		return nil, interfaces.ErrUserNotFound
	}
	s.nextID++
	msg := &types.Message{ID: s.nextID, Content: content, CreatedAt: time.Now(), SenderID: senderID, ReceiverID: receiverID}
	s.messages[msg.ID] = msg
	copied := *msg
	return &copied, nil
}

func (s *memoryStore) MarkRead(_ context.Context, messageID int64, readerID types.UserID) (*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok || msg.ReceiverID != readerID {
		return nil, interfaces.ErrMessageNotFound
	}
	msg.IsRead = true
	copied := *msg
	return &copied, nil
}

func (s *memoryStore) UnreadCount(_ context.Context, userID types.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, msg := range s.messages {
		if msg.ReceiverID == userID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) ListReceived(context.Context, types.UserID, types.Page) ([]*types.Message, error) {
	return nil, nil
}

func (s *memoryStore) ListSent(context.Context, types.UserID, types.Page) ([]*types.Message, error) {
	return nil, nil
}

func (s *memoryStore) Conversation(context.Context, types.UserID, types.UserID, types.Page) ([]*types.Message, error) {
	return nil, nil
}

type sent struct {
	userID  types.UserID
	payload types.Notification
}

// recordingNotifier remembers every notification
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) SendTo(userID types.UserID, payload types.Notification) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{userID: userID, payload: payload})
	return 1
}

func (n *recordingNotifier) all() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sent(nil), n.sent...)
}

func newTestRouter(store *memoryStore, limiter *RateLimiter) (*Router, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewRouter(store, notifier, limiter, zerolog.Nop()), notifier
}

func TestRouter_SendMessagePersistsThenNotifies(t *testing.T) {
	store := newMemoryStore(1, 2)
	router, notifier := newTestRouter(store, nil)

	msg, err := router.SendMessage(context.Background(), 1, 2, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, types.UserID(2), notes[0].userID)
	newMsg, ok := notes[0].payload.(types.NewMessage)
	require.True(t, ok)
	assert.Equal(t, types.NotifyNewMessage, newMsg.Kind())
	assert.Equal(t, msg.ID, newMsg.Message.ID)
	assert.Equal(t, "hello", newMsg.Message.Content)
}

func TestRouter_SendMessageRejects(t *testing.T) {
	store := newMemoryStore(1, 2)
	router, notifier := newTestRouter(store, nil)
	ctx := context.Background()

	_, err := router.SendMessage(ctx, 1, 2, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = router.SendMessage(ctx, 1, 2, strings.Repeat("x", MaxContentLength+1))
	assert.ErrorIs(t, err, ErrContentTooLong)

	_, err = router.SendMessage(ctx, 1, 0, "hi")
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	_, err = router.SendMessage(ctx, 1, 99, "hi")
	assert.ErrorIs(t, err, interfaces.ErrUserNotFound)

	assert.Empty(t, notifier.all())
	count, err := store.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRouter_StoreFailureSkipsNotify(t *testing.T) {
	store := newMemoryStore(1, 2)
	store.failNext = errors.New("disk full")
	router, notifier := newTestRouter(store, nil)

	_, err := router.SendMessage(context.Background(), 1, 2, "hi")
	require.Error(t, err)
	assert.Empty(t, notifier.all())
}

func TestRouter_MarkReadNotifiesSender(t *testing.T) {
	store := newMemoryStore(1, 2)
	router, notifier := newTestRouter(store, nil)
	ctx := context.Background()

	msg, err := router.SendMessage(ctx, 1, 2, "hi")
	require.NoError(t, err)

	read, err := router.MarkRead(ctx, msg.ID, 2)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	notes := notifier.all()
	require.Len(t, notes, 2)
	assert.Equal(t, types.UserID(1), notes[1].userID)
	assert.Equal(t, types.NewMessageRead(msg.ID, 2), notes[1].payload)

	// idempotent
	_, err = router.MarkRead(ctx, msg.ID, 2)
	require.NoError(t, err)

	count, err := router.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRouter_MarkReadNotOwned(t *testing.T) {
	store := newMemoryStore(1, 2, 3)
	router, notifier := newTestRouter(store, nil)
	ctx := context.Background()

	msg, err := router.SendMessage(ctx, 1, 2, "hi")
	require.NoError(t, err)

	_, err = router.MarkRead(ctx, msg.ID, 3)
	assert.ErrorIs(t, err, interfaces.ErrMessageNotFound)
	assert.Len(t, notifier.all(), 1)

	count, err := router.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRouter_RateLimited(t *testing.T) {
	store := newMemoryStore(1, 2)
	router, _ := newTestRouter(store, NewRateLimiter(2, time.Minute))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := router.SendMessage(ctx, 1, 2, "hi")
		require.NoError(t, err)
	}
	_, err := router.SendMessage(ctx, 1, 2, "hi")
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	// other senders have their own budget
	_, err = router.SendMessage(ctx, 2, 1, "hi")
	assert.NoError(t, err)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Now()
	limiter.nowFn = func() time.Time { return now }

	assert.True(t, limiter.Allow(1))
	assert.False(t, limiter.Allow(1))

	now = now.Add(time.Minute)
	assert.True(t, limiter.Allow(1))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(10, time.Minute)
	now := time.Now()
	limiter.nowFn = func() time.Time { return now }

	limiter.Allow(1)
	limiter.Allow(2)
	assert.Equal(t, 2, limiter.Tracked())

	now = now.Add(6 * time.Minute)
	limiter.Cleanup()
	assert.Zero(t, limiter.Tracked())
}

func TestRateLimiter_CleansUpWhileAllowing(t *testing.T) {
	limiter := NewRateLimiter(10, time.Minute)
	now := time.Now()
	limiter.nowFn = func() time.Time { return now }
	limiter.lastCleanup = now

	limiter.Allow(1)
	now = now.Add(6 * time.Minute)
	limiter.Allow(2)

	assert.Equal(t, 1, limiter.Tracked())
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter := NewRateLimiter(50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(7) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
