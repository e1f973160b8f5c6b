package integration

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/api"
	"gatherly/internal/config"
	"gatherly/pkg/types"
)

func TestDelivery_OnlineReceiverGetsMessageLive(t *testing.T) {
	srv := StartTestServer(t, nil)
	alice, aliceToken := srv.Signup("alice")
	bob, bobToken := srv.Signup("bob")

	aliceWS := srv.Connect(aliceToken)
	bobWS := srv.Connect(bobToken)

	Send(t, aliceWS, map[string]interface{}{"type": "message", "content": "hello bob", "receiver_id": bob.ID})

	ack := ReadFrame(t, aliceWS)
	require.Equal(t, types.NotifyMessageSent, ack["type"])
	messageID := ID(t, ack, "message_id")

	push := ReadFrame(t, bobWS)
	require.Equal(t, types.NotifyNewMessage, push["type"])
	message := push["message"].(map[string]interface{})
	assert.Equal(t, float64(messageID), message["id"])
	assert.Equal(t, "hello bob", message["content"])
	assert.Equal(t, float64(alice.ID), message["sender_id"])
	assert.Equal(t, false, message["is_read"])
}

func TestDelivery_OfflineReceiverFindsMessageLater(t *testing.T) {
	srv := StartTestServer(t, nil)
	_, aliceToken := srv.Signup("alice")
	bob, bobToken := srv.Signup("bob")

	aliceWS := srv.Connect(aliceToken)
	Send(t, aliceWS, map[string]interface{}{"type": "message", "content": "are you there?", "receiver_id": bob.ID})
	require.Equal(t, types.NotifyMessageSent, ReadFrame(t, aliceWS)["type"])

	// bob connects afterwards; the message waits in the store, not in a queue
	bobWS := srv.Connect(bobToken)
	Send(t, bobWS, map[string]string{"type": "get_unread_count"})
	count := ReadFrame(t, bobWS)
	require.Equal(t, types.NotifyUnreadCount, count["type"])
	assert.Equal(t, float64(1), count["count"])

	var received api.MessageListResponse
	require.Equal(t, http.StatusOK, srv.Do(http.MethodGet, "/messages/received", bobToken, nil, &received))
	require.Len(t, received.Messages, 1)
	assert.Equal(t, "are you there?", received.Messages[0].Content)
	assert.Equal(t, 1, received.UnreadCount)
}

func TestDelivery_MarkReadIsIdempotentAndNotifiesSender(t *testing.T) {
	srv := StartTestServer(t, nil)
	alice, aliceToken := srv.Signup("alice")
	bob, bobToken := srv.Signup("bob")

	var msg types.Message
	require.Equal(t, http.StatusOK, srv.Do(http.MethodPost, "/messages", aliceToken,
		types.SendMessageRequest{Content: "read me", ReceiverID: bob.ID}, &msg))

	aliceWS := srv.Connect(aliceToken)
	bobWS := srv.Connect(bobToken)

	for i := 0; i < 2; i++ {
		Send(t, bobWS, map[string]interface{}{"type": "mark_read", "message_id": msg.ID})

		ack := ReadFrame(t, bobWS)
		require.Equal(t, types.NotifyMessageMarkedRead, ack["type"], "attempt %d", i)
		assert.Equal(t, msg.ID, ID(t, ack, "message_id"))

		receipt := ReadFrame(t, aliceWS)
		require.Equal(t, types.NotifyMessageRead, receipt["type"], "attempt %d", i)
		assert.Equal(t, bob.ID, ID(t, receipt, "reader_id"))
	}

	var conversation []types.Message
	require.Equal(t, http.StatusOK, srv.Do(http.MethodGet, fmt.Sprintf("/messages/conversation/%d", alice.ID), bobToken, nil, &conversation))
	require.Len(t, conversation, 1)
	assert.True(t, conversation[0].IsRead)
}

func TestDelivery_MarkReadByNonReceiverFails(t *testing.T) {
	srv := StartTestServer(t, nil)
	_, aliceToken := srv.Signup("alice")
	bob, _ := srv.Signup("bob")

	var msg types.Message
	require.Equal(t, http.StatusOK, srv.Do(http.MethodPost, "/messages", aliceToken,
		types.SendMessageRequest{Content: "private", ReceiverID: bob.ID}, &msg))

	aliceWS := srv.Connect(aliceToken)
	Send(t, aliceWS, map[string]interface{}{"type": "mark_read", "message_id": msg.ID})

	reply := ReadFrame(t, aliceWS)
	assert.Equal(t, types.NotifyError, reply["type"])
	assert.Equal(t, "message not found", reply["message"])
}

func TestDelivery_BadTokenClosesWithAuthCode(t *testing.T) {
	srv := StartTestServer(t, nil)

	conn := srv.Dial("definitely-not-a-token")
	assert.Equal(t, 4001, ReadCloseCode(t, conn))
	assert.Empty(t, srv.App.Registry().Users())
}

func TestDelivery_RESTSendIsPushedLive(t *testing.T) {
	srv := StartTestServer(t, nil)
	_, aliceToken := srv.Signup("alice")
	bob, bobToken := srv.Signup("bob")

	bobWS := srv.Connect(bobToken)

	var msg types.Message
	require.Equal(t, http.StatusOK, srv.Do(http.MethodPost, "/messages", aliceToken,
		types.SendMessageRequest{Content: "via rest", ReceiverID: bob.ID}, &msg))

	push := ReadFrame(t, bobWS)
	require.Equal(t, types.NotifyNewMessage, push["type"])
	assert.Equal(t, float64(msg.ID), push["message"].(map[string]interface{})["id"])
}

func TestDelivery_AllConnectionsOfReceiverGetMessage(t *testing.T) {
	srv := StartTestServer(t, nil)
	_, aliceToken := srv.Signup("alice")
	bob, bobToken := srv.Signup("bob")

	phone := srv.Connect(bobToken)
	laptop := srv.Connect(bobToken)
	require.Eventually(t, func() bool {
		return srv.App.Registry().Stats()["total_connections"] == 2
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, srv.Do(http.MethodPost, "/messages", aliceToken,
		types.SendMessageRequest{Content: "both devices", ReceiverID: bob.ID}, nil))

	for _, conn := range []*websocket.Conn{phone, laptop} {
		assert.Equal(t, types.NotifyNewMessage, ReadFrame(t, conn)["type"])
	}
}

func TestDelivery_DisconnectedUserGoesOffline(t *testing.T) {
	srv := StartTestServer(t, nil)
	bob, bobToken := srv.Signup("bob")

	conn := srv.Connect(bobToken)
	require.True(t, srv.App.Registry().IsOnline(bob.ID))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return !srv.App.Registry().IsOnline(bob.ID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDelivery_IdleConnectionIsReaped(t *testing.T) {
	srv := StartTestServer(t, func(cfg *config.Config) {
		cfg.WebSocket.ReaperInterval = 50 * time.Millisecond
		cfg.WebSocket.IdleTimeout = 150 * time.Millisecond
	})
	bob, bobToken := srv.Signup("bob")

	conn := srv.Connect(bobToken)
	require.True(t, srv.App.Registry().IsOnline(bob.ID))

	require.Eventually(t, func() bool {
		return !srv.App.Registry().IsOnline(bob.ID)
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, websocket.CloseNormalClosure, ReadCloseCode(t, conn))
}

func TestDelivery_RateLimitedSender(t *testing.T) {
	srv := StartTestServer(t, func(cfg *config.Config) {
		cfg.WebSocket.MessageRate = 2
	})
	_, aliceToken := srv.Signup("alice")
	bob, _ := srv.Signup("bob")

	aliceWS := srv.Connect(aliceToken)
	for i := 0; i < 2; i++ {
		Send(t, aliceWS, map[string]interface{}{"type": "message", "content": "spam", "receiver_id": bob.ID})
		require.Equal(t, types.NotifyMessageSent, ReadFrame(t, aliceWS)["type"])
	}

	Send(t, aliceWS, map[string]interface{}{"type": "message", "content": "spam", "receiver_id": bob.ID})
	reply := ReadFrame(t, aliceWS)
	assert.Equal(t, types.NotifyError, reply["type"])
	assert.Equal(t, "rate limit exceeded", reply["message"])

	code := srv.Do(http.MethodPost, "/messages", aliceToken, types.SendMessageRequest{Content: "spam", ReceiverID: bob.ID}, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestDelivery_ConcurrentSendersAllPersist(t *testing.T) {
	srv := StartTestServer(t, nil)
	bob, bobToken := srv.Signup("bob")

	const senders = 5
	const perSender = 4

	tokens := make([]string, senders)
	for i := range tokens {
		_, tokens[i] = srv.Signup(fmt.Sprintf("sender%d", i))
	}

	var wg sync.WaitGroup
	for _, token := range tokens {
		conn := srv.Connect(token)
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				if err := conn.WriteJSON(map[string]interface{}{"type": "message", "content": "hi", "receiver_id": bob.ID}); err != nil {
					t.Errorf("write: %v", err)
					return
				}
				var ack map[string]interface{}
				if err := conn.ReadJSON(&ack); err != nil || ack["type"] != types.NotifyMessageSent {
					t.Errorf("ack: %v %v", ack, err)
					return
				}
			}
		}(conn)
	}
	wg.Wait()

	var count api.UnreadCountResponse
	require.Equal(t, http.StatusOK, srv.Do(http.MethodGet, "/messages/unread-count", bobToken, nil, &count))
	assert.Equal(t, senders*perSender, count.UnreadCount)
}

func TestDelivery_ShutdownClosesLiveConnections(t *testing.T) {
	srv := StartTestServer(t, nil)
	_, token := srv.Signup("alice")

	conn := srv.Connect(token)
	require.NoError(t, srv.App.Stop(t.Context()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
