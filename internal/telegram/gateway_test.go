package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"omni-trending/internal/market"
	"omni-trending/internal/trending"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = int64(-1001234567890)

func testSnapshot() trending.Snapshot {
	liq := 52_000.0
	return trending.Snapshot{
		ID:              "10",
		Network:         market.Solana,
		ContractAddress: "Mint1111111111111111111111111111111",
		Symbol:          "PEPE",
		Name:            "Pepe <Coin>",
		LogoURL:         "https://img.example/pepe.png",
		ChartURL:        "https://dexscreener.com/solana/pair",
		Message:         trending.MessageRef{ID: "10"},
		Baseline:        decimal.NewNullDecimal(decimal.RequireFromString("0.001")),
		LastPrice:       decimal.NewNullDecimal(decimal.RequireFromString("0.0012")),
		ChangePct:       decimal.NewFromInt(20),
		LastPair:        &market.CanonicalPair{LiquidityUSD: &liq},
		Status:          trending.StatusActive,
		EndsAt:          time.Now().Add(3 * time.Hour),
	}
}

func newTestGateway(s *fakeSender, cards CardRenderer) *Gateway {
	return NewGateway(s, GatewayOptions{
		ChannelID:         testChannel,
		OperatorChatID:    42,
		MessagesPerSecond: 1000,
		Cards:             cards,
		PinStatus:         true,
	})
}

func TestGateway_PostStatusWithCard(t *testing.T) {
	s := &fakeSender{}
	g := newTestGateway(s, fakeCards{})

	ref, err := g.PostPublic(context.Background(), trending.Post{Kind: trending.PostStatus, Session: testSnapshot()})
	require.NoError(t, err)
	assert.Equal(t, "1", ref.ID)
	assert.True(t, ref.HasImage)

	require.Len(t, s.sent, 1)
	photo, ok := s.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, testChannel, photo.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, photo.ParseMode)
	assert.Contains(t, photo.Caption, "$PEPE (Pepe &lt;Coin&gt;)")
	assert.Contains(t, photo.Caption, "+20.00%")

	require.Len(t, s.requests, 1)
	pin, ok := s.requests[0].(tgbotapi.PinChatMessageConfig)
	require.True(t, ok)
	assert.Equal(t, 1, pin.MessageID)
	assert.True(t, pin.DisableNotification)
}

func TestGateway_CardFailureFallsBackToText(t *testing.T) {
	s := &fakeSender{}
	g := newTestGateway(s, fakeCards{err: errors.New("decode failed")})

	ref, err := g.PostPublic(context.Background(), trending.Post{Kind: trending.PostStatus, Session: testSnapshot()})
	require.NoError(t, err)
	assert.False(t, ref.HasImage)

	msg, ok := s.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "TRENDING")
}

func TestGateway_PinFailureIsNotFatal(t *testing.T) {
	s := &fakeSender{requestErr: errors.New("not enough rights")}
	g := newTestGateway(s, nil)

	ref, err := g.PostPublic(context.Background(), trending.Post{Kind: trending.PostStatus, Session: testSnapshot()})
	require.NoError(t, err)
	assert.Equal(t, "1", ref.ID)
}

func TestGateway_SendFailure(t *testing.T) {
	s := &fakeSender{sendErr: errors.New("chat not found")}
	g := newTestGateway(s, nil)

	_, err := g.PostPublic(context.Background(), trending.Post{Kind: trending.PostStatus, Session: testSnapshot()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestGateway_AlertRepliesToStatusPost(t *testing.T) {
	s := &fakeSender{}
	g := newTestGateway(s, nil)

	_, err := g.PostPublic(context.Background(), trending.Post{
		Kind:      trending.PostAlert,
		Session:   testSnapshot(),
		Threshold: trending.ThresholdKey{Direction: trending.High, Level: 20},
	})
	require.NoError(t, err)

	msg := s.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, 10, msg.ReplyToMessageID)
	assert.Contains(t, msg.Text, "pumped 20%")
	assert.Empty(t, s.requests)
}

func TestGateway_EditPublic(t *testing.T) {
	s := &fakeSender{}
	g := newTestGateway(s, nil)
	post := trending.Post{Kind: trending.PostStatus, Session: testSnapshot()}

	require.NoError(t, g.EditPublic(context.Background(), trending.MessageRef{ID: "10", HasImage: true}, post))
	caption, ok := s.requests[0].(tgbotapi.EditMessageCaptionConfig)
	require.True(t, ok)
	assert.Equal(t, 10, caption.MessageID)
	assert.Equal(t, testChannel, caption.ChatID)

	require.NoError(t, g.EditPublic(context.Background(), trending.MessageRef{ID: "11"}, post))
	text, ok := s.requests[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 11, text.MessageID)

	assert.Error(t, g.EditPublic(context.Background(), trending.MessageRef{ID: "abc"}, post))
}

func TestGateway_EditNotModifiedIsSuccess(t *testing.T) {
	s := &fakeSender{requestErr: errNotModified}
	g := newTestGateway(s, nil)
	post := trending.Post{Kind: trending.PostStatus, Session: testSnapshot()}

	assert.NoError(t, g.EditPublic(context.Background(), trending.MessageRef{ID: "10"}, post))

	s.requestErr = errors.New("message to edit not found")
	assert.Error(t, g.EditPublic(context.Background(), trending.MessageRef{ID: "10"}, post))
}

// stalledBotAPI answers getMe and then never replies to anything else.
func stalledBotAPI(t *testing.T) *tgbotapi.BotAPI {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Omni","username":"omni_test_bot"}}`))
			return
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	api, err := tgbotapi.NewBotAPIWithClient("123:abc", srv.URL+"/bot%s/%s", &http.Client{})
	require.NoError(t, err)
	return api
}

func TestGateway_StalledTelegramHonoursContext(t *testing.T) {
	g := NewGateway(stalledBotAPI(t), GatewayOptions{ChannelID: testChannel, MessagesPerSecond: 1000})
	post := trending.Post{Kind: trending.PostStatus, Session: testSnapshot()}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := g.EditPublic(ctx, trending.MessageRef{ID: "10"}, post)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel2()
	start = time.Now()
	_, err = g.PostPublic(ctx2, trending.Post{Kind: trending.PostAlert, Session: testSnapshot()})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGateway_Notify(t *testing.T) {
	s := &fakeSender{}
	g := newTestGateway(s, nil)

	require.NoError(t, g.NotifyUser(context.Background(), 99, "done <3"))
	user := s.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(99), user.ChatID)
	assert.Empty(t, user.ParseMode)

	require.NoError(t, g.NotifyOperators(context.Background(), trending.SeverityError, "Session failed",
		map[string]string{"user": "5", "contract": "0xabc"}))
	op := s.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), op.ChatID)
	assert.Equal(t, "🛑 Session failed\n<blockquote><b>contract</b>: 0xabc\n<b>user</b>: 5</blockquote>", op.Text)
}

func TestGateway_NoOperatorChat(t *testing.T) {
	s := &fakeSender{}
	g := NewGateway(s, GatewayOptions{ChannelID: testChannel})

	require.NoError(t, g.NotifyOperators(context.Background(), trending.SeverityInfo, "hi", nil))
	assert.Empty(t, s.sent)
}

func TestParseChatID(t *testing.T) {
	id, err := ParseChatID(" -1001234567890 ")
	require.NoError(t, err)
	assert.Equal(t, testChannel, id)

	id, err = ParseChatID("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = ParseChatID("@channel")
	assert.Error(t, err)
}
