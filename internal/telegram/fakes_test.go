package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"

	"omni-trending/internal/market"
	"omni-trending/internal/trending"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	mu         sync.Mutex
	nextID     int
	sent       []tgbotapi.Chattable
	requests   []tgbotapi.Chattable
	sendErr    error
	requestErr error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := c.(tgbotapi.CallbackConfig); ok {
		return &tgbotapi.APIResponse{Ok: true}, nil
	}
	f.requests = append(f.requests, c)
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func chattableText(c tgbotapi.Chattable) string {
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		return v.Text
	case tgbotapi.PhotoConfig:
		return v.Caption
	case tgbotapi.EditMessageTextConfig:
		return v.Text
	case tgbotapi.EditMessageCaptionConfig:
		return v.Caption
	}
	return ""
}

func (f *fakeSender) lastSentText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return chattableText(f.sent[len(f.sent)-1])
}

func (f *fakeSender) lastRequestText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return chattableText(f.requests[len(f.requests)-1])
}

func (f *fakeSender) allSentText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parts []string
	for _, c := range f.sent {
		parts = append(parts, chattableText(c))
	}
	return strings.Join(parts, "\n---\n")
}

type fakeCards struct {
	err error
}

func (f fakeCards) Render(ctx context.Context, logoURL, title, subtitle string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

type fakeChecker struct {
	network string
	err     error
}

func (f fakeChecker) Check(ctx context.Context, declared, address string) (string, error) {
	return f.network, f.err
}

type fakeFetcher struct {
	pair *market.CanonicalPair
	err  error
}

func (f fakeFetcher) Fetch(ctx context.Context, network, address string) (*market.CanonicalPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.pair
	p.Network = network
	p.BaseAddress = address
	return &p, nil
}

type fakeSessions struct {
	mu        sync.Mutex
	requests  []trending.ActivationRequest
	err       error
	cancelled []string
	snapshots []trending.Snapshot
}

func (f *fakeSessions) Activate(ctx context.Context, req trending.ActivationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "777", nil
}

func (f *fakeSessions) Cancel(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, sessionID)
	return sessionID == "777"
}

func (f *fakeSessions) List() []trending.Snapshot {
	return f.snapshots
}

type operatorNotice struct {
	severity trending.Severity
	text     string
	fields   map[string]string
}

type fakeNotifier struct {
	mu        sync.Mutex
	users     map[int64][]string
	operators []operatorNotice
}

func (f *fakeNotifier) NotifyUser(ctx context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[int64][]string{}
	}
	f.users[userID] = append(f.users[userID], text)
	return nil
}

func (f *fakeNotifier) NotifyOperators(ctx context.Context, severity trending.Severity, text string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operators = append(f.operators, operatorNotice{severity, text, fields})
	return nil
}

var errNotModified = errors.New("bad request: message is not modified: specified new message content and reply markup are exactly the same")
