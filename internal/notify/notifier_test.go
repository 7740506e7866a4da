package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name string
	err  error
	sent []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyDeliversToAllSenders(t *testing.T) {
	a := &fakeSender{name: "a"}
	b := &fakeSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), "deviation", "alert", "body"))
	assert.Equal(t, []string{"alert"}, a.sent)
	assert.Equal(t, []string{"alert"}, b.sent)
}

func TestNotifyFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{"deviation"}, testLogger())

	require.NoError(t, n.Notify(context.Background(), "startup", "ignored", "body"))
	assert.Empty(t, s.sent)

	require.NoError(t, n.Notify(context.Background(), "deviation", "alert", "body"))
	assert.Equal(t, []string{"alert"}, s.sent)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{"deviation"}, testLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "anything", "body"))
	assert.Equal(t, []string{"anything"}, s.sent)
}

func TestNotifyContinuesPastFailedSender(t *testing.T) {
	failing := &fakeSender{name: "broken", err: errors.New("boom")}
	ok := &fakeSender{name: "ok"}
	n := NewNotifier([]Sender{failing, ok}, nil, testLogger())

	err := n.Notify(context.Background(), "deviation", "alert", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"alert"}, ok.sent)
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), "deviation", "alert", "body"))
}
