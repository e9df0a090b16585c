package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardiana/sentinel/internal/domain"
)

type fakeSender struct {
	name string
	err  error
	sent []domain.DetectionAlert
}

func (f *fakeSender) Send(_ context.Context, alert domain.DetectionAlert) error {
	f.sent = append(f.sent, alert)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAlert() domain.DetectionAlert {
	return domain.DetectionAlert{
		ID:    "a-1",
		Level: domain.AlertCritical,
		Title: "Potential spoofing detected",
	}
}

func TestNotifyEventFilter(t *testing.T) {
	sender := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{sender}, []string{"pattern"}, testLogger())

	require.NoError(t, n.Notify(context.Background(), "anomaly", testAlert()))
	assert.Empty(t, sender.sent)

	require.NoError(t, n.Notify(context.Background(), "pattern", testAlert()))
	assert.Len(t, sender.sent, 1)
}

func TestNotifyEmptyEventsAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), "anomaly", testAlert()))
	require.NoError(t, n.Notify(context.Background(), "pattern", testAlert()))
	assert.Len(t, sender.sent, 2)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	sender := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{sender}, []string{"pattern"}, testLogger())

	require.NoError(t, n.NotifyAll(context.Background(), testAlert()))
	assert.Len(t, sender.sent, 1)
}

func TestDispatchCollectsSenderErrors(t *testing.T) {
	good := &fakeSender{name: "discord"}
	bad := &fakeSender{name: "telegram", err: errors.New("status 502")}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), "pattern", testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Contains(t, err.Error(), "telegram")

	// The healthy sender still received the alert.
	assert.Len(t, good.sent, 1)
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), "pattern", testAlert()))
}

func TestLevelMarker(t *testing.T) {
	assert.Equal(t, "\U0001F6A8", levelMarker(domain.AlertCritical))
	assert.Equal(t, "⚠️", levelMarker(domain.AlertWarning))
	assert.Equal(t, "ℹ️", levelMarker(domain.AlertInfo))
}
