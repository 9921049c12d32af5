package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/config"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/search"
)

const worldPath = "../../configs/world.yaml"

func newTestApp(t *testing.T, mutate func(*config.Config)) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Fixtures.Path = worldPath
	cfg.EventBus.Enabled = true
	if mutate != nil {
		mutate(cfg)
	}
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func submit(t *testing.T, a *app, name string, args actionArgs) error {
	t.Helper()
	action, err := a.buildAction(name, args)
	require.NoError(t, err)
	return a.dispatcher.Submit(context.Background(), action)
}

func TestApp_Actions(t *testing.T) {
	a := newTestApp(t, nil)

	tests := []struct {
		name     string
		args     actionArgs
		contains string
	}{
		{"greeting", actionArgs{Recipient: "Ana"}, "Good morning!"},
		{"summary", actionArgs{}, "lunch with Ana"},
		{"schedule", actionArgs{Calendars: []string{"work"}}, "09:30-09:45 Standup (Work)"},
		{"reply", actionArgs{}, "Thursday works"},
		{"restaurants", actionArgs{MinResults: 3}, "Found 3 within 10.0 km:"},
		{"matchup", actionArgs{}, "Union Berlin vs Hertha (Sat 15:30)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, submit(t, a, tt.name, tt.args))
			assert.Contains(t, a.dispatcher.LastOutput(), tt.contains)
			assert.Nil(t, a.dispatcher.ErrorMessage())
		})
	}

	// The reply set Ana's style hint; the schedule left it alone.
	require.NotNil(t, a.dispatcher.CurrentStyleHint())
	assert.Equal(t, "lowercase, lots of emoji", *a.dispatcher.CurrentStyleHint())
	assert.Equal(t, 6, a.dispatcher.Metrics().ActionsSuccessful)
}

func TestApp_BriefingUsesMatchupCache(t *testing.T) {
	a := newTestApp(t, nil)

	require.NoError(t, submit(t, a, "matchup", actionArgs{}))
	require.NoError(t, submit(t, a, "briefing", actionArgs{Recipient: "Sam"}))

	out := a.dispatcher.LastOutput()
	assert.Contains(t, out, "Good morning!")
	assert.Contains(t, out, "Standup first")
	assert.Contains(t, out, "Bayern vs Dortmund")
	assert.Equal(t, 1, a.matchups.Len())
	assert.Equal(t, "formal", *a.dispatcher.CurrentStyleHint())
}

func TestApp_Failures(t *testing.T) {
	a := newTestApp(t, nil)
	require.NoError(t, submit(t, a, "greeting", actionArgs{}))

	a.world.CalendarDenied = true
	err := submit(t, a, "summary", actionArgs{})
	require.Error(t, err)
	assert.True(t, assist.HasCode(err, assist.ErrCodePermissionDenied))
	assert.Contains(t, a.dispatcher.LastOutput(), "Good morning!")

	_, err = a.buildAction("horoscope", actionArgs{})
	assert.True(t, assist.HasCode(err, assist.ErrCodeValidation))

	a.world.Inbox = nil
	_, err = a.buildAction("reply", actionArgs{})
	assert.True(t, assist.HasCode(err, assist.ErrCodeConfigurationMissing))
}

func TestApp_MetricsRegistered(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Search = search.DefaultConfig() })
	require.NoError(t, submit(t, a, "restaurants", actionArgs{MinResults: 1}))

	n, err := testutil.GatherAndCount(a.registry, "assist_search_outcomes_total", "assist_dispatcher_actions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewApp_Errors(t *testing.T) {
	cfg := config.Default()
	_, err := newApp(context.Background(), cfg)
	assert.True(t, assist.HasCode(err, assist.ErrCodeConfigurationMissing))

	cfg.Fixtures.Path = worldPath
	cfg.LLM.Provider = "gemini"
	cfg.LLM.APIKeyEnv = "ASSIST_TEST_UNSET_KEY"
	_, err = newApp(context.Background(), cfg)
	assert.True(t, assist.HasCode(err, assist.ErrCodeConfigurationMissing))
}

func TestPrintState(t *testing.T) {
	hint, msg := "formal", "greeting failed: network request failed"

	var buf bytes.Buffer
	printState(&buf, assist.DispatcherState{LastOutput: "Hello", DebugLog: "action: greeting\n", CurrentStyleHint: &hint}, true)
	assert.Equal(t, "style: formal\nHello\n\n---\naction: greeting\n", buf.String())

	buf.Reset()
	printState(&buf, assist.DispatcherState{LastOutput: "Hello", ErrorMessage: &msg}, false)
	assert.Equal(t, "error: greeting failed: network request failed\n", buf.String())
}
