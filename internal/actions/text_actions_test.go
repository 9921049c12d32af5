package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

func TestGreeting_UsesStyleHint(t *testing.T) {
	gen := &fakeGenerator{reply: "  Morning, Sam!  ", debug: "tokens=12"}
	g := Greeting{Generator: gen, Recipient: "Sam", StyleHint: "lowercase, emoji"}

	hint, ok := g.PreloadHint()
	assert.True(t, ok)
	assert.Equal(t, "lowercase, emoji", hint)

	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, assist.ResultText, res.Kind)
	assert.Equal(t, "Morning, Sam!", res.Text())
	assert.Equal(t, "tokens=12", res.Debug)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Sam")
	require.NotNil(t, gen.hints[0])
	assert.Equal(t, "lowercase, emoji", *gen.hints[0])
}

func TestGreeting_NoHintPassesNil(t *testing.T) {
	gen := &fakeGenerator{reply: "Good morning"}
	_, err := Greeting{Generator: gen}.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, gen.hints[0])
}

func TestGreeting_Failures(t *testing.T) {
	tests := []struct {
		name string
		gen  assist.TextGenerator
		code string
	}{
		{"no generator", nil, assist.ErrCodeConfigurationMissing},
		{"untyped failure", &fakeGenerator{err: errUnreachable}, assist.ErrCodeNetwork},
		{"typed failure kept", &fakeGenerator{err: assist.NewPermissionDeniedError("llm", "the model", nil)}, assist.ErrCodePermissionDenied},
		{"empty message", &fakeGenerator{reply: "   "}, assist.ErrCodeInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Greeting{Generator: tt.gen}.Run(context.Background())
			require.Error(t, err)
			assert.True(t, assist.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestGreeting_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Greeting{Generator: &fakeGenerator{err: context.Canceled}}.Run(ctx)
	assert.True(t, assist.HasCode(err, assist.ErrCodeCancelled))
}

func TestDaySummary(t *testing.T) {
	allowed := map[string]struct{}{"work": {}}
	cal := &fakeCalendar{summary: "09:00 Standup\n13:00 Lunch with Ana"}
	gen := &fakeGenerator{reply: "A light day: standup, then lunch."}

	s := DaySummary{Calendar: cal, Generator: gen, AllowedCalendarIDs: allowed}
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A light day: standup, then lunch.", res.Text())
	assert.Equal(t, allowed, cal.allowed)
	assert.Contains(t, gen.prompts[0], "Lunch with Ana")
	assert.Equal(t, []string{"work"}, s.DebugContext()["calendar_scope"])
	assert.Equal(t, "all", DaySummary{}.DebugContext()["calendar_scope"])
}

func TestDaySummary_CalendarFailures(t *testing.T) {
	t.Run("access denied", func(t *testing.T) {
		gen := &fakeGenerator{reply: "unused"}
		_, err := DaySummary{Calendar: &fakeCalendar{accessErr: errUnreachable}, Generator: gen}.Run(context.Background())
		assert.True(t, assist.HasCode(err, assist.ErrCodePermissionDenied))
		assert.Equal(t, "access to the calendar was denied", assist.UserMessage(err))
		assert.Zero(t, gen.calls())
	})
	t.Run("fetch fails", func(t *testing.T) {
		_, err := DaySummary{Calendar: &fakeCalendar{fetchErr: errUnreachable}, Generator: &fakeGenerator{}}.Run(context.Background())
		assert.True(t, assist.HasCode(err, assist.ErrCodeInvalidResponse))
	})
	t.Run("no calendar", func(t *testing.T) {
		_, err := DaySummary{Generator: &fakeGenerator{}}.Run(context.Background())
		assert.True(t, assist.HasCode(err, assist.ErrCodeConfigurationMissing))
	})
}

func TestSchedule(t *testing.T) {
	res, err := Schedule{Calendar: &fakeCalendar{summary: "10:00 Dentist\n"}}.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10:00 Dentist", res.Text())

	res, err = Schedule{Calendar: &fakeCalendar{}}.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nothing scheduled today.", res.Text())
}

func TestReply(t *testing.T) {
	gen := &fakeGenerator{reply: "Sounds good, see you at 8."}
	r := Reply{
		Generator: gen,
		Message:   "Dinner tonight?",
		Sender:    "Ana",
		History:   []string{"Are you free this week?", "Maybe Thursday"},
		StyleHint: "short",
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Sounds good, see you at 8.", res.Text())
	assert.Contains(t, gen.prompts[0], "Ana wrote: Dinner tonight?")
	assert.Contains(t, gen.prompts[0], "- Maybe Thursday")
	assert.Equal(t, map[string]any{"sender": "Ana", "history_length": 2}, r.DebugContext())
}

func TestReply_CustomFormatter(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	r := Reply{
		Generator: gen,
		Message:   "ping",
		Formatter: func(message, sender string, history []string) string { return "<<" + message + ">>" },
	}
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "<<ping>>")
}

func TestReply_EmptyMessage(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	_, err := Reply{Generator: gen, Message: " "}.Run(context.Background())
	assert.True(t, assist.HasCode(err, assist.ErrCodeValidation))
	assert.Zero(t, gen.calls())
}

func TestDefaultFormatter(t *testing.T) {
	assert.Equal(t, "Someone wrote: hi", DefaultFormatter("hi", "", nil))
	assert.Equal(t, "Earlier messages:\n- a\n- b\n\nBo wrote: c", DefaultFormatter("c", "Bo", []string{"a", "b"}))
}
