package fixture

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/search"
)

func loadWorld(t *testing.T) *World {
	t.Helper()
	w, err := Load("testdata/world.yaml")
	require.NoError(t, err)
	return w
}

func ids(rs []assist.Restaurant) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	w := loadWorld(t)
	assert.InDelta(t, 52.52, w.Location.Latitude, 1e-9)
	assert.Len(t, w.Calendars, 2)
	assert.Len(t, w.Restaurants, 5)
	assert.Equal(t, "formal", w.StyleHint("Sam"))
	assert.Empty(t, w.StyleHint("Nobody"))
	require.NotNil(t, w.Inbox)
	assert.Equal(t, "Ana", w.Inbox.Sender)
	assert.Len(t, w.Inbox.History, 2)
	assert.True(t, w.Restaurants[0].IsVegetarianFriendly)
	assert.Equal(t, 6, w.Restaurants[0].VegetarianOptionsCount)

	_, err := Load("testdata/missing.yaml")
	assert.Error(t, err)
	_, err = Parse([]byte("location: [not, a, map]"))
	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	w := loadWorld(t)
	ctx := context.Background()
	require.NoError(t, w.RequestAccessIfNeeded(ctx))

	all, err := w.FetchTodayScheduleSummary(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "09:30-09:45 Standup (Work)\n12:30 Lunch with Ana (Personal)\n14:00-15:00 Design review (Work)", all)

	personal, err := w.FetchTodayScheduleSummary(ctx, map[string]struct{}{"personal": {}})
	require.NoError(t, err)
	assert.Equal(t, "12:30 Lunch with Ana (Personal)", personal)

	none, err := w.FetchTodayScheduleSummary(ctx, map[string]struct{}{})
	require.NoError(t, err)
	assert.Empty(t, none)

	w.CalendarDenied = true
	assert.True(t, assist.HasCode(w.RequestAccessIfNeeded(ctx), assist.ErrCodePermissionDenied))
}

func TestSearchRestaurants(t *testing.T) {
	w := loadWorld(t)
	ctx := context.Background()
	req := assist.SearchRequest{Near: w.Location, RadiusMeters: 5000, Limit: 10}

	got, err := w.SearchRestaurants(ctx, req)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"aroy-dee", "burgermeister"}, ids(got)); diff != "" {
		t.Errorf("5 km mismatch (-want +got):\n%s", diff)
	}

	req.RadiusMeters = 10000
	req.Limit = 3
	got, err = w.SearchRestaurants(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"aroy-dee", "burgermeister", "cookies-cream"}, ids(got))

	req.Limit = 10
	req.Filters.VegetarianRequired = true
	got, err = w.SearchRestaurants(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"aroy-dee", "cookies-cream", "cookies-cream-listing"}, ids(got))

	req.Filters = assist.SearchFilters{}
	req.Query = "THAI"
	got, err = w.SearchRestaurants(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"aroy-dee"}, ids(got))
}

func TestWorldBacksAdaptiveSearch(t *testing.T) {
	w := loadWorld(t)
	engine, err := search.NewEngine(w)
	require.NoError(t, err)

	res, err := engine.Search(context.Background(), search.Request{Origin: w.Location, MinResults: 3})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
	assert.Equal(t, 10000, res.FinalRadiusMeters)
	assert.Equal(t, []string{"aroy-dee", "burgermeister", "cookies-cream"}, ids(res.Restaurants))
}

func TestCancelledContext(t *testing.T) {
	w := loadWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.CurrentLocation(ctx)
	assert.True(t, assist.HasCode(err, assist.ErrCodeCancelled))
	_, err = w.SearchRestaurants(ctx, assist.SearchRequest{})
	assert.True(t, assist.HasCode(err, assist.ErrCodeCancelled))
}
