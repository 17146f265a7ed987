package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCaloriesToday(t *testing.T) {
	r := NewIntentResolver()

	got := r.Resolve("How many calories did I eat today?", "x@y.com")
	require.Contains(t, got, "SUM(calories)")
	require.Contains(t, got, "user_id = 'x@y.com'")
	require.Contains(t, got, "DATE('now', 'localtime')")
	require.Contains(t, got, "GROUP BY meal_type")
}

func TestResolveRecentMealsWithCount(t *testing.T) {
	r := NewIntentResolver()

	got := r.Resolve("Show my last 10 meals", "a@b.com")
	require.Contains(t, got, "FROM food_logs")
	require.Contains(t, got, "LIMIT 10")
}

func TestResolveRecentMealsDefaultCount(t *testing.T) {
	r := NewIntentResolver()

	got := r.Resolve("show my last meals", "a@b.com")
	require.Contains(t, got, "LIMIT 3")
}

func TestResolveProteinWeek(t *testing.T) {
	r := NewIntentResolver()

	got := r.Resolve("How much protein did I get this week?", "a@b.com")
	require.Contains(t, got, "SUM(protein)")
	require.Contains(t, got, "-7 days")
	require.Contains(t, got, "GROUP BY log_date")
}

func TestResolveRecommendations(t *testing.T) {
	r := NewIntentResolver()

	got := r.Resolve("What are my recommendations?", "a@b.com")
	require.Contains(t, got, "FROM recommendations")
	require.Contains(t, got, "ORDER BY meal_type, calories DESC")
}

func TestResolveProfile(t *testing.T) {
	r := NewIntentResolver()

	for _, q := range []string{"Show my profile", "show my info"} {
		got := r.Resolve(q, "a@b.com")
		require.Contains(t, got, "JOIN user_profiles")
		require.Contains(t, got, "u.email = 'a@b.com'")
	}
}

func TestResolveFallback(t *testing.T) {
	r := NewIntentResolver()

	got := r.Resolve("tell me something interesting", "a@b.com")
	require.Contains(t, got, "FROM food_logs")
	require.Contains(t, got, "LIMIT 3")
}

func TestResolvePrecedenceIsTableOrder(t *testing.T) {
	r := NewIntentResolver()

	// "last ... meal" and "recommend" both trigger; the earlier rule wins.
	got := r.Resolve("show recommendations from my last meal", "a@b.com")
	require.Contains(t, got, "FROM food_logs")
	require.NotContains(t, got, "FROM recommendations")
}

func TestResolveEscapesIdentity(t *testing.T) {
	r := NewIntentResolver()

	got := r.Resolve("calories today", "o'brien@x.com")
	require.Contains(t, got, "o''brien@x.com")
}

func TestEveryTemplatePassesAuthorization(t *testing.T) {
	r := NewIntentResolver()
	a := NewQueryAuthorizer()

	questions := []string{
		"Show my last 10 meals",
		"How many calories did I eat today?",
		"How much protein did I get this week?",
		"What are my recommendations?",
		"Show my profile info",
		"something unrecognized",
	}
	for _, q := range questions {
		tmpl := r.Resolve(q, "a@b.com")
		_, err := a.Authorize(tmpl, "a@b.com")
		require.NoError(t, err, "template for %q failed authorization: %s", q, tmpl)
	}
}
