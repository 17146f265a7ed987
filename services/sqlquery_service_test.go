package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"backend/querystore"
)

func newTestStore(t *testing.T) *querystore.Store {
	t.Helper()
	s, err := querystore.Open(filepath.Join(t.TempDir(), "query.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *querystore.Store, email, name string) {
	t.Helper()
	require.NoError(t, s.Exec(context.Background(),
		"INSERT INTO users (email, full_name, password_hash, created_at) VALUES (?, ?, ?, ?)",
		email, name, "hash", "2026-01-01T00:00:00Z"))
}

func seedFoodLog(t *testing.T, s *querystore.Store, email, food, meal, date string, calories float64) {
	t.Helper()
	require.NoError(t, s.Exec(context.Background(),
		`INSERT INTO food_logs (user_id, food_name, meal_type, log_date, quantity, calories, protein, carbs, fat, recommended, created_at)
		 VALUES (?, ?, ?, ?, 100, ?, 10, 20, 5, 0, ?)`,
		email, food, meal, date, calories, date+"T12:00:00Z"))
}

func TestVerifyUnknownIdentity(t *testing.T) {
	svc := NewSQLQueryService(newTestStore(t))

	_, err := svc.Verify(context.Background(), "nobody@x.com")
	requireKind(t, err, ErrIdentityNotFound)
}

func TestVerifyEmptyIdentity(t *testing.T) {
	svc := NewSQLQueryService(newTestStore(t))

	_, err := svc.Verify(context.Background(), "")
	requireKind(t, err, ErrAuthenticationRequired)
}

func TestVerifyKnownIdentity(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "a@b.com", "Ada")
	svc := NewSQLQueryService(store)

	rec, err := svc.Verify(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", rec.Email)
	require.Equal(t, "Ada", rec.FullName)
}

func TestExecuteUnknownIdentityNeverReachesAuthorizer(t *testing.T) {
	svc := NewSQLQueryService(newTestStore(t))

	// An unsafe query from an unknown user fails on verification, not on
	// query content: verification is terminal.
	_, err := svc.Execute(context.Background(), "nobody@x.com", "DROP TABLE users", QueryTypeSQL)
	requireKind(t, err, ErrIdentityNotFound)
}

func TestExecuteScopesRawSQL(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "a@b.com", "Ada")
	seedUser(t, store, "other@user.com", "Other")
	seedFoodLog(t, store, "a@b.com", "oats", "Breakfast", "2026-08-30", 350)
	seedFoodLog(t, store, "other@user.com", "toast", "Breakfast", "2026-08-30", 200)
	svc := NewSQLQueryService(store)

	res, err := svc.Execute(context.Background(), "a@b.com", "SELECT * FROM food_logs", QueryTypeSQL)
	require.NoError(t, err)
	require.Contains(t, res.FinalQuery, "LIMIT 5")
	require.Len(t, res.Rows, 1)
	require.Equal(t, "a@b.com", res.Rows[0]["user_id"])
}

func TestExecuteScopesDisjunctiveWhere(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "me@x.com", "Me")
	seedUser(t, store, "other@user.com", "Other")
	seedFoodLog(t, store, "me@x.com", "oats", "Breakfast", "2026-08-30", 350)
	seedFoodLog(t, store, "other@user.com", "toast", "Breakfast", "2026-08-30", 200)
	svc := NewSQLQueryService(store)

	// A top-level OR must not let AND precedence rebind the scope predicate
	// to the last branch only.
	res, err := svc.Execute(context.Background(), "me@x.com",
		"SELECT * FROM food_logs WHERE calories > 0 OR protein > 0", QueryTypeSQL)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "me@x.com", res.Rows[0]["user_id"])
}

func TestExecuteRejectsScalarSubquery(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "me@x.com", "Me")
	seedFoodLog(t, store, "other@user.com", "secret-snack", "Lunch", "2026-08-30", 100)
	svc := NewSQLQueryService(store)

	_, err := svc.Execute(context.Background(), "me@x.com",
		"SELECT (SELECT food_name FROM food_logs WHERE user_id = 'other@user.com') AS x FROM users",
		QueryTypeSQL)
	requireKind(t, err, ErrUnsafeOperation)
}

func TestExecuteScopesUnionArms(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "me@x.com", "Me")
	seedFoodLog(t, store, "me@x.com", "oats", "Breakfast", "2026-08-30", 350)
	seedFoodLog(t, store, "other@user.com", "toast", "Breakfast", "2026-08-30", 200)
	svc := NewSQLQueryService(store)

	res, err := svc.Execute(context.Background(), "me@x.com",
		"SELECT user_id, food_name FROM food_logs WHERE user_id = 'me@x.com' "+
			"UNION SELECT user_id, food_name FROM food_logs", QueryTypeSQL)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "me@x.com", res.Rows[0]["user_id"])
}

func TestExecuteRejectsForeignPredicate(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "test@example.com", "Test")
	seedUser(t, store, "other@user.com", "Other")
	seedFoodLog(t, store, "other@user.com", "toast", "Breakfast", "2026-08-30", 200)
	svc := NewSQLQueryService(store)

	_, err := svc.Execute(context.Background(), "test@example.com",
		"SELECT * FROM food_logs WHERE user_id = 'other@user.com'", QueryTypeSQL)
	requireKind(t, err, ErrUnsafeOperation)
}

func TestExecuteNaturalCaloriesToday(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "x@y.com", "X")
	today := time.Now().Format("2006-01-02")
	seedFoodLog(t, store, "x@y.com", "oats", "Breakfast", today, 350)
	seedFoodLog(t, store, "x@y.com", "banana", "Breakfast", today, 100)
	seedFoodLog(t, store, "x@y.com", "rice", "Lunch", today, 500)
	seedFoodLog(t, store, "x@y.com", "old rice", "Lunch", "2000-01-01", 999)
	svc := NewSQLQueryService(store)

	res, err := svc.Execute(context.Background(), "x@y.com",
		"How many calories did I eat today?", QueryTypeNatural)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	sums := map[string]float64{}
	for _, row := range res.Rows {
		sums[row["meal_type"].(string)] = row["total_calories"].(float64)
	}
	require.InDelta(t, 450, sums["Breakfast"], 0.001)
	require.InDelta(t, 500, sums["Lunch"], 0.001)
}

func TestExecuteNaturalRecentMeals(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "a@b.com", "Ada")
	for i, food := range []string{"oats", "rice", "eggs", "soup"} {
		seedFoodLog(t, store, "a@b.com", food, "Dinner", fmt.Sprintf("2026-08-2%d", i), 300)
	}
	svc := NewSQLQueryService(store)

	res, err := svc.Execute(context.Background(), "a@b.com", "Show my last 2 meals", QueryTypeNatural)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.Contains(t, res.FinalQuery, "LIMIT 2")
}

func TestExecuteUnrecognizedQueryType(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "a@b.com", "Ada")
	svc := NewSQLQueryService(store)

	_, err := svc.Execute(context.Background(), "a@b.com", "SELECT 1", "graphql")
	requireKind(t, err, ErrUnrecognizedQueryType)
}

func TestExecuteSurfacesStoreErrors(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "a@b.com", "Ada")
	svc := NewSQLQueryService(store)

	_, err := svc.Execute(context.Background(), "a@b.com",
		"SELECT no_such_column FROM food_logs", QueryTypeSQL)
	requireKind(t, err, ErrStore)
}
