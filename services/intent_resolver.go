package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const defaultRecentMeals = 3

// intentRule pairs a trigger predicate with a template builder. Rules are
// evaluated in table order and the first match wins, so earlier entries take
// precedence when several phrases co-occur.
type intentRule struct {
	name  string
	match func(q string) bool
	build func(identity, q string) string
}

// IntentResolver maps a fixed vocabulary of natural-language questions to
// parametrized SQL templates. The output embeds the identity directly and is
// still re-validated by the authorizer before execution.
type IntentResolver struct {
	rules []intentRule
}

func NewIntentResolver() *IntentResolver {
	return &IntentResolver{rules: []intentRule{
		{
			name: "recent_meals",
			match: func(q string) bool {
				return strings.Contains(q, "last") && strings.Contains(q, "meal")
			},
			build: func(identity, q string) string {
				return recentMealsQuery(identity, extractCount(q, defaultRecentMeals))
			},
		},
		{
			name: "calories_today",
			match: func(q string) bool {
				return strings.Contains(q, "calories") && strings.Contains(q, "today")
			},
			build: func(identity, q string) string {
				return fmt.Sprintf(
					"SELECT meal_type, SUM(calories) AS total_calories FROM food_logs "+
						"WHERE user_id = '%s' AND log_date = DATE('now', 'localtime') "+
						"GROUP BY meal_type ORDER BY meal_type",
					sqlEscape(identity))
			},
		},
		{
			name: "protein_week",
			match: func(q string) bool {
				return strings.Contains(q, "protein") && strings.Contains(q, "week")
			},
			build: func(identity, q string) string {
				return fmt.Sprintf(
					"SELECT log_date, SUM(protein) AS total_protein FROM food_logs "+
						"WHERE user_id = '%s' AND log_date >= DATE('now', '-7 days') "+
						"GROUP BY log_date ORDER BY log_date DESC LIMIT 7",
					sqlEscape(identity))
			},
		},
		{
			name: "recommendations",
			match: func(q string) bool {
				return strings.Contains(q, "recommend")
			},
			build: func(identity, q string) string {
				return fmt.Sprintf(
					"SELECT meal_type, food_name, quantity, calories, protein, carbs, fat, accepted "+
						"FROM recommendations WHERE user_id = '%s' "+
						"ORDER BY meal_type, calories DESC LIMIT 50",
					sqlEscape(identity))
			},
		},
		{
			name: "profile",
			match: func(q string) bool {
				return strings.Contains(q, "profile") || strings.Contains(q, "info")
			},
			build: func(identity, q string) string {
				return fmt.Sprintf(
					"SELECT u.email, u.full_name, p.age, p.weight, p.height, "+
						"p.activity_level, p.dietary_preference, p.goals "+
						"FROM users u JOIN user_profiles p ON p.user_id = u.email "+
						"WHERE u.email = '%s' ORDER BY p.updated_at DESC LIMIT 1",
					sqlEscape(identity))
			},
		},
	}}
}

// Resolve returns the template for the first matching rule, or the
// recent-meals fallback when nothing matches.
func (r *IntentResolver) Resolve(text, identity string) string {
	q := strings.ToLower(text)
	for _, rule := range r.rules {
		if rule.match(q) {
			return rule.build(identity, q)
		}
	}
	return recentMealsQuery(identity, defaultRecentMeals)
}

var digitsRE = regexp.MustCompile(`\d+`)

// extractCount pulls the first number out of the question ("last 10 meals"),
// falling back to def when absent or unusable.
func extractCount(q string, def int) int {
	m := digitsRE.FindString(q)
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func sqlEscape(s string) string { return strings.ReplaceAll(s, "'", "''") }

func recentMealsQuery(identity string, count int) string {
	return fmt.Sprintf(
		"SELECT food_name, meal_type, quantity, calories, protein, carbs, fat, log_date "+
			"FROM food_logs WHERE user_id = '%s' "+
			"ORDER BY log_date DESC, created_at DESC LIMIT %d",
		sqlEscape(identity), count)
}
