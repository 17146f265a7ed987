package querystore

// DDL for the four query tables. Applied on every Open; IF NOT EXISTS keeps
// restarts idempotent.
const (
	createUsers = `CREATE TABLE IF NOT EXISTS users (
    email TEXT PRIMARY KEY,
    full_name TEXT,
    password_hash TEXT,
    created_at TEXT
);`

	createUserProfiles = `CREATE TABLE IF NOT EXISTS user_profiles (
    user_id TEXT PRIMARY KEY,
    age INTEGER,
    weight REAL,
    height REAL,
    activity_level TEXT,
    dietary_preference TEXT,
    goals TEXT,
    updated_at TEXT
);`

	createFoodLogs = `CREATE TABLE IF NOT EXISTS food_logs (
    user_id TEXT NOT NULL,
    food_name TEXT NOT NULL,
    meal_type TEXT NOT NULL,
    log_date TEXT NOT NULL,
    quantity REAL,
    calories REAL,
    protein REAL,
    carbs REAL,
    fat REAL,
    recommended INTEGER NOT NULL DEFAULT 0,
    created_at TEXT,
    PRIMARY KEY (user_id, food_name, meal_type, log_date)
);`

	createRecommendations = `CREATE TABLE IF NOT EXISTS recommendations (
    user_id TEXT NOT NULL,
    meal_type TEXT NOT NULL,
    food_name TEXT NOT NULL,
    quantity REAL,
    calories REAL,
    protein REAL,
    carbs REAL,
    fat REAL,
    accepted INTEGER NOT NULL DEFAULT 0,
    taken_at TEXT,
    PRIMARY KEY (user_id, meal_type, food_name)
);`
)

var schemaDDL = []string{createUsers, createUserProfiles, createFoodLogs, createRecommendations}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type TableInfo struct {
	Name        string   `json:"name"`
	ScopeColumn string   `json:"scope_column"`
	Columns     []Column `json:"columns"`
}

// Schema describes the query tables for the schema endpoint. Kept in step
// with the DDL above by hand.
func (s *Store) Schema() []TableInfo {
	return []TableInfo{
		{
			Name:        "users",
			ScopeColumn: "email",
			Columns: []Column{
				{"email", "TEXT"}, {"full_name", "TEXT"},
				{"password_hash", "TEXT"}, {"created_at", "TEXT"},
			},
		},
		{
			Name:        "user_profiles",
			ScopeColumn: "user_id",
			Columns: []Column{
				{"user_id", "TEXT"}, {"age", "INTEGER"}, {"weight", "REAL"},
				{"height", "REAL"}, {"activity_level", "TEXT"},
				{"dietary_preference", "TEXT"}, {"goals", "TEXT"},
				{"updated_at", "TEXT"},
			},
		},
		{
			Name:        "food_logs",
			ScopeColumn: "user_id",
			Columns: []Column{
				{"user_id", "TEXT"}, {"food_name", "TEXT"},
				{"meal_type", "TEXT"}, {"log_date", "TEXT"},
				{"quantity", "REAL"}, {"calories", "REAL"},
				{"protein", "REAL"}, {"carbs", "REAL"}, {"fat", "REAL"},
				{"recommended", "INTEGER"}, {"created_at", "TEXT"},
			},
		},
		{
			Name:        "recommendations",
			ScopeColumn: "user_id",
			Columns: []Column{
				{"user_id", "TEXT"}, {"meal_type", "TEXT"},
				{"food_name", "TEXT"}, {"quantity", "REAL"},
				{"calories", "REAL"}, {"protein", "REAL"},
				{"carbs", "REAL"}, {"fat", "REAL"},
				{"accepted", "INTEGER"}, {"taken_at", "TEXT"},
			},
		},
	}
}
