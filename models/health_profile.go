package models

import (
    "time"

    "gorm.io/gorm"
)

// HealthProfile rows are append-only in the primary database; the query store
// keeps only the newest snapshot per user.
type HealthProfile struct {
    gorm.Model
    UserEmail         string `gorm:"index;not null"`
    Age               int
    Birthday          time.Time
    Weight            float64 // kg
    Height            float64 // cm
    ActivityLevel     string  // sedentary|light|moderate|active
    DietaryPreference string  // e.g. vegetarian, vegan, none
    Goals             string
}
