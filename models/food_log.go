package models

import "gorm.io/gorm"

// One FoodLog per (user, food, meal slot, date). Immutable once written
// except the Recommended provenance flag.
type FoodLog struct {
    gorm.Model
    UserEmail   string `gorm:"index;not null"`
    FoodName    string `gorm:"not null"`
    MealType    string // Breakfast|Lunch|Dinner|Snack
    LogDate     string // YYYY-MM-DD
    Quantity    float64
    Calories    float64
    Protein     float64
    Carbs       float64
    Fat         float64
    Recommended bool // suggested by the model vs logged manually
}
