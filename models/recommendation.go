package models

import (
    "time"

    "gorm.io/gorm"
)

type Recommendation struct {
    gorm.Model
    UserEmail string `gorm:"index;not null"`
    MealType  string
    FoodName  string
    Quantity  float64
    Calories  float64
    Protein   float64
    Carbs     float64
    Fat       float64
    Accepted  bool
    TakenAt   *time.Time // set only when Accepted
}
