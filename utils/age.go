package utils

import "time"

// CalculateAge returns whole years between birthday and now.
func CalculateAge(birthday time.Time) int {
	return ageAt(birthday, time.Now())
}

// ageAt compares calendar month and day, not day-of-year: day-of-year shifts
// by one between leap and non-leap years and miscounts around the birthday.
func ageAt(birthday, now time.Time) int {
	age := now.Year() - birthday.Year()
	if now.Month() < birthday.Month() ||
		(now.Month() == birthday.Month() && now.Day() < birthday.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
