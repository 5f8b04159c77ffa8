package services

import "math"

// XP award actions and amounts.
const (
	XPActionModuleCompleted = "module_completed"
	XPActionCourseCompleted = "course_completed"
	XPActionReviewWritten   = "review_written"
	XPActionCourseEnrolled  = "course_enrolled"
	XPActionDailyStreak     = "daily_streak"

	XPAmountModuleCompleted = 25
	XPAmountCourseCompleted = 100
	XPAmountReviewWritten   = 10
	XPAmountCourseEnrolled  = 5

	// Streak bonus: streak*2 capped here.
	XPStreakBonusCap = 20
)

// CalculateLevel maps a total XP amount to a level, starting at 1.
func CalculateLevel(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return int(math.Floor(math.Sqrt(float64(totalXP)/100.0))) + 1
}

// XPForLevel returns the minimum total XP required to reach the level.
func XPForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return (level - 1) * (level - 1) * 100
}

// StreakBonus returns the XP bonus for the first action of a day.
func StreakBonus(streakDays int) int {
	if streakDays < 1 {
		return 0
	}
	bonus := streakDays * 2
	if bonus > XPStreakBonusCap {
		bonus = XPStreakBonusCap
	}
	return bonus
}
