package services

import "testing"

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		name    string
		totalXP int
		want    int
	}{
		{"zero xp", 0, 1},
		{"just below level 2", 99, 1},
		{"level 2 boundary", 100, 2},
		{"mid level 2", 250, 2},
		{"level 3 boundary", 400, 3},
		{"level 4 boundary", 900, 4},
		{"level 5 boundary", 1600, 5},
		{"negative clamps to level 1", -50, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculateLevel(tc.totalXP); got != tc.want {
				t.Fatalf("CalculateLevel(%d) = %d, want %d", tc.totalXP, got, tc.want)
			}
		})
	}
}

func TestXPForLevelRoundTrip(t *testing.T) {
	// XPForLevel(n) must be exactly the first XP amount mapping to level n,
	// and one XP less must still map to level n-1.
	for level := 1; level <= 20; level++ {
		floor := XPForLevel(level)
		if got := CalculateLevel(floor); got != level {
			t.Fatalf("CalculateLevel(XPForLevel(%d)) = %d, want %d", level, got, level)
		}
		if level > 1 {
			if got := CalculateLevel(floor - 1); got != level-1 {
				t.Fatalf("CalculateLevel(%d) = %d, want %d", floor-1, got, level-1)
			}
		}
	}
}

func TestXPForLevelMonotonic(t *testing.T) {
	prev := XPForLevel(1)
	if prev != 0 {
		t.Fatalf("XPForLevel(1) = %d, want 0", prev)
	}
	for level := 2; level <= 30; level++ {
		cur := XPForLevel(level)
		if cur <= prev {
			t.Fatalf("XPForLevel(%d) = %d, not greater than XPForLevel(%d) = %d", level, cur, level-1, prev)
		}
		prev = cur
	}
}

func TestStreakBonus(t *testing.T) {
	cases := []struct {
		name   string
		streak int
		want   int
	}{
		{"no streak", 0, 0},
		{"negative", -3, 0},
		{"one day", 1, 2},
		{"five days", 5, 10},
		{"at cap", 10, 20},
		{"beyond cap", 30, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StreakBonus(tc.streak); got != tc.want {
				t.Fatalf("StreakBonus(%d) = %d, want %d", tc.streak, got, tc.want)
			}
		})
	}
}
