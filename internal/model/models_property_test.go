// Property-based tests for the streak transition logic.
package model

import (
	"testing"

	"pgregory.net/rapid"
)

// TestApplyGameResultProperty: for any sequence of wins and losses,
//   - total_games equals the number of applied results,
//   - current_streak equals the length of the trailing win run,
//   - best_streak equals the longest win run seen,
//   - best_streak >= current_streak after every step.
func TestApplyGameResultProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		results := rapid.SliceOfN(rapid.Bool(), 0, 200).Draw(t, "results")

		var u User
		run, best, trailing := 0, 0, 0
		for i, isWin := range results {
			u.ApplyGameResult(isWin)

			if isWin {
				run++
				if run > best {
					best = run
				}
			} else {
				run = 0
			}
			trailing = run

			if u.BestStreak < u.CurrentStreak {
				t.Fatalf("step %d: best_streak %d < current_streak %d",
					i, u.BestStreak, u.CurrentStreak)
			}
		}

		if u.TotalGames != len(results) {
			t.Fatalf("total_games = %d, want %d", u.TotalGames, len(results))
		}
		if u.CurrentStreak != trailing {
			t.Fatalf("current_streak = %d, want %d", u.CurrentStreak, trailing)
		}
		if u.BestStreak != best {
			t.Fatalf("best_streak = %d, want %d", u.BestStreak, best)
		}
	})
}

// TestApplyGameResultLossResets: a loss always zeroes the current streak
// and never lowers the best streak.
func TestApplyGameResultLossResets(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u := User{
			TotalGames:    rapid.IntRange(0, 1000).Draw(t, "total"),
			CurrentStreak: rapid.IntRange(0, 100).Draw(t, "current"),
		}
		u.BestStreak = u.CurrentStreak + rapid.IntRange(0, 100).Draw(t, "slack")
		before := u

		u.ApplyGameResult(false)

		if u.CurrentStreak != 0 {
			t.Fatalf("current_streak = %d after loss", u.CurrentStreak)
		}
		if u.BestStreak != before.BestStreak {
			t.Fatalf("best_streak changed on loss: %d -> %d", before.BestStreak, u.BestStreak)
		}
		if u.TotalGames != before.TotalGames+1 {
			t.Fatalf("total_games = %d, want %d", u.TotalGames, before.TotalGames+1)
		}
	})
}
