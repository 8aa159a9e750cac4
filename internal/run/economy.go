package run

import (
	"math"

	"github.com/streetrush/backend/internal/models"
	"github.com/streetrush/backend/internal/rating"
)

// Payout and penalty tuning. Everything money-related flows through these
// constants so the economy can be rebalanced in one place.
const (
	// Base payout per difficulty, indexed by difficulty-1.
	payoutD1 = 100
	payoutD2 = 200
	payoutD3 = 350
	payoutD4 = 550
	payoutD5 = 800

	// Speed multiplier saturates at this value when answering instantly.
	maxSpeedMultiplier = 1.5

	// Streak bonus: streakBonusRate per consecutive correct answer, counted
	// up to streakBonusCap answers.
	streakBonusRate = 25
	streakBonusCap  = 10

	// Base penalty per difficulty, indexed by difficulty-1. Missing an easy
	// question costs more than missing a hard one.
	penaltyD1 = 500
	penaltyD2 = 425
	penaltyD3 = 350
	penaltyD4 = 275
	penaltyD5 = 200

	// An active streak softens a miss by streakShieldRate per streak point,
	// to at most streakShieldMax of the base penalty.
	streakShieldRate = 0.05
	streakShieldMax  = 0.5

	// Difficulty moves by fastStepSize instead of 1 once the streak reaches
	// fastStepStreak.
	fastStepStreak = 6
	fastStepSize   = 2
)

var basePayouts = [...]int64{payoutD1, payoutD2, payoutD3, payoutD4, payoutD5}

var basePenalties = [...]int64{penaltyD1, penaltyD2, penaltyD3, penaltyD4, penaltyD5}

// titlePenaltyMultiplier scales penalties up with seniority. A Managing
// Director bleeds twice as fast as an Intern.
var titlePenaltyMultiplier = map[string]float64{
	rating.TitleIntern:    1.0,
	rating.TitleAnalyst:   1.2,
	rating.TitleAssociate: 1.4,
	rating.TitleVP:        1.6,
	rating.TitleDirector:  1.8,
	rating.TitleMD:        2.0,
}

// EconomyConfig carries the policy knobs that vary per deployment rather
// than per answer.
type EconomyConfig struct {
	// PartialCredit grants fractional scores on multi_select answers that
	// overlap the correct set without matching it exactly. When false every
	// answer is all-or-nothing.
	PartialCredit bool
}

// DefaultEconomyConfig returns the standard staging economy.
func DefaultEconomyConfig() EconomyConfig {
	return EconomyConfig{PartialCredit: true}
}

// Score compares a canonical response against a canonical correct key and
// returns a score in [0, 1]. Both inputs must already be normalized with
// the same format rules.
func (c EconomyConfig) Score(format models.QuestionFormat, correctKey, response string) float64 {
	if response == correctKey {
		return 1.0
	}
	if format == models.FormatMultiSelect && c.PartialCredit {
		return jaccard(setElements(correctKey), setElements(response))
	}
	return 0.0
}

// jaccard returns the intersection-over-union of two label sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inA := make(map[string]bool, len(a))
	for _, l := range a {
		inA[l] = true
	}
	union := len(inA)
	intersection := 0
	for _, l := range b {
		if inA[l] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// MoneyAwarded computes the payout for an answer with score > 0. The base
// payout for the question's difficulty is scaled by a speed multiplier, a
// streak bonus is added, and the total is scaled by the score. Returns 0
// for a score of 0.
//
// streak is the streak value before this answer is applied.
func (c EconomyConfig) MoneyAwarded(score float64, difficulty int, timeTakenSec, expectedTimeSec float64, streak int) int64 {
	if score <= 0 {
		return 0
	}

	base := float64(basePayouts[clampDifficultyIndex(difficulty)])
	base *= speedMultiplier(timeTakenSec, expectedTimeSec)

	bonusStreak := streak
	if bonusStreak > streakBonusCap {
		bonusStreak = streakBonusCap
	}
	base += float64(bonusStreak * streakBonusRate)

	return int64(math.Round(base * score))
}

// speedMultiplier rewards answering under the expected time. At or above
// the expected time the multiplier is 1.0; an instant answer earns
// maxSpeedMultiplier. In between it interpolates linearly.
func speedMultiplier(timeTakenSec, expectedTimeSec float64) float64 {
	if expectedTimeSec <= 0 || timeTakenSec >= expectedTimeSec {
		return 1.0
	}
	if timeTakenSec < 0 {
		timeTakenSec = 0
	}
	saved := (expectedTimeSec - timeTakenSec) / expectedTimeSec
	return 1.0 + saved*(maxSpeedMultiplier-1.0)
}

// MoneyPenalty computes the deduction for an answer with score 0. Easy
// misses cost more than hard ones, an active streak shields part of the
// loss, and seniority scales the result up. Returns 0 when score > 0.
//
// The returned value is positive; callers subtract it from total money,
// which may go negative.
func (c EconomyConfig) MoneyPenalty(score float64, difficulty, streak int, title string) int64 {
	if score > 0 {
		return 0
	}

	base := float64(basePenalties[clampDifficultyIndex(difficulty)])

	shield := float64(streak) * streakShieldRate
	if shield > streakShieldMax {
		shield = streakShieldMax
	}
	base *= 1.0 - shield

	mult, ok := titlePenaltyMultiplier[title]
	if !ok {
		mult = 1.0
	}
	return int64(math.Round(base * mult))
}

// NextRunState returns the streak, lives and difficulty after an answer.
// A miss costs a life, resets the streak and eases difficulty one step.
// A hit extends the streak and raises difficulty, stepping faster on long
// streaks. Difficulty always stays within [MinDifficulty, MaxDifficulty];
// lives never go below zero.
func NextRunState(correct bool, streak, lives, difficulty int) (newStreak, newLives, newDifficulty int) {
	if correct {
		newStreak = streak + 1
		newLives = lives
		step := 1
		if newStreak >= fastStepStreak {
			step = fastStepSize
		}
		newDifficulty = clampDifficulty(difficulty + step)
		return
	}

	newStreak = 0
	newLives = lives - 1
	if newLives < 0 {
		newLives = 0
	}
	newDifficulty = clampDifficulty(difficulty - 1)
	return
}

func clampDifficulty(d int) int {
	if d < models.MinDifficulty {
		return models.MinDifficulty
	}
	if d > models.MaxDifficulty {
		return models.MaxDifficulty
	}
	return d
}

func clampDifficultyIndex(d int) int {
	return clampDifficulty(d) - 1
}
