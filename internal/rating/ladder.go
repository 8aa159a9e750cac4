package rating

import (
	"math"

	"github.com/streetrush/backend/internal/models"
)

// Title bands. A user's title is the highest band whose threshold does not
// exceed their market value.
const (
	TitleIntern    = "Intern"
	TitleAnalyst   = "Analyst"
	TitleAssociate = "Associate"
	TitleVP        = "VP"
	TitleDirector  = "Director"
	TitleMD        = "MD"
)

type band struct {
	title     string
	threshold int64
}

// Ordered lowest to highest; thresholds are minimum market values.
var bands = []band{
	{TitleIntern, 0},
	{TitleAnalyst, 75_000},
	{TitleAssociate, 150_000},
	{TitleVP, 300_000},
	{TitleDirector, 600_000},
	{TitleMD, 1_200_000},
}

// DefaultMarketValue is assigned when a rating row is lazily created.
const DefaultMarketValue int64 = 60_000

// MinMarketValue is the floor below which a rating can never drop.
const MinMarketValue int64 = 0

// Compensation-delta tuning. These shape how hard a run's winnings move the
// ladder; they are economic knobs, not correctness constraints.
const (
	// NeutralDifficulty is the run average difficulty at which the
	// difficulty factor is 1.0.
	NeutralDifficulty = 3.0
)

func TitleFor(marketValue int64) string {
	title := bands[0].title
	for _, b := range bands {
		if marketValue >= b.threshold {
			title = b.title
		}
	}
	return title
}

func titleRank(title string) int {
	for i, b := range bands {
		if b.title == title {
			return i
		}
	}
	return 0
}

// Outcome is the result of converting a finished run into a rating change.
type Outcome struct {
	CompensationDelta int64
	NewMarketValue    int64
	NewPeak           int64
	NewTitle          string
	TitleChange       *string // "promotion", "demotion", or nil
}

// Finalize converts a run's aggregates into a rating delta. The delta is the
// run's total money scaled by accuracy and by how hard the questions were on
// average, floored so the market value never goes below MinMarketValue.
func Finalize(totalMoney int64, questionsCorrect, questionsAnswered int, avgDifficulty float64, marketValue, peakMarketValue int64) Outcome {
	accuracy := 0.0
	if questionsAnswered > 0 {
		accuracy = float64(questionsCorrect) / float64(questionsAnswered)
	}

	difficultyFactor := avgDifficulty / NeutralDifficulty
	delta := int64(math.Round(float64(totalMoney) * accuracy * difficultyFactor))

	newValue := marketValue + delta
	if newValue < MinMarketValue {
		newValue = MinMarketValue
		delta = newValue - marketValue
	}

	newPeak := peakMarketValue
	if newValue > newPeak {
		newPeak = newValue
	}

	oldTitle := TitleFor(marketValue)
	newTitle := TitleFor(newValue)

	var titleChange *string
	switch {
	case newValue > marketValue && titleRank(newTitle) > titleRank(oldTitle):
		c := models.TitleChangePromotion
		titleChange = &c
	case newValue < marketValue && titleRank(newTitle) < titleRank(oldTitle):
		c := models.TitleChangeDemotion
		titleChange = &c
	}

	return Outcome{
		CompensationDelta: delta,
		NewMarketValue:    newValue,
		NewPeak:           newPeak,
		NewTitle:          newTitle,
		TitleChange:       titleChange,
	}
}
