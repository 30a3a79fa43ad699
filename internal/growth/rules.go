/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package growth

import (
	"fmt"
	"time"

	"gro-garden-sync/internal/models"
)

// DateLayout is the ISO calendar date format used for streak dates
const DateLayout = "2006-01-02"

// Stage returns the most advanced stage whose age and deposit thresholds are both met
func Stage(daysSincePlanted, totalDeposits int) models.GrowthStage {
	for i := len(models.StageThresholds) - 1; i >= 0; i-- {
		t := models.StageThresholds[i]
		if daysSincePlanted >= t.MinDays && totalDeposits >= t.MinDeposits {
			return t.Stage
		}
	}
	return models.StageSeed
}

// Health decays by 2 points per hour after the first day without water
func Health(hoursSinceWatered int64) int {
	if hoursSinceWatered <= 24 {
		return 100
	}
	return clamp(100-2*(hoursSinceWatered-24), 0, 100)
}

func clamp(v, lo, hi int64) int {
	if v < lo {
		return int(lo)
	}
	if v > hi {
		return int(hi)
	}
	return int(v)
}

// Tier buckets a health score
func Tier(health int) models.HealthTier {
	switch {
	case health >= 80:
		return models.HealthVibrant
	case health >= 50:
		return models.HealthNeedsAttention
	case health >= 20:
		return models.HealthWilting
	default:
		return models.HealthDormant
	}
}

// Multiplier rewards longer streaks with faster growth
func Multiplier(currentStreak int) float64 {
	switch {
	case currentStreak >= 14:
		return 2.0
	case currentStreak >= 7:
		return 1.5
	case currentStreak >= 3:
		return 1.25
	default:
		return 1.0
	}
}

// Weather is golden hour while anything blooms, otherwise it follows the streak
func Weather(streak *models.Streak, plants []models.Plant) models.Weather {
	for _, p := range plants {
		if p.GrowthStage == models.StageBlooming {
			return models.WeatherGoldenHour
		}
	}

	current := 0
	if streak != nil {
		current = streak.CurrentStreak
	}
	switch {
	case current >= 5:
		return models.WeatherSunny
	case current >= 2:
		return models.WeatherPartlyCloudy
	case current >= 1:
		return models.WeatherCloudy
	default:
		return models.WeatherRainy
	}
}

// HoursSince is the number of whole hours elapsed between from and now
func HoursSince(from, now time.Time) int64 {
	if now.Before(from) {
		return 0
	}
	return int64(now.Sub(from) / time.Hour)
}

// DaysSince is the number of whole days elapsed between from and now
func DaysSince(from, now time.Time) int {
	return int(HoursSince(from, now) / 24)
}

// DateOf formats t as a calendar date in t's own location
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween counts calendar days from a to b. It is negative when b is before a.
func DaysBetween(a, b string) (int, error) {
	from, err := time.Parse(DateLayout, a)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", a, err)
	}
	to, err := time.Parse(DateLayout, b)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", b, err)
	}
	return int(to.Sub(from).Hours() / 24), nil
}

// NextStreak applies one activity on today to existing. changed is false when
// the streak is unaffected (same day, or a date earlier than the last activity).
func NextStreak(existing *models.Streak, wallet, today string) (next models.Streak, changed bool, err error) {
	if _, err := time.Parse(DateLayout, today); err != nil {
		return models.Streak{}, false, fmt.Errorf("invalid date %q: %w", today, err)
	}

	if existing == nil {
		return models.Streak{
			WalletAddress:   wallet,
			CurrentStreak:   1,
			LongestStreak:   1,
			LastActiveDate:  today,
			TotalActiveDays: 1,
		}, true, nil
	}

	next = *existing
	days, err := DaysBetween(existing.LastActiveDate, today)
	if err != nil {
		return next, false, err
	}

	switch {
	case days <= 0:
		return next, false, nil
	case days == 1:
		next.CurrentStreak++
		if next.CurrentStreak > next.LongestStreak {
			next.LongestStreak = next.CurrentStreak
		}
	default:
		next.CurrentStreak = 1
	}
	next.TotalActiveDays++
	next.LastActiveDate = today
	return next, true, nil
}

// VisitStage estimates a stage for a wallet we only know the balance of
func VisitStage(rawAmount uint64) models.GrowthStage {
	switch {
	case rawAmount > 10_000_000_000:
		return models.StageBlooming
	case rawAmount > 1_000_000_000:
		return models.StageMature
	case rawAmount > 100_000_000:
		return models.StageSapling
	case rawAmount > 10_000_000:
		return models.StageSprout
	default:
		return models.StageSeed
	}
}

// NextGridPosition returns the first free cell scanning rows top to bottom,
// then columns left to right. A full grid falls back to (0,0).
func NextGridPosition(plants []models.Plant) (x, y int) {
	occupied := make(map[[2]int]bool, len(plants))
	for _, p := range plants {
		occupied[[2]int{p.GridX, p.GridY}] = true
	}
	for y := 0; y < models.GridRows; y++ {
		for x := 0; x < models.GridColumns; x++ {
			if !occupied[[2]int{x, y}] {
				return x, y
			}
		}
	}
	return 0, 0
}

// Recompute returns p with health and stage evaluated at now, and whether either changed
func Recompute(p models.Plant, now time.Time) (models.Plant, bool) {
	health := Health(HoursSince(p.LastWateredAt, now))
	stage := Stage(DaysSince(p.PlantedAt, now), p.TotalDeposits)
	if health == p.HealthScore && stage == p.GrowthStage {
		return p, false
	}
	p.HealthScore = health
	p.GrowthStage = stage
	return p, true
}
