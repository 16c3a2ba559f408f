package service

import "drying_oven/internal/models"

// DefaultPresets is the built-in filament drying table.
func DefaultPresets() []models.Preset {
	return []models.Preset{
		{ID: 1, Name: "PLA", TargetTempC: 45, DurationSec: 4 * 3600, Rotary: true,
			Post: models.PostCycle{FanSpeed: models.Fan230Slow, DurationSec: 10 * 60}},
		{ID: 2, Name: "PETG", TargetTempC: 65, DurationSec: 4 * 3600, Rotary: true,
			Post: models.PostCycle{FanSpeed: models.Fan230Slow, DurationSec: 10 * 60}},
		{ID: 3, Name: "ABS", TargetTempC: 80, DurationSec: 4 * 3600, Rotary: true,
			Post: models.PostCycle{FanSpeed: models.Fan230Fast, DurationSec: 15 * 60}},
		{ID: 4, Name: "TPU", TargetTempC: 50, DurationSec: 5 * 3600},
		{ID: 5, Name: "Nylon", TargetTempC: 75, DurationSec: 8 * 3600, Rotary: true,
			Post: models.PostCycle{FanSpeed: models.Fan230Fast, DurationSec: 20 * 60}},
		{ID: 6, Name: "Silica regen", TargetTempC: 85, DurationSec: 2 * 3600, Rotary: true},
	}
}

func findPreset(presets []models.Preset, id int) (models.Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return models.Preset{}, false
}
