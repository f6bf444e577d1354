package orchestrator

import (
	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
)

// BattleRegion holds the battle message box.
var BattleRegion = frame.Region{Top: 0.6, Bottom: 0.75, Left: 0.15, Right: 0.45}

// PhaseRegions is where to read opponent names for one battle phase.
// Masks are relative to the Name crop.
type PhaseRegions struct {
	Name        frame.Region
	StatusMasks []frame.Region
	HPBarMasks  []frame.Region
}

// Masks returns status masks then HP bar masks, the order they are painted.
func (p PhaseRegions) Masks() []frame.Region {
	out := make([]frame.Region, 0, len(p.StatusMasks)+len(p.HPBarMasks))
	out = append(out, p.StatusMasks...)
	return append(out, p.HPBarMasks...)
}

var phaseRegions = map[encounter.Phase]PhaseRegions{
	encounter.PhaseHorde: {
		Name: frame.Region{Top: 0.05, Bottom: 0.2, Left: 0.3, Right: 0.70},
		HPBarMasks: []frame.Region{
			{Top: 0.3, Bottom: 0.43, Left: 0, Right: 1},
			{Top: 0.55, Bottom: 0.7, Left: 0, Right: 1},
		},
	},
	encounter.PhaseSingle: {
		Name:        frame.Region{Top: 0.1, Bottom: 0.2, Left: 0.15, Right: 0.3},
		StatusMasks: []frame.Region{{Top: 0.25, Bottom: 0.45, Left: 0.1, Right: 0.15}},
		HPBarMasks:  []frame.Region{{Top: 0.45, Bottom: 0.65, Left: 0, Right: 1}},
	},
}

// RegionsFor returns the regions of phase; unknown phases read as single battles.
func RegionsFor(phase encounter.Phase) PhaseRegions {
	if r, ok := phaseRegions[phase]; ok {
		return r
	}
	return phaseRegions[encounter.PhaseSingle]
}
