package orchestrator

import (
	"fmt"

	"github.com/GriffinCanCode/encounter-tracker/internal/encounter"
)

// WorkKind tags a WorkItem.
type WorkKind int

const (
	KindCheckBattleStart WorkKind = iota
	KindScanEncounter
	KindShutdown
)

// WorkItem is the closed set of jobs the scan worker accepts. It doubles as
// the scheduler state: CheckBattleStart is AwaitingBattle, ScanEncounter is
// ScanningEncounter(Phase, Attempt).
type WorkItem struct {
	Kind    WorkKind
	Phase   encounter.Phase
	Attempt int
}

func CheckBattleStart() WorkItem { return WorkItem{Kind: KindCheckBattleStart} }

func ScanEncounter(phase encounter.Phase, attempt int) WorkItem {
	return WorkItem{Kind: KindScanEncounter, Phase: phase, Attempt: attempt}
}

func Shutdown() WorkItem { return WorkItem{Kind: KindShutdown} }

func (w WorkItem) String() string {
	switch w.Kind {
	case KindCheckBattleStart:
		return "AwaitingBattle"
	case KindScanEncounter:
		return fmt.Sprintf("ScanningEncounter(%s, %d)", w.Phase, w.Attempt)
	case KindShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("WorkItem(%d)", int(w.Kind))
	}
}
