package progress

import "math"

// Phase names one coaching phase dimension. The set is fixed; scores are
// always fully populated and clamped to [0,1].
type Phase string

const (
	PhaseGoal    Phase = "goal"
	PhaseReality Phase = "reality"
	PhaseOptions Phase = "options"
	PhaseWill    Phase = "will"
)

// Mode names one coaching mode dimension.
type Mode string

const (
	ModeSupportive  Mode = "supportive"
	ModeChallenging Mode = "challenging"
	ModeExploratory Mode = "exploratory"
	ModeDirective   Mode = "directive"
)

// Phases returns the fixed phase set in canonical order.
func Phases() []Phase {
	return []Phase{PhaseGoal, PhaseReality, PhaseOptions, PhaseWill}
}

// Modes returns the fixed mode set in canonical order.
func Modes() []Mode {
	return []Mode{ModeSupportive, ModeChallenging, ModeExploratory, ModeDirective}
}

// Snapshot is the analyzer's current view of session progress.
type Snapshot struct {
	PhaseScores    map[Phase]float64
	ModeConfidence map[Mode]float64
	CurrentPhase   Phase
	CurrentMode    Mode
	Note           string
	SummaryReady   bool
}

func emptySnapshot() Snapshot {
	snapshot := Snapshot{
		PhaseScores:    make(map[Phase]float64, len(Phases())),
		ModeConfidence: make(map[Mode]float64, len(Modes())),
		CurrentPhase:   PhaseGoal,
		CurrentMode:    ModeSupportive,
	}
	for _, phase := range Phases() {
		snapshot.PhaseScores[phase] = 0
	}
	for _, mode := range Modes() {
		snapshot.ModeConfidence[mode] = 0
	}
	return snapshot
}

func cloneSnapshot(snapshot Snapshot) Snapshot {
	clone := snapshot
	clone.PhaseScores = make(map[Phase]float64, len(snapshot.PhaseScores))
	for phase, score := range snapshot.PhaseScores {
		clone.PhaseScores[phase] = score
	}
	clone.ModeConfidence = make(map[Mode]float64, len(snapshot.ModeConfidence))
	for mode, score := range snapshot.ModeConfidence {
		clone.ModeConfidence[mode] = score
	}
	return clone
}

// clampScore forces a score into [0,1]; NaN collapses to 0.
func clampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Min(1, math.Max(0, score))
}

const (
	// readinessWillThreshold is the minimum will score before wrap-up is
	// suggested. Will carries the most weight: without commitment there is
	// nothing to wrap up.
	readinessWillThreshold = 0.65
	// readinessMeanThreshold is the minimum average across all phases.
	readinessMeanThreshold = 0.6
)

// computedReadiness derives wrap-up readiness from phase scores when the
// upstream payload omits an explicit flag.
func computedReadiness(phases map[Phase]float64) bool {
	if len(phases) == 0 {
		return false
	}

	sum := 0.0
	for _, phase := range Phases() {
		sum += phases[phase]
	}
	mean := sum / float64(len(Phases()))

	return phases[PhaseWill] >= readinessWillThreshold && mean >= readinessMeanThreshold
}

func highestPhase(phases map[Phase]float64) Phase {
	best := PhaseGoal
	bestScore := math.Inf(-1)
	for _, phase := range Phases() {
		if score := phases[phase]; score > bestScore {
			best = phase
			bestScore = score
		}
	}
	return best
}

func highestMode(modes map[Mode]float64) Mode {
	best := ModeSupportive
	bestScore := math.Inf(-1)
	for _, mode := range Modes() {
		if score := modes[mode]; score > bestScore {
			best = mode
			bestScore = score
		}
	}
	return best
}
