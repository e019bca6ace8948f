package domain

// Phase identifies one named step of the generation pipeline.
type Phase string

const (
	PhaseResearch       Phase = "research"
	PhaseOutline        Phase = "outline"
	PhaseWriting        Phase = "writing"
	PhaseImageSelection Phase = "image-selection"
	PhaseQualityControl Phase = "quality-control"
	PhaseValidating     Phase = "validating"
	PhaseUpdating       Phase = "updating"
	PhaseSEOAudit       Phase = "seo-audit"
	PhaseCompleted      Phase = "completed"
)

// PlannedPhase is one entry of a phase plan: the phase tag, the progress
// percentage reported once the phase completes, and whether the phase only
// runs when the preceding quality/validation step reported fixable issues.
type PlannedPhase struct {
	Phase       Phase
	Progress    int
	Conditional bool
}

// PhasePlan is the ordered sequence of phases one pipeline run executes.
// Conditional phases are members of the plan rather than ad hoc branches so
// progress accounting stays consistent when they are skipped.
type PhasePlan []PlannedPhase

// NewPhasePlan returns the full plan for a generation run. The updating and
// seo-audit entries are conditional; when skipped, their progress share folds
// into the phase that follows them.
func NewPhasePlan() PhasePlan {
	return PhasePlan{
		{Phase: PhaseResearch, Progress: 10},
		{Phase: PhaseOutline, Progress: 25},
		{Phase: PhaseWriting, Progress: 50},
		{Phase: PhaseImageSelection, Progress: 65},
		{Phase: PhaseQualityControl, Progress: 75},
		{Phase: PhaseValidating, Progress: 85},
		{Phase: PhaseUpdating, Progress: 90, Conditional: true},
		{Phase: PhaseSEOAudit, Progress: 95, Conditional: true},
		{Phase: PhaseCompleted, Progress: 100},
	}
}

// ProgressFor returns the progress midpoint for a phase, or 0 if the phase
// is not part of the plan.
func (p PhasePlan) ProgressFor(phase Phase) int {
	for _, step := range p {
		if step.Phase == phase {
			return step.Progress
		}
	}
	return 0
}
