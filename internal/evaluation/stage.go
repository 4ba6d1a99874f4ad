package evaluation

// Stage is the progress of one question through the panel.
type Stage int

// Stages in the order a question passes through them.
const (
	StagePendingOpinions Stage = iota
	StageOpinionsCollected
	StageConsensusPending
	StageConsensusDone
)

func (s Stage) String() string {
	switch s {
	case StagePendingOpinions:
		return "pending_opinions"
	case StageOpinionsCollected:
		return "opinions_collected"
	case StageConsensusPending:
		return "consensus_pending"
	case StageConsensusDone:
		return "consensus_done"
	default:
		return "unknown"
	}
}

// next returns the stage that follows s. The last stage is terminal.
func (s Stage) next() Stage {
	if s >= StageConsensusDone {
		return StageConsensusDone
	}
	return s + 1
}
