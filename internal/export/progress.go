package export

// Phase is a step of an export run.
type Phase string

const (
	PhaseRasterizing  Phase = "rasterizing"
	PhaseEncoding     Phase = "encoding"
	PhaseAccumulating Phase = "accumulating"
	PhaseFinalizing   Phase = "finalizing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Progress is emitted to subscribers as an export advances.
type Progress struct {
	// Index is the record being processed
	Index int `json:"index"`
	// Total is the number of records in the run; 1 for single exports
	Total int    `json:"total"`
	Phase Phase  `json:"phase"`
	Batch bool   `json:"batch"`
	Error string `json:"error,omitempty"`
}

// Fraction returns completed work in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	switch p.Phase {
	case PhaseDone:
		return 1
	case PhaseAccumulating:
		return float64(p.Index+1) / float64(p.Total)
	case PhaseFinalizing:
		return 1
	default:
		return float64(p.Index) / float64(p.Total)
	}
}

// State is the observable status of a pipeline.
type State struct {
	CurrentIndex int  `json:"currentIndex"`
	IsGenerating bool `json:"isGenerating"`
}
