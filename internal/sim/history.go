package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/kinematics"
)

// History is the ordered record of a run, baseline first.
type History struct {
	Records []StepRecord
}

func (h *History) Len() int { return len(h.Records) }

// States returns the packed state of every record.
func (h *History) States() [][]float64 {
	out := make([][]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.X
	}
	return out
}

// Converged reports whether every record converged.
func (h *History) Converged() bool {
	for _, r := range h.Records {
		if !r.Converged {
			return false
		}
	}
	return true
}

func (h *History) Final() (StepRecord, bool) {
	if len(h.Records) == 0 {
		return StepRecord{}, false
	}
	return h.Records[len(h.Records)-1], true
}

func (h *History) Norms() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.ResidualNorm
	}
	return out
}

// FrameTrajectory returns the world position of f at every record.
func (h *History) FrameTrajectory(f *kinematics.Frame) ([]mgl64.Vec3, error) {
	out := make([]mgl64.Vec3, len(h.Records))
	for i, r := range h.Records {
		p, err := r.Poses.FramePosition(f)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// BodyTrajectory returns the pose of b at every record.
func (h *History) BodyTrajectory(b *kinematics.Body) ([]kinematics.Pose, error) {
	idx := b.Index()
	out := make([]kinematics.Pose, len(h.Records))
	for i, r := range h.Records {
		if idx < 0 || idx >= len(r.Poses) {
			return nil, kinematics.ErrMalformedTopology
		}
		out[i] = r.Poses[idx]
	}
	return out, nil
}
