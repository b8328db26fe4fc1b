package kinematics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/san-kum/kinsim/internal/spatial"
)

// System owns the ordered bodies and joints of a mechanism.
//
// Body insertion order addresses both the packed state vector and the
// quaternion block of the residual; joint insertion order addresses the
// joint block. Neither order changes once a body or joint is added.
type System struct {
	mu     sync.Mutex
	bodies []*Body
	joints []Joint
	frozen bool
}

func NewSystem() *System {
	return &System{
		bodies: make([]*Body, 0),
		joints: make([]Joint, 0),
	}
}

// AddBody appends a body. Bodies are registered in one system only and
// names must be unique.
func (s *System) AddBody(b *Body) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return fmt.Errorf("add body: %w", ErrTopologyFrozen)
	}
	if b == nil {
		return fmt.Errorf("add body: nil body: %w", ErrMalformedTopology)
	}
	if b.sys != nil {
		return fmt.Errorf("body %q already registered: %w", b.Name, ErrMalformedTopology)
	}
	if b.Name == "" || strings.Contains(b.Name, ".") {
		return fmt.Errorf("body name %q must be non-empty and contain no '.': %w", b.Name, ErrMalformedTopology)
	}
	for _, other := range s.bodies {
		if other.Name == b.Name {
			return fmt.Errorf("duplicate body name %q: %w", b.Name, ErrMalformedTopology)
		}
	}

	b.sys = s
	b.index = len(s.bodies)
	s.bodies = append(s.bodies, b)
	return nil
}

// AddJoint appends a joint. Both of its frames must belong to bodies already
// registered in this system.
func (s *System) AddJoint(j Joint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return fmt.Errorf("add joint: %w", ErrTopologyFrozen)
	}
	if j == nil {
		return fmt.Errorf("add joint: nil joint: %w", ErrMalformedTopology)
	}
	f1, f2 := j.Frames()
	for _, f := range []*Frame{f1, f2} {
		if f.body == nil {
			return fmt.Errorf("joint %q: frame %q: %w", j.Name(), f.Name, ErrUnattachedFrame)
		}
		if f.body.sys != s {
			return fmt.Errorf("joint %q: frame %q is on body %q, which is not in the system: %w",
				j.Name(), f.Name, f.body.Name, ErrMalformedTopology)
		}
	}
	for _, other := range s.joints {
		if other == j {
			return fmt.Errorf("joint %q added twice: %w", j.Name(), ErrMalformedTopology)
		}
	}

	s.joints = append(s.joints, j)
	return nil
}

// Freeze rejects any further topology change.
func (s *System) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

func (s *System) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

func (s *System) Bodies() []*Body {
	out := make([]*Body, len(s.bodies))
	copy(out, s.bodies)
	return out
}

func (s *System) Joints() []Joint {
	out := make([]Joint, len(s.joints))
	copy(out, s.joints)
	return out
}

// FreeBodies returns the free bodies in insertion order.
func (s *System) FreeBodies() []*Body {
	out := make([]*Body, 0, len(s.bodies))
	for _, b := range s.bodies {
		if b.IsFree() {
			out = append(out, b)
		}
	}
	return out
}

func (s *System) FreeBodyCount() int {
	n := 0
	for _, b := range s.bodies {
		if b.IsFree() {
			n++
		}
	}
	return n
}

// Dim is the packed state length, 7 × FreeBodyCount.
func (s *System) Dim() int {
	return spatial.PoseLen * s.FreeBodyCount()
}

// ResidualDim is the summed joint dimensions plus one quaternion term per body.
func (s *System) ResidualDim() int {
	n := len(s.bodies)
	for _, j := range s.joints {
		n += j.Dim()
	}
	return n
}

// Body looks a body up by name.
func (s *System) Body(name string) (*Body, bool) {
	for _, b := range s.bodies {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Frame looks a frame up by its "body.frame" path.
func (s *System) Frame(path string) (*Frame, bool) {
	bodyName, frameName, ok := strings.Cut(path, ".")
	if !ok {
		return nil, false
	}
	b, ok := s.Body(bodyName)
	if !ok {
		return nil, false
	}
	return b.Frame(frameName)
}

// Pack concatenates [position, orientation] of every free body in insertion
// order. Orientations are scalar-first.
func (s *System) Pack() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	x := make([]float64, 0, spatial.PoseLen*len(s.bodies))
	for _, b := range s.bodies {
		if !b.IsFree() {
			continue
		}
		var slot [spatial.PoseLen]float64
		spatial.PutVec3(slot[:3], b.Position)
		spatial.PutQuat(slot[3:], b.Orientation)
		x = append(x, slot[:]...)
	}
	return x
}

// Unpack writes x back into the free bodies, in the order Pack reads them.
func (s *System) Unpack(x []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if want := spatial.PoseLen * s.FreeBodyCount(); len(x) != want {
		return &DimensionError{Want: want, Got: len(x)}
	}
	i := 0
	for _, b := range s.bodies {
		if !b.IsFree() {
			continue
		}
		b.Position = spatial.Vec3FromSlice(x[i : i+3])
		b.Orientation = spatial.QuatFromSlice(x[i+3 : i+7])
		i += spatial.PoseLen
	}
	return nil
}

// Residual concatenates every joint residual in joint order, then every
// body's quaternion residual in body order.
func (s *System) Residual() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := make([]float64, s.ResidualDim())
	s.assemble(r, livePoses{}, func(i int) float64 { return s.bodies[i].QuaternionResidual() })
	return r
}

// Drive applies every driven body's motion function for the step and returns
// how many bodies moved.
func (s *System) Drive(step int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, b := range s.bodies {
		if b.applyMotion(step) {
			n++
		}
	}
	return n
}

// Snapshot copies the live pose of every body, indexed by body index.
func (s *System) Snapshot() Poses {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *System) snapshot() Poses {
	p := make(Poses, len(s.bodies))
	for i, b := range s.bodies {
		p[i] = b.Pose()
	}
	return p
}

// Restore writes a snapshot back into every body.
func (s *System) Restore(p Poses) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(p) != len(s.bodies) {
		return &DimensionError{Want: len(s.bodies), Got: len(p)}
	}
	for i, b := range s.bodies {
		b.SetPose(p[i])
	}
	return nil
}

// Overlay returns a copy of base with the free bodies replaced by the packed
// state x.
func (s *System) Overlay(base Poses, x []float64) (Poses, error) {
	if want := spatial.PoseLen * s.FreeBodyCount(); len(x) != want {
		return nil, &DimensionError{Want: want, Got: len(x)}
	}
	out := base.Clone()
	s.overlay(out, x)
	return out, nil
}

// freeIndices returns the body indices of the free bodies, in pack order.
func (s *System) freeIndices() []int {
	idx := make([]int, 0, len(s.bodies))
	for i, b := range s.bodies {
		if b.IsFree() {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s *System) overlay(dst Poses, x []float64) {
	overlayFree(dst, s.freeIndices(), x)
}

func overlayFree(dst Poses, free []int, x []float64) {
	for k, bi := range free {
		o := k * spatial.PoseLen
		dst[bi] = Pose{
			Position:    spatial.Vec3FromSlice(x[o : o+3]),
			Orientation: spatial.QuatFromSlice(x[o+3 : o+7]),
		}
	}
}

// Objective snapshots the live poses and returns the residual as a pure
// function of a packed state. The function never touches body fields, so it
// may be called concurrently; it panics if len(x) != Dim or
// len(dst) != ResidualDim.
func (s *System) Objective() func(dst, x []float64) {
	s.mu.Lock()
	base := s.snapshot()
	joints := make([]Joint, len(s.joints))
	copy(joints, s.joints)
	free := s.freeIndices()
	m := s.ResidualDim()
	s.mu.Unlock()

	n := spatial.PoseLen * len(free)
	return func(dst, x []float64) {
		if len(x) != n || len(dst) != m {
			panic(fmt.Sprintf("kinematics: objective called with len(x)=%d len(dst)=%d, want %d and %d", len(x), len(dst), n, m))
		}
		poses := base.Clone()
		overlayFree(poses, free, x)
		off := 0
		for _, j := range joints {
			j.residualInto(dst[off:off+j.Dim()], poses)
			off += j.Dim()
		}
		for _, p := range poses {
			dst[off] = spatial.NormSquared(p.Orientation) - 1
			off++
		}
	}
}

// ResidualAt evaluates the residual for poses without touching body state.
func (s *System) ResidualAt(poses Poses) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(poses) != len(s.bodies) {
		return nil, &DimensionError{Want: len(s.bodies), Got: len(poses)}
	}
	r := make([]float64, s.ResidualDim())
	s.assemble(r, poses, func(i int) float64 { return spatial.NormSquared(poses[i].Orientation) - 1 })
	return r, nil
}

func (s *System) assemble(dst []float64, src poseSource, quat func(i int) float64) {
	off := 0
	for _, j := range s.joints {
		j.residualInto(dst[off:off+j.Dim()], src)
		off += j.Dim()
	}
	for i := range s.bodies {
		dst[off] = quat(i)
		off++
	}
}
