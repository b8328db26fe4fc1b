package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/kinematics"
)

// Camera orbits Target and projects world points onto the canvas.
type Camera struct {
	Target           mgl64.Vec3
	Distance, Near   float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 10, Near: 0.1, RotX: -0.6, RotY: 0.5, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(1e6, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(1e-6, c.Zoom/1.2) }

func (c *Camera) rotation() mgl64.Mat3 {
	return mgl64.Rotate3DZ(c.RotZ).Mul3(mgl64.Rotate3DY(c.RotY)).Mul3(mgl64.Rotate3DX(c.RotX))
}

// RotatePoint moves p into camera space, centred on Target.
func (c *Camera) RotatePoint(p mgl64.Vec3) mgl64.Vec3 {
	return c.rotation().Mul3x1(p.Sub(c.Target))
}

// Fit centres the camera on points and scales them to fill the view.
func (c *Camera) Fit(points []mgl64.Vec3) {
	if len(points) == 0 {
		return
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	c.Target = lo.Add(hi).Mul(0.5)

	radius := 0.0
	for _, p := range points {
		radius = math.Max(radius, p.Sub(c.Target).Len())
	}
	c.Zoom = 1.0
	if radius > 1e-9 {
		c.Zoom = 1.2 / radius
	}
}

// Project converts a world point to canvas dot coordinates for a canvas of
// sw x sh dots. It returns x, y, depth and whether the point is on screen.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	rot := c.RotatePoint(p).Mul(c.Zoom)
	if rot.Z() >= c.Distance-c.Near {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z())
	pScale := math.Min(float64(sw), float64(sh)) / 3.0
	sx := int(math.Round(rot.X()*scale*pScale)) + sw/2
	sy := int(math.Round(-rot.Y()*scale*pScale)) + sh/2
	return sx, sy, rot.Z(), sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type EdgeKind int

const (
	// EdgeLink joins a body origin to one of its frames.
	EdgeLink EdgeKind = iota
	// EdgeJoint joins the two frames of a joint.
	EdgeJoint
	EdgeAxis
	EdgeTrace
)

type Edge struct {
	Start, End mgl64.Vec3
	Kind       EdgeKind
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe                           { return &Wireframe{Edges: make([]Edge, 0)} }
func (w *Wireframe) AddEdge(s, e mgl64.Vec3, k EdgeKind) { w.Edges = append(w.Edges, Edge{s, e, k}) }
func (w *Wireframe) AddPoint(p mgl64.Vec3, k EdgeKind)   { w.Edges = append(w.Edges, Edge{p, p, k}) }
func (w *Wireframe) Clear()                              { w.Edges = w.Edges[:0] }

// AddAxes adds the three world axes of length l at o.
func (w *Wireframe) AddAxes(o mgl64.Vec3, l float64) {
	w.AddEdge(o, o.Add(mgl64.Vec3{l, 0, 0}), EdgeAxis)
	w.AddEdge(o, o.Add(mgl64.Vec3{0, l, 0}), EdgeAxis)
	w.AddEdge(o, o.Add(mgl64.Vec3{0, 0, l}), EdgeAxis)
}

// AddTrace joins consecutive points, typically one frame across steps.
func (w *Wireframe) AddTrace(points []mgl64.Vec3) {
	for i := 1; i < len(points); i++ {
		w.AddEdge(points[i-1], points[i], EdgeTrace)
	}
}

func (w *Wireframe) Count(k EdgeKind) int {
	n := 0
	for _, e := range w.Edges {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Points returns every edge endpoint.
func (w *Wireframe) Points() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, 2*len(w.Edges))
	for _, e := range w.Edges {
		out = append(out, e.Start, e.End)
	}
	return out
}

// Scene builds the wireframe of sys at poses: one link per body frame and
// one edge per joint between its two frames.
func Scene(sys *kinematics.System, poses kinematics.Poses) (*Wireframe, error) {
	w := NewWireframe()
	for _, b := range sys.Bodies() {
		if b.Index() >= len(poses) {
			return nil, &kinematics.DimensionError{Want: len(sys.Bodies()), Got: len(poses)}
		}
		origin := poses[b.Index()].Position
		for _, f := range b.Frames() {
			pos, err := poses.FramePosition(f)
			if err != nil {
				return nil, err
			}
			w.AddEdge(origin, pos, EdgeLink)
		}
	}
	for _, j := range sys.Joints() {
		f1, f2 := j.Frames()
		p1, err := poses.FramePosition(f1)
		if err != nil {
			return nil, err
		}
		p2, err := poses.FramePosition(f2)
		if err != nil {
			return nil, err
		}
		w.AddEdge(p1, p2, EdgeJoint)
	}
	return w, nil
}

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
	kind           EdgeKind
}

// Render3D draws the wireframe to the canvas, far edges first. Joints get a
// cross at each end.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.PixelSize()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, cw, ch)
		x2, y2, d2, v2 := cam.Project(e.End, cw, ch)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2, e.Kind})
		}
	}
	sort.SliceStable(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		if e.kind == EdgeJoint {
			c.DrawCross(e.x1, e.y1, 1)
			c.DrawCross(e.x2, e.y2, 1)
		}
	}
}
