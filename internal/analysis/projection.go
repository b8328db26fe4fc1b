package analysis

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane selects two world axes to project onto.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "xy"
	case PlaneXZ:
		return "xz"
	case PlaneYZ:
		return "yz"
	}
	return fmt.Sprintf("plane(%d)", int(p))
}

func ParsePlane(s string) (Plane, error) {
	switch strings.ToLower(s) {
	case "xy":
		return PlaneXY, nil
	case "xz":
		return PlaneXZ, nil
	case "yz":
		return PlaneYZ, nil
	}
	return 0, fmt.Errorf("unknown plane %q (want xy, xz or yz)", s)
}

func (p Plane) axes() (int, int) {
	switch p {
	case PlaneXZ:
		return 0, 2
	case PlaneYZ:
		return 1, 2
	}
	return 0, 1
}

// Projection holds a trajectory flattened onto a plane.
type Projection struct {
	Plane  Plane
	Points []struct{ X, Y float64 }
}

// Project flattens a frame trajectory onto plane.
func Project(traj []mgl64.Vec3, plane Plane) *Projection {
	a, b := plane.axes()
	proj := &Projection{
		Plane:  plane,
		Points: make([]struct{ X, Y float64 }, 0, len(traj)),
	}
	for _, p := range traj {
		proj.Points = append(proj.Points, struct{ X, Y float64 }{X: p[a], Y: p[b]})
	}
	return proj
}

// ProjectionToASCII draws the projection on a width × height character grid,
// with axes where they cross the visible area.
func ProjectionToASCII(proj *Projection, width, height int) string {
	if proj == nil || len(proj.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := proj.Points[0].X, proj.Points[0].X
	minY, maxY := proj.Points[0].Y, proj.Points[0].Y
	for _, p := range proj.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			canvas[row][col] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == '│' {
				canvas[row][col] = '┼'
			} else {
				canvas[row][col] = '─'
			}
		}
	}

	last := len(proj.Points) - 1
	for i, p := range proj.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row < 0 || row >= height || col < 0 || col >= width {
			continue
		}
		switch i {
		case 0:
			canvas[row][col] = 'o'
		case last:
			canvas[row][col] = '*'
		default:
			if canvas[row][col] != 'o' {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
