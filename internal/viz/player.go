package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/sim"
)

const (
	canvasWidth  = 60
	canvasHeight = 20
	frameRate    = 8
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Player replays a solve history: the mechanism at the current record, the
// path of one traced frame, and the residual norm of every step so far.
type Player struct {
	name     string
	sys      *kinematics.System
	records  []sim.StepRecord
	trace    *kinematics.Frame
	path     []mgl64.Vec3
	frame    int
	playing  bool
	showHelp bool
	canvas   *Canvas
	camera   *Camera
	err      error
}

// NewPlayer prepares a replay of h. The camera is fitted to every frame
// position the history visits.
func NewPlayer(name string, sys *kinematics.System, h *sim.History) Player {
	p := Player{
		name:    name,
		sys:     sys,
		records: h.Records,
		playing: true,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		camera:  NewCamera(),
	}
	p.SetTrace(defaultTrace(sys))
	p.fit()
	return p
}

// defaultTrace picks the first design-variable frame, or else the last frame
// of the last free body.
func defaultTrace(sys *kinematics.System) *kinematics.Frame {
	var last *kinematics.Frame
	for _, b := range sys.Bodies() {
		for _, f := range b.Frames() {
			if f.DesignVariable {
				return f
			}
			if b.IsFree() {
				last = f
			}
		}
	}
	return last
}

// SetTrace selects the frame whose path is drawn. nil disables the trace.
func (p *Player) SetTrace(f *kinematics.Frame) {
	p.trace, p.path = f, nil
	if f == nil {
		return
	}
	h := sim.History{Records: p.records}
	path, err := h.FrameTrajectory(f)
	if err != nil {
		p.err = err
		return
	}
	p.path = path
}

func (p *Player) fit() {
	var pts []mgl64.Vec3
	for _, rec := range p.records {
		w, err := Scene(p.sys, rec.Poses)
		if err != nil {
			p.err = err
			return
		}
		pts = append(pts, w.Points()...)
	}
	p.camera.Fit(pts)
}

func (p Player) Frame() int    { return p.frame }
func (p Player) Playing() bool { return p.playing }

func (p Player) Init() tea.Cmd { return tick() }

func (p Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return p, tea.Quit
		case " ":
			if !p.playing && p.frame >= len(p.records)-1 {
				p.frame = 0
			}
			p.playing = !p.playing
		case "left", "h":
			p.playing = false
			p.seek(p.frame - 1)
		case "right", "l":
			p.playing = false
			p.seek(p.frame + 1)
		case "home", "g":
			p.seek(0)
		case "end", "G":
			p.seek(len(p.records) - 1)
		case "x":
			p.camera.RotateX(0.1)
		case "X":
			p.camera.RotateX(-0.1)
		case "y":
			p.camera.RotateY(0.1)
		case "Y":
			p.camera.RotateY(-0.1)
		case "z":
			p.camera.RotateZ(0.1)
		case "Z":
			p.camera.RotateZ(-0.1)
		case "+", "=":
			p.camera.ZoomIn()
		case "-", "_":
			p.camera.ZoomOut()
		case "f":
			p.fit()
		case "t":
			NextTheme()
		case "?":
			p.showHelp = !p.showHelp
		}
	case TickMsg:
		if p.playing {
			if p.frame < len(p.records)-1 {
				p.frame++
			} else {
				p.playing = false
			}
		}
		return p, tick()
	}
	return p, nil
}

func (p *Player) seek(i int) {
	p.frame = min(max(i, 0), max(len(p.records)-1, 0))
}

// draw renders the current record into the canvas.
func (p *Player) draw() {
	p.canvas.Clear()
	if p.frame >= len(p.records) {
		return
	}
	w, err := Scene(p.sys, p.records[p.frame].Poses)
	if err != nil {
		p.err = err
		return
	}
	if len(p.path) > 0 {
		w.AddTrace(p.path[:p.frame+1])
	}
	Render3D(p.canvas, w, p.camera)
}

func (p Player) View() string {
	p.draw()
	theme := CurrentTheme
	canvasView := canvasStyle.Foreground(theme.Primary).Render(p.canvas.String())

	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render(strings.ToUpper(p.name)) + "\n\n")

	state := "PLAYING"
	if !p.playing {
		state = "PAUSED"
	}
	s.WriteString(state + "\n\n")

	if len(p.records) == 0 {
		s.WriteString(Subtle.Render("empty history") + "\n")
		return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	}

	rec := p.records[p.frame]
	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d / %d", rec.Step, p.records[len(p.records)-1].Step)) + "\n")
	s.WriteString(ProgressBar(float64(p.frame)/math.Max(1, float64(len(p.records)-1)), 30) + "\n\n")

	status := lipgloss.NewStyle().Foreground(theme.Success).Render(rec.Status.String())
	if !rec.Converged {
		status = lipgloss.NewStyle().Foreground(theme.Error).Render(rec.Status.String())
	}
	s.WriteString(labelStyle.Render("Status") + status + "\n")
	s.WriteString(labelStyle.Render("Residual") + valueStyle.Render(fmt.Sprintf("%.3e", rec.ResidualNorm)) + "\n")
	s.WriteString(labelStyle.Render("Iterations") + valueStyle.Render(fmt.Sprintf("%d", rec.Iterations)) + "\n")
	if p.trace != nil && p.frame < len(p.path) {
		pos := p.path[p.frame]
		s.WriteString(labelStyle.Render(p.trace.Name) + valueStyle.Render(fmt.Sprintf("%.3f %.3f %.3f", pos.X(), pos.Y(), pos.Z())) + "\n")
	}

	if p.frame > 0 {
		norms := make([]float64, p.frame+1)
		for i, r := range p.records[:p.frame+1] {
			norms[i] = math.Log10(math.Max(r.ResidualNorm, 1e-300))
		}
		chart := asciigraph.Plot(norms, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("log10 residual"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	if p.err != nil {
		s.WriteString(StatusFail.Render(p.err.Error()) + "\n")
	}

	if p.showHelp {
		s.WriteString(helpStyle.Render("space play/pause  ←/→ step  g/G first/last\nx y z rotate  +/- zoom  f fit  t theme  q quit"))
	} else {
		s.WriteString(helpStyle.Render("? help  q quit  theme " + theme.Name))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}
