package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/muesli/termenv"

	"github.com/opd-ai/go-viscosity/pkg/config"
	"github.com/opd-ai/go-viscosity/pkg/physics"
	"github.com/opd-ai/go-viscosity/pkg/scene"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

// cellAspect is the height of a terminal cell in units of its width.
const cellAspect = 2

// Glyphs used for each shape.
const (
	GlyphPlane  = '='
	GlyphSphere = 'o'
	GlyphBox    = '#'
)

var (
	staticColor    = "#808080"
	kinematicColor = "#00afff"
	dynamicColors  = []string{"#ff5f5f", "#ffd75f", "#5fff87", "#d787ff", "#ff875f", "#5fd7ff"}
)

type cell struct {
	glyph rune
	color string
}

// TerminalRenderer draws a side view of the XY plane as text. Y points up
// the screen. Depth is ignored: every body is projected onto z equal to
// its own position.
type TerminalRenderer struct {
	width  int
	height int
	buffer [][]cell
	scale  float32
	center mgl32.Vec2

	out         *termenv.Output
	color       bool
	clearScreen bool
}

// NewTerminalRenderer creates a renderer writing to w. cfg.Scale is the
// number of rows per world unit; columns are packed twice as densely so
// shapes keep their proportions. The view starts centred on x = 0 with
// y = 0 on the bottom row.
func NewTerminalRenderer(w io.Writer, cfg config.RenderConfig, opts ...termenv.OutputOption) *TerminalRenderer {
	width, height, scale := cfg.Width, cfg.Height, cfg.Scale
	def := config.DefaultRenderConfig()
	if width < 1 {
		width = def.Width
	}
	if height < 1 {
		height = def.Height
	}
	if !(scale > 0) {
		scale = def.Scale
	}

	buffer := make([][]cell, height)
	for i := range buffer {
		buffer[i] = make([]cell, width)
	}

	r := &TerminalRenderer{
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
		out:    termenv.NewOutput(w, opts...),
		color:  cfg.Color,
	}
	r.center = mgl32.Vec2{0, float32(height)/(2*scale) - 1/scale}
	r.Clear()
	return r
}

// SetCenter moves the centre of the view.
func (r *TerminalRenderer) SetCenter(x, y float32) {
	r.center = mgl32.Vec2{x, y}
}

// SetClearScreen makes Present clear the terminal before each frame.
func (r *TerminalRenderer) SetClearScreen(on bool) {
	r.clearScreen = on
}

// Profile returns the color profile of the output.
func (r *TerminalRenderer) Profile() termenv.Profile {
	return r.out.Profile
}

// cellCenter returns the world point at the centre of a cell.
func (r *TerminalRenderer) cellCenter(col, row int) (float32, float32) {
	x := r.center[0] + (float32(col)+0.5-float32(r.width)/2)/(r.scale*cellAspect)
	y := r.center[1] + (float32(r.height)/2-float32(row)-0.5)/r.scale
	return x, y
}

// worldToScreen converts a world point to the cell containing it.
func (r *TerminalRenderer) worldToScreen(x, y float32) (int, int) {
	col := math32.Floor((x-r.center[0])*r.scale*cellAspect + float32(r.width)/2)
	row := math32.Floor(float32(r.height)/2 - (y-r.center[1])*r.scale)
	return int(col), int(row)
}

func (r *TerminalRenderer) inBounds(col, row int) bool {
	return col >= 0 && col < r.width && row >= 0 && row < r.height
}

// At returns the glyph at a cell, or 0 outside the view.
func (r *TerminalRenderer) At(col, row int) rune {
	if !r.inBounds(col, row) {
		return 0
	}
	return r.buffer[row][col].glyph
}

// Clear implements Renderer.
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = cell{glyph: ' '}
		}
	}
}

// DrawBody implements Renderer.
func (r *TerminalRenderer) DrawBody(b Body) {
	if b.Shape == nil {
		return
	}
	c := cell{color: bodyColor(b)}
	z := b.Pose.Position[2]

	var inside func(p mgl32.Vec3) bool
	switch b.Shape.Type() {
	case physics.ShapePlane:
		c.glyph = GlyphPlane
		n, d := b.Shape.Normal(), b.Shape.Distance()
		band := 1 / r.scale
		inside = func(p mgl32.Vec3) bool {
			dist := n.Dot(b.Pose.ToLocal(p)) - d
			return dist <= 0 && dist > -band
		}
	case physics.ShapeSphere:
		c.glyph = GlyphSphere
		rad := b.Shape.Radius()
		inside = func(p mgl32.Vec3) bool {
			return p.Sub(b.Pose.Position).Len() <= rad
		}
	case physics.ShapeBox:
		c.glyph = GlyphBox
		h := b.Shape.HalfExtents()
		local := physics.AABB{Min: h.Mul(-1), Max: h}
		inside = func(p mgl32.Vec3) bool {
			return local.ContainsPoint(b.Pose.ToLocal(p))
		}
	default:
		return
	}

	for row := 0; row < r.height; row++ {
		for col := 0; col < r.width; col++ {
			x, y := r.cellCenter(col, row)
			if inside(mgl32.Vec3{x, y, z}) {
				r.buffer[row][col] = c
			}
		}
	}

	// Bodies smaller than a cell still show up.
	if b.Shape.Type() != physics.ShapePlane {
		col, row := r.worldToScreen(b.Pose.Position[0], b.Pose.Position[1])
		if r.inBounds(col, row) {
			r.buffer[row][col] = c
		}
	}
}

func bodyColor(b Body) string {
	switch b.Type {
	case world.Static:
		return staticColor
	case world.Kinematic:
		return kinematicColor
	}
	return dynamicColors[b.ID.Index()%len(dynamicColors)]
}

// Present implements Renderer.
func (r *TerminalRenderer) Present(f scene.Frame) error {
	if r.clearScreen {
		r.out.ClearScreen()
		r.out.MoveCursor(1, 1)
	}

	w := bufio.NewWriter(r.out)
	fmt.Fprintf(w, "step %d  t=%.2fs  contacts=%d  max_penetration=%.4f\n",
		f.Step, f.Time, f.Stats.Contacts, f.Stats.MaxPenetration)

	border := "+" + strings.Repeat("-", r.width) + "+\n"
	w.WriteString(border)
	for y := range r.buffer {
		w.WriteByte('|')
		for _, c := range r.buffer[y] {
			w.WriteString(r.styled(c))
		}
		w.WriteString("|\n")
	}
	w.WriteString(border)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func (r *TerminalRenderer) styled(c cell) string {
	s := string(c.glyph)
	if !r.color || c.color == "" || c.glyph == ' ' {
		return s
	}
	return r.out.String(s).Foreground(r.out.Color(c.color)).String()
}
