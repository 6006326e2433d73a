package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-viscosity/pkg/config"
	"github.com/opd-ai/go-viscosity/pkg/physics"
	"github.com/opd-ai/go-viscosity/pkg/scene"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.New(nil)
	add := func(typ world.BodyType, s *physics.Shape, pos mgl32.Vec3) {
		id, err := w.CreateBody()
		require.NoError(t, err)
		require.NoError(t, w.SetType(id, typ))
		require.NoError(t, w.SetShape(id, s))
		require.NoError(t, w.SetPosition(id, pos))
	}
	add(world.Static, physics.NewPlane(physics.AxisY, 0), mgl32.Vec3{})
	add(world.Dynamic, physics.NewSphere(1), mgl32.Vec3{0, 2, 0})
	add(world.Kinematic, physics.NewBox(mgl32.Vec3{1, 1, 1}), mgl32.Vec3{-1.5, 0.5, 0})
	// Shapeless bodies are skipped.
	_, err := w.CreateBody()
	require.NoError(t, err)
	return w
}

func smallRenderer(buf *bytes.Buffer, color bool, profile termenv.Profile) *TerminalRenderer {
	r := NewTerminalRenderer(buf, config.RenderConfig{Width: 20, Height: 10, Scale: 2, Color: color},
		termenv.WithProfile(profile))
	r.SetCenter(0, 0)
	return r
}

func TestNewTerminalRenderer_Defaults(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.RenderConfig
		width, height int
		scale         float32
	}{
		{"explicit", config.RenderConfig{Width: 10, Height: 5, Scale: 1}, 10, 5, 1},
		{"zero values", config.RenderConfig{}, 72, 20, 6},
		{"negative scale", config.RenderConfig{Width: 8, Height: 4, Scale: -1}, 8, 4, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTerminalRenderer(&bytes.Buffer{}, tt.cfg)
			assert.Equal(t, tt.width, r.width)
			assert.Equal(t, tt.height, r.height)
			assert.Equal(t, tt.scale, r.scale)
			require.Len(t, r.buffer, tt.height)
			assert.Len(t, r.buffer[0], tt.width)
			assert.Equal(t, ' ', r.At(0, 0))
		})
	}
}

func TestTerminalRenderer_WorldToScreen(t *testing.T) {
	r := smallRenderer(&bytes.Buffer{}, false, termenv.Ascii)

	col, row := r.worldToScreen(0, 0)
	assert.Equal(t, 10, col)
	assert.Equal(t, 5, row)

	col, row = r.worldToScreen(1, 1)
	assert.Equal(t, 14, col, "four columns per unit")
	assert.Equal(t, 3, row, "two rows per unit, y up")

	x, y := r.cellCenter(10, 5)
	assert.InDelta(t, 0.125, x, 1e-6)
	assert.InDelta(t, -0.25, y, 1e-6)
}

func TestTerminalRenderer_DrawsShapes(t *testing.T) {
	var buf bytes.Buffer
	r := smallRenderer(&buf, false, termenv.Ascii)

	require.NoError(t, Draw(r, testWorld(t), scene.Frame{Step: 3, Time: 0.03}))

	for col := 0; col < 20; col++ {
		assert.Equal(t, GlyphPlane, r.At(col, 5), "ground row, col %d", col)
		assert.Equal(t, ' ', r.At(col, 6), "below ground, col %d", col)
	}
	assert.Equal(t, GlyphSphere, r.At(10, 1))
	assert.Equal(t, GlyphSphere, r.At(10, 2))
	assert.Equal(t, ' ', r.At(10, 3))
	assert.Equal(t, GlyphBox, r.At(4, 4))
	assert.Equal(t, ' ', r.At(0, 0))
	assert.Zero(t, r.At(-1, 0))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 13)
	assert.True(t, strings.HasPrefix(lines[0], "step 3  t=0.03s"))
	assert.Equal(t, "+"+strings.Repeat("-", 20)+"+", lines[1])
	assert.Equal(t, "|"+strings.Repeat("=", 20)+"|", lines[2+5])
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestTerminalRenderer_Color(t *testing.T) {
	var buf bytes.Buffer
	r := smallRenderer(&buf, true, termenv.TrueColor)
	assert.Equal(t, termenv.TrueColor, r.Profile())

	require.NoError(t, Draw(r, testWorld(t), scene.Frame{}))
	assert.Contains(t, buf.String(), "\x1b[38;2;")

	buf.Reset()
	r = smallRenderer(&buf, false, termenv.TrueColor)
	require.NoError(t, Draw(r, testWorld(t), scene.Frame{}))
	assert.NotContains(t, buf.String(), "\x1b[38;2;", "color disabled in config")
}

func TestTerminalRenderer_DefaultViewShowsGround(t *testing.T) {
	r := NewTerminalRenderer(&bytes.Buffer{}, config.DefaultRenderConfig(), termenv.WithProfile(termenv.Ascii))
	require.NoError(t, Draw(r, testWorld(t), scene.Frame{}))
	assert.Equal(t, GlyphPlane, r.At(0, 19))
	assert.Equal(t, ' ', r.At(0, 18))
}

func TestTerminalRenderer_ClearScreen(t *testing.T) {
	var buf bytes.Buffer
	r := smallRenderer(&buf, false, termenv.ANSI)
	r.SetClearScreen(true)
	require.NoError(t, r.Present(scene.Frame{}))
	assert.True(t, strings.HasPrefix(buf.String(), "\x1b["))
}

func TestObserver_RendersFrames(t *testing.T) {
	sc, err := scene.Build(config.DefaultScenario())
	require.NoError(t, err)
	defer sc.Close()

	var buf bytes.Buffer
	r := NewTerminalRenderer(&buf, config.DefaultRenderConfig(), termenv.WithProfile(termenv.Ascii))
	runner := scene.NewRunner(sc, 0.01, nil)
	runner.Observe(5, Observer(r))

	_, err = runner.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(buf.String(), "step "))
	assert.Contains(t, buf.String(), "step 10  t=0.10s")
}
