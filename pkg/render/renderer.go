// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-viscosity/pkg/logging"
	"github.com/opd-ai/go-viscosity/pkg/physics"
	"github.com/opd-ai/go-viscosity/pkg/scene"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

// Body is what a renderer needs to draw one body.
type Body struct {
	ID    world.BodyID
	Type  world.BodyType
	Shape *physics.Shape
	Pose  physics.Pose
}

// Renderer draws frames of a scene.
type Renderer interface {
	// Clear starts a new frame
	Clear()
	// DrawBody adds one shaped body to the frame
	DrawBody(b Body)
	// Present outputs the frame
	Present(f scene.Frame) error
}

// Draw renders every shaped body of w as one frame.
func Draw(r Renderer, w *world.World, f scene.Frame) error {
	r.Clear()
	for id := range w.Bodies() {
		shape, _ := w.Shape(id)
		if shape == nil {
			continue
		}
		typ, _ := w.Type(id)
		t, _ := w.Transform(id)
		r.DrawBody(Body{
			ID:    id,
			Type:  typ,
			Shape: shape,
			Pose:  physics.Pose{Position: t.Position, Orientation: t.Orientation},
		})
	}
	return r.Present(f)
}

// Observer adapts a renderer to a scene runner.
func Observer(r Renderer) scene.Observer {
	return func(ctx context.Context, sc *scene.Scene, f scene.Frame) error {
		return Draw(r, sc.World, f)
	}
}

// NullRenderer logs draw calls instead of drawing.
type NullRenderer struct {
	logger *logging.Logger
	ctx    context.Context
	bodies int
}

// NewNullRenderer creates a NullRenderer. A nil logger uses the default
// stderr logger.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{
		logger: logger,
		ctx:    context.Background(),
	}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.bodies = 0
}

// DrawBody implements Renderer.
func (d *NullRenderer) DrawBody(b Body) {
	d.bodies++
	d.logger.Debug(d.ctx, "draw body",
		"body", b.ID.String(),
		"type", b.Type.String(),
		"shape", b.Shape.Type().String(),
		logging.Vec("position", b.Pose.Position))
}

// Present implements Renderer.
func (d *NullRenderer) Present(f scene.Frame) error {
	d.logger.Debug(d.ctx, "frame",
		"step", f.Step,
		"time", f.Time,
		"bodies", d.bodies,
		"contacts", f.Stats.Contacts)
	return nil
}
