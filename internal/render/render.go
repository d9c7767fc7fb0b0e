// Package render draws arena snapshots with gg.
package render

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"robot-arena/internal/arena"
	"robot-arena/internal/config"
	"robot-arena/internal/geometry"
)

const (
	borderWidth = 2.0
	sensorWidth = 1.0
	// wheels sit just outside the body, a third of its size
	wheelOffset = 1.2
	wheelSize   = 1.0 / 3
)

var (
	background   = color.White
	borderColor  = color.Black
	sensorClear  = color.RGBA{0, 128, 0, 255}
	sensorActive = color.RGBA{255, 0, 0, 255}
)

// Renderer turns snapshots into images. It holds no per-frame state and is
// safe for concurrent use.
type Renderer struct {
	cfg config.RenderConfig
}

// New returns a renderer; a non-positive scale is treated as 1.
func New(cfg config.RenderConfig) *Renderer {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	return &Renderer{cfg: cfg}
}

// Size is the pixel size of a frame for snap
func (r *Renderer) Size(snap arena.Snapshot) (int, int) {
	w := int(math.Ceil(snap.Width * r.cfg.Scale))
	h := int(math.Ceil(snap.Height * r.cfg.Scale))
	return max(w, 1), max(h, 1)
}

// Frame draws one snapshot.
func (r *Renderer) Frame(snap arena.Snapshot) image.Image {
	return r.draw(snap).Image()
}

// EncodePNG writes snap as a PNG image.
func (r *Renderer) EncodePNG(w io.Writer, snap arena.Snapshot) error {
	return errors.Wrap(r.draw(snap).EncodePNG(w), "encode png")
}

// SavePNG writes snap to a PNG file
func (r *Renderer) SavePNG(path string, snap arena.Snapshot) error {
	return errors.Wrapf(r.draw(snap).SavePNG(path), "save png %s", path)
}

func (r *Renderer) draw(snap arena.Snapshot) *gg.Context {
	w, h := r.Size(snap)
	dc := gg.NewContext(w, h)
	dc.Scale(r.cfg.Scale, r.cfg.Scale)

	dc.SetColor(background)
	dc.Clear()

	dc.SetColor(borderColor)
	dc.SetLineWidth(borderWidth)
	dc.DrawRectangle(0, 0, snap.Width, snap.Height)
	dc.Stroke()

	for _, rs := range snap.Robots {
		r.drawRobot(dc, rs)
	}
	for _, o := range snap.Obstacles {
		dc.SetColor(Color(arena.ColorCyan))
		dc.DrawCircle(o.X, o.Y, o.Radius)
		dc.Fill()
	}
	return dc
}

func (r *Renderer) drawRobot(dc *gg.Context, rs arena.RobotSnapshot) {
	dc.SetColor(Color(rs.Color))
	dc.DrawCircle(rs.X, rs.Y, rs.Radius)
	dc.Fill()

	if !rs.HasSensors {
		return
	}

	if r.cfg.DrawWheels {
		dc.SetColor(Color(arena.ColorPink))
		for _, side := range [2]float64{90, -90} {
			rad := geometry.Radians(rs.Angle + side)
			dc.DrawCircle(
				rs.X+rs.Radius*wheelOffset*math.Cos(rad),
				rs.Y+rs.Radius*wheelOffset*math.Sin(rad),
				rs.Radius*wheelSize)
			dc.Fill()
		}
	}

	if r.cfg.DrawSensors {
		dc.SetLineWidth(sensorWidth)
		for _, s := range rs.Sensors {
			if s.Triggered {
				dc.SetColor(sensorActive)
			} else {
				dc.SetColor(sensorClear)
			}
			c := s.Line.Coords()
			dc.DrawLine(c[0], c[1], c[2], c[3])
			dc.Stroke()
		}
	}
}

// Color maps a color tag to the drawing color. Unknown tags draw black.
func Color(tag arena.ColorTag) color.Color {
	switch tag {
	case arena.ColorRed:
		return color.RGBA{255, 0, 0, 255}
	case arena.ColorGreen:
		return color.RGBA{0, 128, 0, 255}
	case arena.ColorBlue:
		return color.RGBA{0, 0, 255, 255}
	case arena.ColorYellow:
		return color.RGBA{255, 255, 0, 255}
	case arena.ColorPurple:
		return color.RGBA{128, 0, 128, 255}
	case arena.ColorCyan:
		return color.RGBA{0, 160, 160, 255}
	default:
		return color.Black
	}
}
