package renderer

import (
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/camera"
	"github.com/pthm-cable/sightline/components"
	"github.com/pthm-cable/sightline/systems"
)

// Sprite is one entity box to draw.
type Sprite struct {
	Box      systems.AABB
	Kind     components.Kind
	Name     string
	Depth    float64 // Draw order: y of the box bottom
	Facing   r2.Vec  // Zero for props
	Selected bool
	Faded    bool // Seen through by the player's polygon
	Ghost    bool // Does not block movement
}

// SpriteRenderer draws entity boxes in depth order.
type SpriteRenderer struct {
	ShowNames bool
	sorted    []Sprite
}

// NewSpriteRenderer creates a sprite renderer.
func NewSpriteRenderer() *SpriteRenderer {
	return &SpriteRenderer{ShowNames: true}
}

// Draw renders sprites back to front. Sprites with equal depth keep their order.
func (r *SpriteRenderer) Draw(sprites []Sprite, cam *camera.Camera) {
	r.sorted = append(r.sorted[:0], sprites...)
	slices.SortStableFunc(r.sorted, func(a, b Sprite) int {
		switch {
		case a.Depth < b.Depth:
			return -1
		case a.Depth > b.Depth:
			return 1
		}
		return 0
	})

	for _, s := range r.sorted {
		if !onScreen(cam, s.Box) {
			continue
		}
		rect := screenRect(cam, s.Box)
		c := kindColor(s.Kind)
		if s.Faded || s.Ghost {
			c = fade(c, 110)
		}
		rl.DrawRectangleRec(rect, c)
		rl.DrawRectangleLinesEx(rect, 1, shade(c, 0.6))

		if s.Facing != (r2.Vec{}) {
			drawFacing(cam, s.Box.Center(), s.Facing, s.Box.Max.X-s.Box.Min.X)
		}
		if s.Selected {
			sel := rect
			sel.X -= 3
			sel.Y -= 3
			sel.Width += 6
			sel.Height += 6
			rl.DrawRectangleLinesEx(sel, 2, rl.Yellow)
		}
		if r.ShowNames && cam.Zoom >= 2 {
			rl.DrawText(s.Name, int32(rect.X), int32(rect.Y)-12, 10, rl.LightGray)
		}
	}
}

// drawFacing draws a small triangle at the box centre pointing along dir.
func drawFacing(cam *camera.Camera, center, dir r2.Vec, size float64) {
	radius := size * 0.35
	side := r2.Vec{X: -dir.Y, Y: dir.X}

	front := toScreen(cam, r2.Add(center, r2.Scale(radius*1.5, dir)))
	backLeft := toScreen(cam, r2.Add(center, r2.Add(r2.Scale(-radius*0.6, dir), r2.Scale(radius*0.7, side))))
	backRight := toScreen(cam, r2.Add(center, r2.Add(r2.Scale(-radius*0.6, dir), r2.Scale(-radius*0.7, side))))

	// DrawTriangle requires counter-clockwise winding on screen
	rl.DrawTriangle(front, backRight, backLeft, rl.White)
	rl.DrawTriangleLines(front, backLeft, backRight, rl.DarkGray)
}

func kindColor(k components.Kind) rl.Color {
	switch k {
	case components.KindPlayer:
		return rl.Color{R: 80, G: 170, B: 240, A: 255}
	case components.KindNPC:
		return rl.Color{R: 220, G: 90, B: 80, A: 255}
	default:
		return rl.Color{R: 170, G: 140, B: 90, A: 255}
	}
}
