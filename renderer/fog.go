package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sightline/camera"
	"github.com/pthm-cable/sightline/systems"
)

// Fog alpha by state.
const (
	shroudAlpha   = 255
	exploredAlpha = 150
)

// FogRenderer draws the fog of war as a grid-sized texture stretched over the level.
type FogRenderer struct {
	tex    rl.Texture2D
	pixels []color.RGBA
	texW   int
	texH   int

	initialized bool
}

// NewFogRenderer creates a fog renderer.
func NewFogRenderer() *FogRenderer {
	return &FogRenderer{}
}

// Init creates the texture (must be called after the raylib window is created).
func (r *FogRenderer) Init(gridW, gridH int) {
	if r.initialized {
		return
	}
	r.texW, r.texH = gridW, gridH
	r.pixels = make([]color.RGBA, gridW*gridH)

	img := rl.GenImageColor(gridW, gridH, rl.Black)
	r.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(r.tex, rl.FilterPoint)
	rl.UnloadImage(img)

	r.initialized = true
}

// Update uploads the current fog states.
func (r *FogRenderer) Update(fog *systems.FogOfWar, grid *systems.WalkabilityGrid) {
	if !r.initialized {
		r.Init(grid.Width(), grid.Height())
	}
	for y := 0; y < r.texH; y++ {
		for x := 0; x < r.texW; x++ {
			var a uint8
			switch fog.At(x, y) {
			case systems.FogShroud:
				a = shroudAlpha
			case systems.FogExplored:
				a = exploredAlpha
			}
			r.pixels[y*r.texW+x] = color.RGBA{A: a}
		}
	}
	rl.UpdateTexture(r.tex, r.pixels)
}

// Draw stretches the fog texture over the level bounds.
func (r *FogRenderer) Draw(grid *systems.WalkabilityGrid, cam *camera.Camera) {
	if !r.initialized {
		return
	}
	src := rl.Rectangle{Width: float32(r.texW), Height: float32(r.texH)}
	dst := screenRect(cam, grid.Bounds())
	rl.DrawTexturePro(r.tex, src, dst, rl.Vector2{}, 0, rl.White)
}

// Unload frees GPU resources.
func (r *FogRenderer) Unload() {
	if !r.initialized {
		return
	}
	rl.UnloadTexture(r.tex)
	r.initialized = false
}
