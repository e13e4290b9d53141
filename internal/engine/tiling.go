package engine

import (
	"math"
	"sort"

	"ocrd/pkg/types"
)

// Grid is a tiling of the image into Cols x Rows local crops.
type Grid struct {
	Cols int
	Rows int
}

// Crops returns the number of local views.
func (g Grid) Crops() int { return g.Cols * g.Rows }

func candidateGrids(minCrops, maxCrops int) []Grid {
	var out []Grid
	for i := 1; i <= maxCrops; i++ {
		for j := 1; j <= maxCrops; j++ {
			if n := i * j; n >= minCrops && n <= maxCrops {
				out = append(out, Grid{Cols: i, Rows: j})
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Crops() != out[b].Crops() {
			return out[a].Crops() < out[b].Crops()
		}
		return out[a].Cols < out[b].Cols
	})
	return out
}

// TileGrid picks the crop grid whose aspect ratio is closest to the image's.
// On ties the larger grid wins when the image has enough pixels to fill it.
// Images no larger than tileSize on both sides are not tiled.
func TileGrid(width, height, tileSize, minCrops, maxCrops int) Grid {
	if width <= 0 || height <= 0 || (width <= tileSize && height <= tileSize) {
		return Grid{}
	}
	aspect := float64(width) / float64(height)
	area := float64(width) * float64(height)
	best := Grid{Cols: 1, Rows: 1}
	bestDiff := math.Inf(1)
	for _, g := range candidateGrids(minCrops, maxCrops) {
		diff := math.Abs(aspect - float64(g.Cols)/float64(g.Rows))
		switch {
		case diff < bestDiff:
			bestDiff = diff
			best = g
		case diff == bestDiff:
			if area > 0.5*float64(tileSize*tileSize)*float64(g.Crops()) {
				best = g
			}
		}
	}
	return best
}

// Vision token budget per view.
const (
	globalViewTokens = 256
	localViewTokens  = 100
)

// VisionTokens returns the encoder tokens for in. Fixed modes use their
// constant; Gundam counts one global view plus one local view per crop.
func VisionTokens(in Input, minCrops, maxCrops int) int {
	if n, ok := in.Mode.FixedVisionTokens(); ok {
		return n
	}
	if in.Mode != types.ModeGundam || !in.CropMode {
		return globalViewTokens
	}
	g := TileGrid(in.Width, in.Height, in.ImageSize, minCrops, maxCrops)
	return g.Crops()*localViewTokens + globalViewTokens
}
