// Package render rasterizes a Broadphase's live proxy set to a PNG, for the
// debug service's /snapshot.png endpoint. It has no bearing on the
// broadphase's own correctness — it's a read-only view, grounded on the
// teacher's internal/streaming package, which rasterizes in-memory game
// state with the same library for the same reason: a human needs to look
// at what the structure currently thinks is true.
package render

import (
	"bytes"
	"image/color"

	"github.com/fogleman/gg"

	"sap2d/internal/spatial"
)

// Config controls snapshot dimensions and the logical-to-pixel scale. The
// broadphase's coordinates are arbitrary integer logical units; Scale maps
// them into the fixed pixel canvas so small and large worlds both render
// legibly.
type Config struct {
	Width, Height int
	Scale         float64
	OriginX       float64
	OriginY       float64
}

// DefaultConfig returns a reasonable canvas size for debug snapshots.
func DefaultConfig() Config {
	return Config{Width: 800, Height: 600, Scale: 1.0}
}

var (
	backgroundColor = color.RGBA{18, 18, 28, 255}
	gridColor       = color.RGBA{32, 32, 46, 255}
	proxyColor      = color.RGBA{90, 170, 230, 255}
	overlapColor    = color.RGBA{240, 90, 90, 255}
)

// Snapshot renders every live proxy in bp as an outlined rectangle, filling
// in the highlight color any proxy that currently participates in at least
// one overlapping pair, and returns the encoded PNG bytes.
func Snapshot(bp *spatial.Broadphase, cfg Config) ([]byte, error) {
	dc := gg.NewContext(cfg.Width, cfg.Height)

	dc.SetColor(backgroundColor)
	dc.DrawRectangle(0, 0, float64(cfg.Width), float64(cfg.Height))
	dc.Fill()

	drawGrid(dc, cfg)

	overlapping := overlappingSet(bp)

	var proxies []*spatial.Proxy
	proxies = bp.Proxies(proxies[:0])
	for _, p := range proxies {
		drawProxy(dc, cfg, p, overlapping[p.ID])
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawGrid(dc *gg.Context, cfg Config) {
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)

	step := 50.0
	for x := 0.0; x < float64(cfg.Width); x += step {
		dc.DrawLine(x, 0, x, float64(cfg.Height))
		dc.Stroke()
	}
	for y := 0.0; y < float64(cfg.Height); y += step {
		dc.DrawLine(0, y, float64(cfg.Width), y)
		dc.Stroke()
	}
}

func drawProxy(dc *gg.Context, cfg Config, p *spatial.Proxy, overlapping bool) {
	x := (float64(p.AABB.X) - cfg.OriginX) * cfg.Scale
	y := (float64(p.AABB.Y) - cfg.OriginY) * cfg.Scale
	w := float64(p.AABB.W) * cfg.Scale
	h := float64(p.AABB.H) * cfg.Scale

	if overlapping {
		dc.SetColor(overlapColor)
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()
	}

	dc.SetColor(proxyColor)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()
}

// overlappingSet returns the set of proxy ids that currently participate in
// at least one live pair, so the renderer can highlight them without
// re-deriving overlap from scratch.
func overlappingSet(bp *spatial.Broadphase) map[spatial.ProxyID]bool {
	out := make(map[spatial.ProxyID]bool)
	for _, word := range bp.Pairs() {
		out[spatial.FirstEntityFromPair(word)] = true
		out[spatial.SecondEntityFromPair(word)] = true
	}
	return out
}
