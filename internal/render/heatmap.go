// Package render produces output artifacts (PNG, HTML, CSV) from
// backprojected intensity images.
package render

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/compton.report/internal/imaging"
)

// imageGrid adapts an imaging.Image to the plotter.GridXYZ interface.
// Display rows run bottom-up in gonum/plot, while image row 0 is the top of
// the display extent, so Z flips the row index.
type imageGrid struct {
	img    *imaging.Image
	extent [4]float64
}

func (g *imageGrid) Dims() (c, r int) { return g.img.Cols, g.img.Rows }

func (g *imageGrid) Z(c, r int) float64 { return g.img.At(g.img.Rows-1-r, c) }

func (g *imageGrid) X(c int) float64 {
	if g.img.Cols == 1 {
		return g.extent[0]
	}
	return g.extent[0] + (g.extent[1]-g.extent[0])*float64(c)/float64(g.img.Cols-1)
}

func (g *imageGrid) Y(r int) float64 {
	if g.img.Rows == 1 {
		return g.extent[2]
	}
	return g.extent[2] + (g.extent[3]-g.extent[2])*float64(r)/float64(g.img.Rows-1)
}

func newHeatmapPlot(img *imaging.Image, extent [4]float64, title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "phi (deg)"
	p.Y.Label.Text = "theta (deg)"
	p.Add(plotter.NewHeatMap(&imageGrid{img: img, extent: extent}, palette.Heat(255, 1)))
	return p
}

// SavePNG writes the image as a heatmap PNG with the display extent on the
// axes.
func SavePNG(img *imaging.Image, extent [4]float64, title, path string) error {
	p := newHeatmapPlot(img, extent, title)
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}

// WritePNG streams the heatmap PNG to w.
func WritePNG(w io.Writer, img *imaging.Image, extent [4]float64, title string) error {
	p := newHeatmapPlot(img, extent, title)
	wt, err := p.WriterTo(12*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write heatmap: %w", err)
	}
	return nil
}
