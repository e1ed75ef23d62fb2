package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/compton.report/internal/imaging"
)

// viridis is the color ramp used for intensity shading.
var viridis = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// HeatmapHTML renders the image as an HTML chart: a colored scatter of
// (phi, theta, intensity) points over the display extent. maxPoints bounds
// the payload size; cells are downsampled by stride when the grid is
// larger.
func HeatmapHTML(w io.Writer, img *imaging.Image, extent [4]float64, subtitle string, maxPoints int) error {
	if maxPoints <= 0 {
		maxPoints = 8000
	}

	n := img.Rows * img.Cols
	stride := 1
	if n > maxPoints {
		stride = int(math.Ceil(float64(n) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, n/stride+1)
	maxVal := 0.0
	for i := 0; i < n; i += stride {
		row, col := i/img.Cols, i%img.Cols
		phi := extent[0]
		if img.Cols > 1 {
			phi += (extent[1] - extent[0]) * float64(col) / float64(img.Cols-1)
		}
		theta := extent[3]
		if img.Rows > 1 {
			theta -= (extent[3] - extent[2]) * float64(row) / float64(img.Rows-1)
		}
		v := img.Data[i]
		if v > maxVal {
			maxVal = v
		}
		data = append(data, opts.ScatterData{Value: []interface{}{phi, theta, v}})
	}
	if maxVal == 0 {
		maxVal = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Compton Backprojection", Theme: "dark", Width: "1200px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Compton Backprojection", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: extent[0], Max: extent[1], Name: "phi (deg)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: extent[2], Max: extent[3], Name: "theta (deg)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)

	scatter.AddSeries("backprojection", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
