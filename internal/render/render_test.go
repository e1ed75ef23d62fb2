package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/compton.report/internal/imaging"
)

func testImage() *imaging.Image {
	return &imaging.Image{
		Rows: 2,
		Cols: 3,
		Data: []float64{0, 0.5, 1, 2, 2.5, 3},
	}
}

var testExtent = [4]float64{-180, 180, -90, 90}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testImage()))

	want := "0,0.5,1\n2,2.5,3\n"
	assert.Equal(t, want, buf.String())
}

func TestSavePNG(t *testing.T) {
	t.Parallel()

	img, err := imagingTestBackprojection(t)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bp.png")
	require.NoError(t, SavePNG(img, testExtent, "test backprojection", path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHeatmapHTML(t *testing.T) {
	t.Parallel()

	img, err := imagingTestBackprojection(t)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, HeatmapHTML(&buf, img, testExtent, "1 cone", 2000))

	html := buf.String()
	assert.True(t, strings.Contains(html, "echarts"), "output should embed echarts")
	assert.True(t, strings.Contains(html, "backprojection"), "output should contain the series name")
}

// imagingTestBackprojection builds a small real image so the renderers see
// realistic data.
func imagingTestBackprojection(t *testing.T) (*imaging.Image, error) {
	t.Helper()
	g, err := imaging.NewAngularGrid(10, imaging.ForwardPole)
	if err != nil {
		return nil, err
	}
	b, err := imaging.NewBackprojector(g, imaging.Params{IntersectionWidthDeg: 5})
	if err != nil {
		return nil, err
	}
	return b.BackprojectOne(imaging.Vec3{Z: 1}, 30)
}
