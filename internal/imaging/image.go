package imaging

import "gonum.org/v1/gonum/floats"

// Image is a backprojected intensity image over the angular grid. Data is
// row-major with the same cell ordering as the grid's direction table:
// Data[row*Cols+col] scores the direction at that cell.
type Image struct {
	Rows int
	Cols int
	Data []float64
}

// At returns the intensity at (row, col).
func (im *Image) At(row, col int) float64 {
	return im.Data[row*im.Cols+col]
}

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	data := make([]float64, len(im.Data))
	copy(data, im.Data)
	return &Image{Rows: im.Rows, Cols: im.Cols, Data: data}
}

// Peak returns the cell with the highest intensity. Ties resolve to the
// lowest flat index.
func (im *Image) Peak() (row, col int, value float64) {
	i := floats.MaxIdx(im.Data)
	return i / im.Cols, i % im.Cols, im.Data[i]
}
