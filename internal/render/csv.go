package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/compton.report/internal/imaging"
)

// WriteCSV writes the image matrix as CSV, one display row per record,
// image row 0 first.
func WriteCSV(w io.Writer, img *imaging.Image) error {
	cw := csv.NewWriter(w)
	record := make([]string, img.Cols)
	for r := 0; r < img.Rows; r++ {
		for c := 0; c < img.Cols; c++ {
			record[c] = strconv.FormatFloat(img.At(r, c), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
