package visualizer

import (
	"io"

	"github.com/gocarina/gocsv"
)

func ExportCSV(w io.Writer, points []Point) error {
	return gocsv.Marshal(&points, w)
}
