package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// csvHeader is the fixed column layout of exported reports.
var csvHeader = []string{
	"Student ID", "Name", "Status", "Pings Matched", "Total Pings", "Presence Ratio", "Avg Confidence",
}

// WriteCSV writes a report in the fixed tabular export format. Ratios are
// rounded to 2 decimals and confidences to 3 for display; the in-memory
// entries keep full precision.
func WriteCSV(w io.Writer, report []Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, e := range report {
		row := []string{
			e.StudentID,
			e.Name,
			e.Status,
			strconv.Itoa(e.PingsMatched),
			strconv.Itoa(e.TotalPings),
			formatRounded(e.PresenceRatio, 2),
			formatRounded(e.AvgConfidence, 3),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

// formatRounded rounds to the given number of decimals and trims trailing
// zeros, so 0.60 exports as "0.6" and 0.825 stays "0.825".
func formatRounded(v float64, decimals int) string {
	shift := math.Pow(10, float64(decimals))
	rounded := math.Round(v*shift) / shift
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
