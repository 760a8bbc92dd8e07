// Render the purification report as tab-separated text

package purify

import (
	"fmt"
	"io"
)

// WriteReport writes one row per sequence. Column order is fixed;
// downstream tooling reads it positionally.
func WriteReport(w io.Writer, report Report) error {

	if _, err := fmt.Fprintln(w, "id\tstatus\te_value\tbit_score\tnbs\tquery_coverage\tsubject_coverage"); err != nil {
		return err
	}

	for _, row := range report {
		var line string
		if row.NoHit {
			line = fmt.Sprintf("%s\t%s\t-\t-\t-\t-\t-", row.ID, row.Status)
		} else {
			line = fmt.Sprintf("%s\t%s\t%.3g\t%.1f\t%.4f\t%.3f\t%.3f",
				row.ID, row.Status, row.EValue, row.BitScore, row.NBS,
				row.QueryCov, row.SubjectCov)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}
