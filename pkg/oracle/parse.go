// Parse the tabular output shared by blastp and psiblast.

package oracle

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// parseTabular reads the 12 columns named in blastOutFmt. Blank lines
// and comment lines are ignored; anything else malformed is an error,
// the tools do not emit partial rows.
func parseTabular(out *bytes.Buffer) ([]Result, error) {

	var results []Result

	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 12 {
			return nil, fmt.Errorf("oracle output: want 12 columns, got %d in %q", len(fields), line)
		}

		r, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("oracle output: %w in %q", err, line)
		}
		results = append(results, r)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func parseRow(fields []string) (Result, error) {

	var r Result
	r.QueryID = fields[0]
	r.SubjectID = fields[1]

	fl := func(i int) (float64, error) { return strconv.ParseFloat(fields[i], 64) }
	in := func(i int) (int, error) { return strconv.Atoi(fields[i]) }

	var err error
	var pident, ppos float64

	if pident, err = fl(2); err != nil {
		return r, err
	}
	if ppos, err = fl(3); err != nil {
		return r, err
	}
	if r.BitScore, err = fl(4); err != nil {
		return r, err
	}
	if r.EValue, err = fl(5); err != nil {
		return r, err
	}
	if r.QStart, err = in(6); err != nil {
		return r, err
	}
	if r.QEnd, err = in(7); err != nil {
		return r, err
	}
	if r.SStart, err = in(8); err != nil {
		return r, err
	}
	if r.SEnd, err = in(9); err != nil {
		return r, err
	}
	if r.QLen, err = in(10); err != nil {
		return r, err
	}
	if r.SLen, err = in(11); err != nil {
		return r, err
	}

	r.Identity = pident / 100.0
	r.Positives = ppos / 100.0
	r.Offset = r.QStart - r.SStart

	aligned_s := r.SEnd - r.SStart + 1
	if aligned_s > 0 {
		r.NBS = r.BitScore / float64(aligned_s)
	}
	if r.QLen > 0 {
		r.CoverageQuery = float64(r.QEnd-r.QStart+1) / float64(r.QLen)
	}
	if r.SLen > 0 {
		r.CoverageSubject = float64(aligned_s) / float64(r.SLen)
	}

	return r, nil
}
