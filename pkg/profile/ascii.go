// Parse the ASCII PSSM emitted by psiblast -out_ascii_pssm into a
// Profile. The calibration constants are pulled from the standard
// ungapped Karlin-Altschul line.

package profile

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// FromASCIIPSSM builds the artifact from raw psiblast output. master
// supplies the id/residues recorded alongside the matrix.
func FromASCIIPSSM(data []byte, id, title string, master seq.Sequence) (*Profile, error) {

	p := &Profile{ID: id, Title: title, Master: master}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var col_order []byte
	in_matrix := false

	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			in_matrix = false
			continue
		}

		// The column header names each alphabet letter twice (scores,
		// then frequencies). Take the first 20.
		if col_order == nil && looksLikeHeader(trimmed) {
			letters := strings.Fields(trimmed)
			col_order = make([]byte, 0, len(Alphabet))
			for _, l := range letters {
				if len(l) == 1 && len(col_order) < len(Alphabet) {
					col_order = append(col_order, l[0])
				}
			}
			in_matrix = true
			continue
		}

		if in_matrix {
			fields := strings.Fields(trimmed)
			if len(fields) < 2+len(Alphabet) {
				in_matrix = false
				continue
			}
			if _, err := strconv.Atoi(fields[0]); err != nil {
				in_matrix = false
				continue
			}
			row := make(Row, len(Alphabet))
			ok := true
			for i := 0; i < len(Alphabet); i++ {
				v, err := strconv.ParseFloat(fields[2+i], 64)
				if err != nil {
					ok = false
					break
				}
				// reorder into Alphabet order
				idx := strings.IndexByte(Alphabet, col_order[i])
				if idx < 0 {
					ok = false
					break
				}
				row[idx] = v
			}
			if !ok {
				in_matrix = false
				continue
			}
			p.Rows = append(p.Rows, row)
			continue
		}

		if strings.HasPrefix(trimmed, "Standard Ungapped") {
			fields := strings.Fields(trimmed)
			if len(fields) >= 4 {
				// "Standard Ungapped <K> <Lambda>"
				if k, err := strconv.ParseFloat(fields[2], 64); err == nil {
					p.Kappa = k
				}
				if l, err := strconv.ParseFloat(fields[3], 64); err == nil {
					p.Lambda = l
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(p.Rows) == 0 {
		return nil, fmt.Errorf("%w: no matrix rows in psiblast output", ErrBadArtifact)
	}

	// The ASCII format carries no H value; estimate it from the matrix.
	p.Entropy = entropyEstimate(p.Rows)

	return p, nil
}

func looksLikeHeader(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < len(Alphabet) {
		return false
	}
	for _, f := range fields[:len(Alphabet)] {
		if len(f) != 1 || f[0] < 'A' || f[0] > 'Z' {
			return false
		}
	}
	return true
}

// entropyEstimate averages the positive score mass of each column, a
// stand-in for the H value the binary PSSM format carries.
func entropyEstimate(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	total := 0.0
	for _, row := range rows {
		pos := 0.0
		for _, v := range row {
			if v > 0 {
				pos += v
			}
		}
		total += pos / float64(len(row))
	}
	return total / float64(len(rows))
}
