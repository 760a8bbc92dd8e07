// Profile artifact: master sequence, position-specific scoring matrix
// and calibration constants, written as one plain-text file.

package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olsonanl/seed-profiles/internal/util"
	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// Alphabet fixes the column order of every matrix row.
const Alphabet = "ARNDCQEGHILKMFPSTWYV"

var ErrBadArtifact = errors.New("malformed profile artifact")

// Row is the scores for one profile column, one per alphabet symbol.
type Row []float64

// Profile is the searchable artifact built from a purified cluster.
type Profile struct {
	ID     string
	Title  string
	Master seq.Sequence
	Rows   []Row

	Lambda  float64
	Kappa   float64
	Entropy float64
}

// Encode writes the artifact. One matrix row per line: position,
// master residue, then the per-symbol scores in Alphabet order.
func (p *Profile) Encode(w io.Writer) error {

	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# seed-profiles pssm v1")
	fmt.Fprintf(bw, "id\t%s\n", p.ID)
	fmt.Fprintf(bw, "title\t%s\n", p.Title)
	fmt.Fprintf(bw, "master\t%s\t%s\n", p.Master.ID, p.Master.Residues)
	fmt.Fprintf(bw, "alphabet\t%s\n", Alphabet)
	fmt.Fprintf(bw, "calib\t%g\t%g\t%g\n", p.Lambda, p.Kappa, p.Entropy)
	fmt.Fprintf(bw, "matrix\t%d\n", len(p.Rows))

	master := p.Master.Degap().Residues
	for i, row := range p.Rows {
		res := byte('X')
		if i < len(master) {
			res = master[i]
		}
		fmt.Fprintf(bw, "%d\t%c", i+1, res)
		for _, s := range row {
			fmt.Fprintf(bw, "\t%g", s)
		}
		fmt.Fprintln(bw)
	}

	return bw.Flush()
}

// WriteFile writes the artifact atomically so a crashed run never
// leaves a truncated profile for the restart check to trust.
func (p *Profile) WriteFile(path string) error {
	var sb strings.Builder
	if err := p.Encode(&sb); err != nil {
		return err
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0644)
}

// Decode reads an artifact produced by Encode.
func Decode(r io.Reader) (*Profile, error) {

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	p := &Profile{}
	n_rows := -1

	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		switch fields[0] {
		case "id":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: bad id line", ErrBadArtifact)
			}
			p.ID = fields[1]
		case "title":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: bad title line", ErrBadArtifact)
			}
			p.Title = fields[1]
		case "master":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: bad master line", ErrBadArtifact)
			}
			p.Master = seq.Sequence{ID: fields[1], Residues: fields[2]}
		case "alphabet":
			if len(fields) != 2 || fields[1] != Alphabet {
				return nil, fmt.Errorf("%w: unsupported alphabet", ErrBadArtifact)
			}
		case "calib":
			if len(fields) != 4 {
				return nil, fmt.Errorf("%w: bad calib line", ErrBadArtifact)
			}
			var err error
			if p.Lambda, err = strconv.ParseFloat(fields[1], 64); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
			}
			if p.Kappa, err = strconv.ParseFloat(fields[2], 64); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
			}
			if p.Entropy, err = strconv.ParseFloat(fields[3], 64); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
			}
		case "matrix":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: bad matrix line", ErrBadArtifact)
			}
			var err error
			if n_rows, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
			}
		default:
			row, err := parseMatrixRow(fields)
			if err != nil {
				return nil, err
			}
			p.Rows = append(p.Rows, row)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if n_rows >= 0 && n_rows != len(p.Rows) {
		return nil, fmt.Errorf("%w: matrix declares %d rows, found %d", ErrBadArtifact, n_rows, len(p.Rows))
	}

	return p, nil
}

// ReadFile reads an artifact from disk.
func ReadFile(path string) (*Profile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Decode(fh)
}

func parseMatrixRow(fields []string) (Row, error) {
	if len(fields) != 2+len(Alphabet) {
		return nil, fmt.Errorf("%w: matrix row has %d fields", ErrBadArtifact, len(fields))
	}
	row := make(Row, len(Alphabet))
	for i := 0; i < len(Alphabet); i++ {
		v, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
		}
		row[i] = v
	}
	return row, nil
}
