// FASTA reading and writing. Records are read whole, this pipeline
// never needs chunked streaming.

package seq

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// DuplicatePolicy controls what happens when a FASTA file (or a
// clustering input set) repeats an id. Skipping supports resuming a
// partial run over regenerated inputs.
type DuplicatePolicy int

const (
	DuplicateError DuplicatePolicy = iota
	DuplicateSkip
)

// ReadStats counts what the reader dropped.
type ReadStats struct {
	Read      int
	Malformed int
	Skipped   int
}

// ReadFasta parses all records from r. Records with an empty id or an
// empty sequence are counted as malformed and dropped, not fatal.
func ReadFasta(r io.Reader, policy DuplicatePolicy) ([]Sequence, ReadStats, error) {

	var stats ReadStats
	var out []Sequence

	seen := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var id, desc string
	var residues strings.Builder
	have_header := false

	flush := func() error {
		if !have_header {
			return nil
		}
		if id == "" || residues.Len() == 0 {
			stats.Malformed++
			return nil
		}
		if _, dup := seen[id]; dup {
			if policy == DuplicateError {
				return &DuplicateIDError{ID: id}
			}
			stats.Skipped++
			return nil
		}
		seen[id] = struct{}{}
		out = append(out, Sequence{ID: id, Desc: desc, Residues: residues.String()})
		stats.Read++
		return nil
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.HasPrefix(line, ">") {
			if err := flush(); err != nil {
				return nil, stats, err
			}
			header := strings.TrimSpace(line[1:])
			fields := strings.SplitN(header, " ", 2)
			id = fields[0]
			desc = ""
			if len(fields) == 2 {
				desc = fields[1]
			}
			residues.Reset()
			have_header = true
			continue
		}
		residues.WriteString(strings.TrimSpace(line))
	}
	if err := sc.Err(); err != nil {
		return nil, stats, err
	}
	if err := flush(); err != nil {
		return nil, stats, err
	}

	return out, stats, nil
}

// ReadFastaFile opens path (gzip transparently, by suffix) and parses it.
func ReadFastaFile(path string, policy DuplicatePolicy) ([]Sequence, ReadStats, error) {

	fh, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, err
	}
	defer fh.Close()

	var r io.Reader = fh
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			return nil, ReadStats{}, err
		}
		defer gz.Close()
		r = gz
	}

	return ReadFasta(r, policy)
}

// WriteFasta writes sequences with 60-column wrapping.
func WriteFasta(w io.Writer, seqs []Sequence) error {

	bw := bufio.NewWriter(w)

	for _, s := range seqs {
		if s.Desc != "" {
			fmt.Fprintf(bw, ">%s %s\n", s.ID, s.Desc)
		} else {
			fmt.Fprintf(bw, ">%s\n", s.ID)
		}
		for off := 0; off < len(s.Residues); off += 60 {
			end := off + 60
			if end > len(s.Residues) {
				end = len(s.Residues)
			}
			bw.WriteString(s.Residues[off:end])
			bw.WriteByte('\n')
		}
	}

	return bw.Flush()
}

// FastaString renders sequences as a FASTA string, mostly for feeding
// subprocess stdin.
func FastaString(seqs []Sequence) string {
	var sb strings.Builder
	_ = WriteFasta(&sb, seqs)
	return sb.String()
}
