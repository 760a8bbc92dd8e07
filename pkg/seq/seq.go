// Sequence and alignment types shared by the whole pipeline.

package seq

import (
	"errors"
	"fmt"
)

const GapByte = '-'

// Defining possible error
var ErrEmptyAlignment = errors.New("alignment has no sequences")

type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate sequence id: %s", e.ID)
}

type RaggedAlignmentError struct {
	ID   string
	Want int
	Got  int
}

func (e *RaggedAlignmentError) Error() string {
	return fmt.Sprintf("aligned sequence %s has length %d, want %d", e.ID, e.Got, e.Want)
}

// Sequence is an immutable (id, description, residues) triple. Residues
// may contain gap bytes when the sequence comes from an alignment.
// Transformations return new values, they never touch the receiver.
type Sequence struct {
	ID       string
	Desc     string
	Residues string
}

func (s Sequence) Len() int {
	return len(s.Residues)
}

// UngappedLen counts residues, skipping gap bytes.
func (s Sequence) UngappedLen() int {
	n := 0
	for i := 0; i < len(s.Residues); i++ {
		if s.Residues[i] != GapByte {
			n++
		}
	}
	return n
}

// Degap returns a copy of the sequence with gap bytes removed.
func (s Sequence) Degap() Sequence {
	out := make([]byte, 0, len(s.Residues))
	for i := 0; i < len(s.Residues); i++ {
		if s.Residues[i] != GapByte {
			out = append(out, s.Residues[i])
		}
	}
	return Sequence{ID: s.ID, Desc: s.Desc, Residues: string(out)}
}

// LeadingGaps returns the length of the leading gap run.
func (s Sequence) LeadingGaps() int {
	n := 0
	for n < len(s.Residues) && s.Residues[n] == GapByte {
		n++
	}
	return n
}

// TrimLeft drops n leading columns. Trimming past the end yields an
// empty sequence, not a panic.
func (s Sequence) TrimLeft(n int) Sequence {
	if n >= len(s.Residues) {
		return Sequence{ID: s.ID, Desc: s.Desc, Residues: ""}
	}
	return Sequence{ID: s.ID, Desc: s.Desc, Residues: s.Residues[n:]}
}

// Alignment is an ordered list of equal-length sequences. The order is
// a priority order for downstream tie-breaking, nothing biological.
type Alignment []Sequence

// Columns returns the alignment width. Zero for an empty alignment.
func (a Alignment) Columns() int {
	if len(a) == 0 {
		return 0
	}
	return len(a[0].Residues)
}

// Validate checks that every member has the same length and that ids
// are unique and non-empty.
func (a Alignment) Validate() error {
	if len(a) == 0 {
		return ErrEmptyAlignment
	}

	want := len(a[0].Residues)
	seen := make(map[string]struct{}, len(a))

	for _, s := range a {
		if s.ID == "" {
			return fmt.Errorf("alignment contains a sequence with empty id")
		}
		if _, dup := seen[s.ID]; dup {
			return &DuplicateIDError{ID: s.ID}
		}
		seen[s.ID] = struct{}{}
		if len(s.Residues) != want {
			return &RaggedAlignmentError{ID: s.ID, Want: want, Got: len(s.Residues)}
		}
	}

	return nil
}

// IDs returns member ids in alignment order.
func (a Alignment) IDs() []string {
	ids := make([]string, len(a))
	for i, s := range a {
		ids[i] = s.ID
	}
	return ids
}

// PackColumns drops columns that are gaps in every member. The column
// count shrinks, member order is unchanged.
func (a Alignment) PackColumns() Alignment {
	cols := a.Columns()
	if cols == 0 {
		return a
	}

	keep := make([]bool, cols)
	n_keep := 0
	for c := 0; c < cols; c++ {
		for _, s := range a {
			if s.Residues[c] != GapByte {
				keep[c] = true
				n_keep++
				break
			}
		}
	}

	if n_keep == cols {
		return a
	}

	out := make(Alignment, len(a))
	for i, s := range a {
		buf := make([]byte, 0, n_keep)
		for c := 0; c < cols; c++ {
			if keep[c] {
				buf = append(buf, s.Residues[c])
			}
		}
		out[i] = Sequence{ID: s.ID, Desc: s.Desc, Residues: string(buf)}
	}
	return out
}

// TrimLeft cuts n leading columns off every member.
func (a Alignment) TrimLeft(n int) Alignment {
	if n <= 0 {
		return a
	}
	out := make(Alignment, len(a))
	for i, s := range a {
		out[i] = s.TrimLeft(n)
	}
	return out
}

// Get returns the member with the given id.
func (a Alignment) Get(id string) (Sequence, bool) {
	for _, s := range a {
		if s.ID == id {
			return s, true
		}
	}
	return Sequence{}, false
}
