// Thin wrapper over an external multiple aligner. Alignment internals
// stay outside this repo; the pipeline only needs FASTA in, FASTA out.

package align

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/olsonanl/seed-profiles/pkg/oracle"
	"github.com/olsonanl/seed-profiles/pkg/seq"
)

type Aligner interface {
	Align(ctx context.Context, seqs []seq.Sequence) (seq.Alignment, error)
}

// MuscleAligner shells out to muscle, FASTA on stdin, aligned FASTA on
// stdout.
type MuscleAligner struct {
	Path string // default "muscle"
}

func NewMuscleAligner() *MuscleAligner {
	return &MuscleAligner{Path: "muscle"}
}

func (m *MuscleAligner) Align(ctx context.Context, seqs []seq.Sequence) (seq.Alignment, error) {

	if len(seqs) == 0 {
		return nil, seq.ErrEmptyAlignment
	}

	// A single sequence is already its own alignment; muscle errors on
	// that input.
	if len(seqs) == 1 {
		return seq.Alignment{seqs[0].Degap()}, nil
	}

	cmd := exec.CommandContext(ctx, m.Path)
	cmd.Stdin = bytes.NewBufferString(seq.FastaString(seqs))

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &oracle.InvocationError{Tool: m.Path, Stderr: stderr.String(), Err: err}
	}

	aligned, _, err := seq.ReadFasta(&out, seq.DuplicateError)
	if err != nil {
		return nil, err
	}

	// muscle reorders members; restore input order since the alignment
	// order is a priority order downstream.
	by_id := make(map[string]seq.Sequence, len(aligned))
	for _, s := range aligned {
		by_id[s.ID] = s
	}
	result := make(seq.Alignment, 0, len(seqs))
	for _, s := range seqs {
		if a, ok := by_id[s.ID]; ok {
			result = append(result, a)
		}
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}
