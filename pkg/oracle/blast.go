// BLAST-backed oracle. blastp handles sequence-vs-sequence batches,
// psiblast handles sequence-vs-profile scoring with the profile built
// from a multiple alignment.

package oracle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// Column order requested from both tools. parseTabular depends on it.
const blastOutFmt = "6 qseqid sseqid pident ppos bitscore evalue qstart qend sstart send qlen slen"

// BlastOracle shells out to the NCBI BLAST+ tools.
type BlastOracle struct {
	BlastpPath   string // default "blastp"
	PsiblastPath string // default "psiblast"
	WorkDir      string // temp file location; "" means os.TempDir
}

func NewBlastOracle() *BlastOracle {
	return &BlastOracle{
		BlastpPath:   "blastp",
		PsiblastPath: "psiblast",
	}
}

func (b *BlastOracle) Compare(ctx context.Context, queries, subjects []seq.Sequence, opt Options) ([]Result, error) {

	if len(queries) == 0 || len(subjects) == 0 {
		return nil, nil
	}

	subject_file, cleanup, err := b.tempFasta("subjects", degapAll(subjects))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	args := []string{
		"-subject", subject_file,
		"-outfmt", blastOutFmt,
	}
	args = appendCommonArgs(args, opt)

	cmd := exec.CommandContext(ctx, b.BlastpPath, args...)
	cmd.Stdin = bytes.NewBufferString(seq.FastaString(degapAll(queries)))

	out, err := runOracleCommand(b.BlastpPath, cmd)
	if err != nil {
		return nil, err
	}

	return parseTabular(out)
}

func (b *BlastOracle) CompareProfile(ctx context.Context, subjects []seq.Sequence, msa seq.Alignment, opt Options) ([]Result, error) {

	if len(subjects) == 0 || len(msa) == 0 {
		return nil, nil
	}

	msa_file, cleanupMSA, err := b.tempFasta("msa", msa)
	if err != nil {
		return nil, err
	}
	defer cleanupMSA()

	subject_file, cleanupS, err := b.tempFasta("subjects", degapAll(subjects))
	if err != nil {
		return nil, err
	}
	defer cleanupS()

	// psiblast already puts the profile on the query side, which is
	// the orientation the Oracle interface promises.
	args := []string{
		"-in_msa", msa_file,
		"-subject", subject_file,
		"-outfmt", blastOutFmt,
	}
	args = appendCommonArgs(args, opt)

	cmd := exec.CommandContext(ctx, b.PsiblastPath, args...)

	out, err := runOracleCommand(b.PsiblastPath, cmd)
	if err != nil {
		return nil, err
	}

	return parseTabular(out)
}

// BuildPSSM runs psiblast over the alignment and returns the ASCII
// PSSM text for the profile codec to parse.
func (b *BlastOracle) BuildPSSM(ctx context.Context, msa seq.Alignment, opt Options) ([]byte, error) {

	if len(msa) == 0 {
		return nil, seq.ErrEmptyAlignment
	}

	msa_file, cleanupMSA, err := b.tempFasta("msa", msa)
	if err != nil {
		return nil, err
	}
	defer cleanupMSA()

	pssm_file := msa_file + ".pssm"
	defer os.Remove(pssm_file)

	args := []string{
		"-in_msa", msa_file,
		"-out_ascii_pssm", pssm_file,
		"-num_iterations", "1",
	}
	args = appendCommonArgs(args, opt)

	cmd := exec.CommandContext(ctx, b.PsiblastPath, args...)

	if _, err := runOracleCommand(b.PsiblastPath, cmd); err != nil {
		return nil, err
	}

	return os.ReadFile(pssm_file)
}

func appendCommonArgs(args []string, opt Options) []string {
	if opt.MaxEValue > 0 {
		args = append(args, "-evalue", strconv.FormatFloat(opt.MaxEValue, 'g', -1, 64))
	}
	if opt.Threads > 0 {
		args = append(args, "-num_threads", strconv.Itoa(opt.Threads))
	}
	return args
}

// runOracleCommand runs cmd, capturing stdout and stderr separately so
// a failure carries the tool's own message.
func runOracleCommand(tool string, cmd *exec.Cmd) (*bytes.Buffer, error) {

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &InvocationError{Tool: tool, Stderr: stderr.String(), Err: err}
	}

	return &out, nil
}

func (b *BlastOracle) tempFasta(tag string, seqs []seq.Sequence) (string, func(), error) {

	dir := b.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}

	fh, err := os.CreateTemp(dir, "oracle-"+tag+"-*.fasta")
	if err != nil {
		return "", nil, err
	}
	name := fh.Name()

	if err := seq.WriteFasta(fh, seqs); err != nil {
		fh.Close()
		os.Remove(name)
		return "", nil, fmt.Errorf("writing %s: %w", filepath.Base(name), err)
	}
	if err := fh.Close(); err != nil {
		os.Remove(name)
		return "", nil, err
	}

	return name, func() { os.Remove(name) }, nil
}

func degapAll(seqs []seq.Sequence) []seq.Sequence {
	out := make([]seq.Sequence, len(seqs))
	for i, s := range seqs {
		out[i] = s.Degap()
	}
	return out
}
