// Per-cluster processing and output files. Every cluster writes into
// its own directory, so concurrent jobs never share a path.

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/olsonanl/seed-profiles/internal/util"
	"github.com/olsonanl/seed-profiles/pkg/cluster"
	"github.com/olsonanl/seed-profiles/pkg/profile"
	"github.com/olsonanl/seed-profiles/pkg/purify"
	"github.com/olsonanl/seed-profiles/pkg/seq"
)

const (
	fileUnaligned = "members.fasta"
	fileIDList    = "members.tsv"
	fileAligned   = "aligned.fasta"
	fileRendered  = "alignment.txt"
	fileReport    = "purify.tsv"
	fileProfile   = "profile.pssm"
)

func (p *Pipeline) clusterDir(bucket, clusterID string) string {
	return filepath.Join(p.opt.OutDir, bucket, clusterID)
}

func (p *Pipeline) reportPath(bucket, clusterID string) string {
	return filepath.Join(p.clusterDir(bucket, clusterID), fileReport)
}

// doneOnDisk reports whether a cluster's outputs are already complete:
// a non-empty report, and a profile artifact whenever the report kept
// any member. A report without kept members is a terminal output on
// its own.
func (p *Pipeline) doneOnDisk(bucket, clusterID string) bool {
	report := p.reportPath(bucket, clusterID)
	if !util.NonEmptyFile(report) {
		return false
	}
	if util.NonEmptyFile(filepath.Join(p.clusterDir(bucket, clusterID), fileProfile)) {
		return true
	}
	return !reportKeptAny(report)
}

// reportKeptAny scans a purification report for in_profile rows. An
// unreadable report counts as kept, so the cluster gets redone.
func reportKeptAny(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) > 1 && fields[1] == string(purify.StatusInProfile) {
			return true
		}
	}
	return false
}

// processCluster is the "align + purify + build" job body.
func (p *Pipeline) processCluster(ctx context.Context, bucketName string, c *cluster.Cluster) error {

	dir := p.clusterDir(bucketName, c.ID)
	if err := util.EnsureDir(dir); err != nil {
		return err
	}

	if err := writeClusterInputs(dir, c); err != nil {
		return err
	}

	aligned, err := p.aligner.Align(ctx, c.Members)
	if err != nil {
		return err
	}

	if err := writeAlignment(dir, c.ID, aligned); err != nil {
		return err
	}

	purifier, err := purify.NewEngine(p.opt.PurifyCfg, p.orc)
	if err != nil {
		return err
	}
	res, err := purifier.Purify(ctx, aligned)
	if err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, fileReport), func(f *os.File) error {
		return purify.WriteReport(f, res.Report)
	}); err != nil {
		return err
	}

	// An all-failing cluster legitimately yields an empty profile; the
	// report is the terminal output then, there is nothing to build.
	if len(res.Profile) == 0 {
		return nil
	}

	builder, ok := p.orc.(PSSMBuilder)
	if !ok {
		return nil
	}

	ascii, err := builder.BuildPSSM(ctx, res.Profile, p.opt.PurifyCfg.OracleOpts)
	if err != nil {
		return err
	}

	prof, err := profile.FromASCIIPSSM(ascii, c.ID, "cluster "+c.ID, res.Profile[0])
	if err != nil {
		return err
	}

	return prof.WriteFile(filepath.Join(dir, fileProfile))
}

func writeClusterInputs(dir string, c *cluster.Cluster) error {

	unaligned := make([]seq.Sequence, len(c.Members))
	for i, m := range c.Members {
		unaligned[i] = m.Degap()
	}

	if err := writeFile(filepath.Join(dir, fileUnaligned), func(f *os.File) error {
		return seq.WriteFasta(f, unaligned)
	}); err != nil {
		return err
	}

	return writeFile(filepath.Join(dir, fileIDList), func(f *os.File) error {
		return seq.WriteIDList(f, c.ID, seq.Alignment(c.Members))
	})
}

func writeAlignment(dir, clusterID string, aligned seq.Alignment) error {

	if err := writeFile(filepath.Join(dir, fileAligned), func(f *os.File) error {
		return seq.WriteFasta(f, aligned)
	}); err != nil {
		return err
	}

	return writeFile(filepath.Join(dir, fileRendered), func(f *os.File) error {
		return seq.RenderAlignmentText(f, clusterID, aligned)
	})
}

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
