// Render plain-text views of an alignment

package seq

import (
	"fmt"
	"io"
	"text/template"
)

var alignment_header_template *template.Template

// init initializes the template used for the rendered alignment header.
func init() {
	headerTmpl := `# alignment: {{ .Name }}
# sequences: {{ .Count }}  columns: {{ .Columns }}
`
	alignment_header_template = template.Must(
		template.New("alignment_header").Parse(headerTmpl))
}

// WriteIDList writes one "cluster_id<TAB>sequence_id" line per member.
func WriteIDList(w io.Writer, clusterID string, a Alignment) error {
	for _, s := range a {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", clusterID, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// RenderAlignmentText writes a block-formatted view of the alignment:
// a small header, then 60-column blocks with the id in a left gutter.
func RenderAlignmentText(w io.Writer, name string, a Alignment) error {

	data := struct {
		Name    string
		Count   int
		Columns int
	}{Name: name, Count: len(a), Columns: a.Columns()}

	if err := alignment_header_template.Execute(w, data); err != nil {
		return err
	}

	// Gutter width fits the longest id
	gutter := 0
	for _, s := range a {
		if len(s.ID) > gutter {
			gutter = len(s.ID)
		}
	}

	cols := a.Columns()
	for off := 0; off < cols; off += 60 {
		end := off + 60
		if end > cols {
			end = cols
		}
		for _, s := range a {
			if _, err := fmt.Fprintf(w, "%-*s  %s\n", gutter, s.ID, s.Residues[off:end]); err != nil {
				return err
			}
		}
		if end < cols {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}

	return nil
}
