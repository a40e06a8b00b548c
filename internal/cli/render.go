package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/ernie/aastools/internal/assets"
	"github.com/ernie/aastools/internal/history"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

func (a *app) mark(ok bool) string {
	word, color := "PASS", ansiGreen
	if !ok {
		word, color = "FAIL", ansiRed
	}
	if !a.color {
		return word
	}
	return color + word + ansiReset
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func size(n int64) string {
	return fmt.Sprintf("%s (%s bytes)", humanize.Bytes(uint64(n)), humanize.Comma(n))
}

func (a *app) printSummary(s *assets.BSPSummary) {
	w := a.stdout
	title := s.Name
	if s.Title != "" {
		title = fmt.Sprintf("%s (%s)", s.Name, s.Title)
	}
	fmt.Fprintf(w, "Map:       %s\n", title)
	fmt.Fprintf(w, "Path:      %s\n", s.Path)
	fmt.Fprintf(w, "Size:      %s\n", size(s.FileSize))
	fmt.Fprintf(w, "Format:    %s v%d\n", assets.DecodeLossy(s.Magic[:]), s.Version)
	fmt.Fprintf(w, "Brushes:   %s\n", humanize.Comma(int64(s.BrushCount)))
	fmt.Fprintf(w, "Faces:     %s\n", humanize.Comma(int64(s.FaceCount)))
	fmt.Fprintf(w, "Vertices:  %s\n", humanize.Comma(int64(s.VertexCount)))

	fmt.Fprintf(w, "Textures:  %d\n", len(s.Textures))
	for _, t := range s.Textures {
		fmt.Fprintf(w, "  %s\n", t.Name)
	}

	fmt.Fprintf(w, "Entities:  %d\n", len(s.Entities))
	for _, c := range classCounts(s.Entities) {
		fmt.Fprintf(w, "  %-24s %d\n", c.class, c.n)
	}
	if len(s.Entities) > 0 {
		fmt.Fprintf(w, "\n  %-5s %-28s %-20s %s\n", "#", "classname", "targetname", "origin")
		for i, e := range s.Entities {
			target, _ := e.TargetName()
			fmt.Fprintf(w, "  %-5d %-28s %-20s %s\n", i, dash(e.ClassName()), dash(target), origin(e))
		}
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  - %v\n", warn)
		}
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// origin renders an entity's origin as numbers, or verbatim when it does not
// parse.
func origin(e assets.Entity) string {
	raw, ok := e.Origin()
	if !ok {
		return "-"
	}
	v, err := assets.ParseOrigin(raw)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("%g %g %g", v[0], v[1], v[2])
}

type classCount struct {
	class string
	n     int
}

// classCounts groups entities by classname, most frequent first.
func classCounts(entities []assets.Entity) []classCount {
	counts := make(map[string]int)
	for _, e := range entities {
		name := e.ClassName()
		if name == "" {
			name = "(no classname)"
		}
		counts[name]++
	}
	out := make([]classCount, 0, len(counts))
	for class, n := range counts {
		out = append(out, classCount{class, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].class < out[j].class
	})
	return out
}

func (a *app) printReport(r *assets.ValidationReport) {
	w := a.stdout
	fmt.Fprintf(w, "AAS:    %s\n", r.Path)
	if r.Size > 0 {
		fmt.Fprintf(w, "Size:   %s\n", size(r.Size))
	}
	for _, c := range r.Checks {
		line := fmt.Sprintf("  %s  %s", a.mark(c.Passed), c.Name)
		if c.Note != "" {
			line += "  " + c.Note
		}
		fmt.Fprintln(w, line)
	}
	result := "VALID"
	if !r.OK {
		result = "INVALID"
	}
	fmt.Fprintf(w, "Result: %s\n", result)
}

func (a *app) printRuns(runs []history.Run) {
	w := a.stdout
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		digest := r.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(w, "%s  %-8s %s  %-10s %-12s %s  %s\n",
			r.ID.String()[:8],
			r.Kind,
			a.mark(r.OK),
			humanize.Bytes(uint64(r.Size)),
			digest,
			humanize.Time(r.CreatedAt),
			r.Path,
		)
	}
}

func printList(w io.Writer, header string, items []string) {
	fmt.Fprintln(w, header)
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
}
