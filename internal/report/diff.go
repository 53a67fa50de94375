package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/linkspider/internal/model"
	"github.com/nao1215/markdown"
)

// WriteDiff writes a run comparison in the given format.
func WriteDiff(output io.Writer, diff *model.RunDiff, format Format) error {
	switch format {
	case FormatJSON:
		_, err := NewJSONWriter(output, WithPrettyPrint()).writeJSON(diff)
		return err
	case FormatMarkdown:
		return writeDiffMarkdown(output, diff)
	default:
		return writeDiffText(output, diff)
	}
}

func writeDiffText(output io.Writer, diff *model.RunDiff) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Comparing run #%d with run #%d\n\n", diff.RunA, diff.RunB)
	fmt.Fprintf(&sb, "  only in #%d: %d\n", diff.RunA, len(diff.OnlyInA))
	fmt.Fprintf(&sb, "  only in #%d: %d\n", diff.RunB, len(diff.OnlyInB))
	fmt.Fprintf(&sb, "  in both:    %d\n", len(diff.InBoth))

	if !diff.HasChanges() {
		sb.WriteString("\nNo differences.\n")
	}
	for _, addr := range diff.OnlyInA {
		sb.WriteString("- " + addr + "\n")
	}
	for _, addr := range diff.OnlyInB {
		sb.WriteString("+ " + addr + "\n")
	}

	_, err := io.WriteString(output, sb.String())
	return err
}

func writeDiffMarkdown(output io.Writer, diff *model.RunDiff) error {
	a := "#" + strconv.FormatInt(diff.RunA, 10)
	b := "#" + strconv.FormatInt(diff.RunB, 10)

	md := markdown.NewMarkdown(output)
	md.H1("Run " + a + " vs " + b)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Set", "Addresses"},
		Rows: [][]string{
			{"Only in " + a, strconv.Itoa(len(diff.OnlyInA))},
			{"Only in " + b, strconv.Itoa(len(diff.OnlyInB))},
			{"In both", strconv.Itoa(len(diff.InBoth))},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("Both runs discovered the same addresses.")
		return md.Build()
	}
	if len(diff.OnlyInA) > 0 {
		md.H2("Only in " + a)
		md.PlainText("")
		md.BulletList(diff.OnlyInA...)
		md.PlainText("")
	}
	if len(diff.OnlyInB) > 0 {
		md.H2("Only in " + b)
		md.PlainText("")
		md.BulletList(diff.OnlyInB...)
		md.PlainText("")
	}
	return md.Build()
}
