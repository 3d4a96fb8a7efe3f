package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olgkv/tasktracker/internal/domain"

	"github.com/jung-kurt/gofpdf"
)

// BuildTasksReport renders tasks and their summary as a single PDF document.
func BuildTasksReport(tasks []domain.Task, at time.Time) ([]byte, error) {
	p := gofpdf.New("P", "mm", "A4", "")
	tr := p.UnicodeTranslatorFromDescriptor("")
	p.AddPage()
	p.SetFont("Arial", "B", 14)

	p.Cell(40, 10, "Tasks report")
	p.Ln(8)
	p.SetFont("Arial", "", 9)
	p.Cell(40, 6, "Generated "+at.Format(domain.StampLayout))
	p.Ln(10)

	p.SetFont("Arial", "", 11)
	for _, t := range tasks {
		state := "pending"
		if t.Completed {
			state = "done " + t.CompletedAt.Format(domain.TimeLayout)
		}
		p.Cell(40, 8, tr(fmt.Sprintf("#%d  %s  [%s]  %s  (created %s)",
			t.ID, t.Name, t.Priority.Label(), state, t.Created.Format(domain.TimeLayout))))
		p.Ln(7)
	}

	s := domain.Summarize(tasks)
	p.Ln(4)
	p.SetFont("Arial", "B", 11)
	p.Cell(40, 8, fmt.Sprintf("Total %d, completed %d, pending %d (%.0f%%)", s.Total, s.Completed, s.Pending, s.Percent()))
	p.Ln(7)
	p.SetFont("Arial", "", 11)
	for _, pr := range domain.Priorities() {
		p.Cell(40, 7, fmt.Sprintf("%s: %d", pr.Label(), s.ByPriority[pr]))
		p.Ln(6)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
