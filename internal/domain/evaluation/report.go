package evaluation

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
)

// ReportGenerator renders a published evaluation as a PDF summary for the
// employee's records.
type ReportGenerator struct {
	Dir string
}

func NewReportGenerator(dir string) *ReportGenerator {
	return &ReportGenerator{Dir: dir}
}

func (g *ReportGenerator) Generate(eval Evaluation, employeeName, reviewerName, cycleName string) (string, error) {
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(g.Dir, "evaluation-"+eval.ID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Performance Evaluation")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Reviewer: %s", reviewerName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Cycle: %s", cycleName))
	pdf.Ln(10)

	if eval.Breakdown != nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Section scores")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, section := range eval.Breakdown.Sections {
			pdf.Cell(0, 7, fmt.Sprintf("%s (weight %.0f%%): %.1f", section.Title, section.Weight, section.Score))
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 12)
	if eval.FinalRating != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Final rating: %.1f / 100", *eval.FinalRating))
		pdf.Ln(7)
	}
	if eval.Category != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Category: %s", eval.Category))
		pdf.Ln(7)
	}
	if eval.HRReview != nil && eval.HRReview.AdjustedRating != nil {
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, fmt.Sprintf("Adjusted by HR: %.1f (%s)", *eval.HRReview.AdjustedRating, eval.HRReview.AdjustmentReason))
		pdf.Ln(6)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}
	return filePath, nil
}
