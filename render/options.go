package render

// Paper formats accepted by PDFOptions.Format.
const (
	FormatLetter = "Letter"
	FormatLegal  = "Legal"
	FormatA4     = "A4"
)

// PDFOptions overlays the defaults used to produce a PDF. Margin values are
// in inches. Nil pointer fields fall back to the defaults: Letter paper,
// backgrounds printed, a one inch top margin, and zero margins elsewhere.
type PDFOptions struct {
	Format          string
	PrintBackground *bool
	MarginTop       *float64
	MarginRight     *float64
	MarginBottom    *float64
	MarginLeft      *float64
}

func (opts PDFOptions) withDefaults() PDFOptions {
	merged := opts
	if merged.Format == "" {
		merged.Format = FormatLetter
	}
	if merged.PrintBackground == nil {
		printBackground := true
		merged.PrintBackground = &printBackground
	}
	if merged.MarginTop == nil {
		top := 1.0
		merged.MarginTop = &top
	}
	zero := 0.0
	if merged.MarginRight == nil {
		merged.MarginRight = &zero
	}
	if merged.MarginBottom == nil {
		merged.MarginBottom = &zero
	}
	if merged.MarginLeft == nil {
		merged.MarginLeft = &zero
	}
	return merged
}

// PaperSize returns the paper dimensions in inches for the configured format.
// Unknown formats fall back to Letter.
func (opts PDFOptions) PaperSize() (width, height float64) {
	switch opts.Format {
	case FormatLegal:
		return 8.5, 14
	case FormatA4:
		return 8.27, 11.69
	default:
		return 8.5, 11
	}
}
