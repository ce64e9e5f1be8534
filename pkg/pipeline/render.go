package pipeline

import (
	"github.com/matzehuels/sheetflow/pkg/errors"
	"github.com/matzehuels/sheetflow/pkg/measure"
	"github.com/matzehuels/sheetflow/pkg/paginate"
	"github.com/matzehuels/sheetflow/pkg/render/sink"
)

// RenderInput is what the sinks draw besides the plan itself.
type RenderInput struct {
	Title  string
	Labels map[string]string
	// Report, when set, adds a drift sheet to spreadsheet exports.
	Report *measure.Report
}

// Render generates output artifacts in the requested formats.
func Render(plan paginate.Plan, in RenderInput, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	var labels map[string]string
	if opts.Labels {
		labels = in.Labels
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = sink.RenderJSON(plan)
		case FormatSVG:
			data = sink.RenderSVG(plan, svgOptions(labels, opts)...)
		case FormatPDF:
			data, err = sink.RenderPDF(plan, pdfOptions(in.Title, labels, opts)...)
		case FormatXLSX:
			data, err = sink.RenderXLSX(plan, xlsxOptions(labels, in.Report)...)
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func svgOptions(labels map[string]string, opts Options) []sink.SVGOption {
	var out []sink.SVGOption
	if labels != nil {
		out = append(out, sink.WithLabels(labels))
	}
	if opts.Thresholds {
		out = append(out, sink.WithThresholdLines())
	}
	return out
}

func pdfOptions(title string, labels map[string]string, opts Options) []sink.PDFOption {
	var out []sink.PDFOption
	if title != "" {
		out = append(out, sink.WithPDFTitle(title))
	}
	if labels != nil {
		out = append(out, sink.WithPDFLabels(labels))
	}
	if opts.Thresholds {
		out = append(out, sink.WithPDFThresholdLines())
	}
	return out
}

func xlsxOptions(labels map[string]string, report *measure.Report) []sink.XLSXOption {
	var out []sink.XLSXOption
	if labels != nil {
		out = append(out, sink.WithXLSXLabels(labels))
	}
	if report != nil {
		out = append(out, sink.WithDriftReport(report))
	}
	return out
}
