// Package report renders simulation runs for people: a markdown summary with
// key findings, its HTML rendering, and a CSV export of the correlation curve.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"cloneselect/app"
	"cloneselect/domain/workflow"
	"cloneselect/internal/profiling"
)

// HighCorrelation is the optimal-correlation level above which strong assay
// agreement is reported as beneficial
const HighCorrelation = 0.7

// RunReport bundles everything known about one run. Only Sweep is required.
type RunReport struct {
	Sweep       *app.SweepResult
	Comparison  *app.WorkflowComparison
	Sensitivity map[string]workflow.SensitivityCurve
	Profile     *profiling.DataProfile
	Warnings    []string
}

// Rating classifies the best success probability of a sweep
func Rating(maxProbability float64) string {
	switch {
	case maxProbability > 0.8:
		return "Excellent performance: current parameters achieve high success rates"
	case maxProbability > 0.6:
		return "Good performance: consider parameter optimization for better results"
	default:
		return "Low performance: significant parameter adjustments recommended"
	}
}

// Findings lists the recommendations derived from a sweep summary
func Findings(s app.SweepSummary) []string {
	findings := []string{Rating(s.MaxProbability)}
	if s.OptimalCorrelation > HighCorrelation {
		findings = append(findings, "High correlation beneficial: strong assay correlation improves selection")
	} else {
		findings = append(findings, "Moderate correlation sufficient: lower correlation still achieves good results")
	}
	return findings
}

// Markdown renders the report
func Markdown(r RunReport) string {
	var b strings.Builder
	sweep := r.Sweep
	cfg := sweep.Config

	fmt.Fprintf(&b, "# Clone Selection Simulation\n\n")
	fmt.Fprintf(&b, "Run `%s`\n\n", sweep.RunID)

	b.WriteString("## Parameters\n\n")
	fmt.Fprintf(&b, "- Workflow steps: %d\n", cfg.WorkflowSteps)
	fmt.Fprintf(&b, "- Top X%%: %g%%\n", cfg.TopXPercent)
	fmt.Fprintf(&b, "- Step 1 keep: %d clones\n", cfg.Step1Keep)
	fmt.Fprintf(&b, "- Step 2 keep: %d clones\n", cfg.Step2Keep)
	fmt.Fprintf(&b, "- Final clones: %d\n", cfg.FinalKeep())
	fmt.Fprintf(&b, "- Monte Carlo repetitions: %d\n", cfg.NRep)
	fmt.Fprintf(&b, "- Distribution method: %s\n", cfg.Method)
	for _, c := range cfg.Criteria {
		fmt.Fprintf(&b, "- Criterion: `%s`\n", c)
	}
	b.WriteString("\n")

	s := sweep.Summary
	b.WriteString("## Key Findings\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Maximum success rate | %.1f%% |\n", 100*s.MaxProbability)
	fmt.Fprintf(&b, "| Minimum success rate | %.1f%% |\n", 100*s.MinProbability)
	fmt.Fprintf(&b, "| Average success rate | %.1f%% |\n", 100*s.MeanProbability)
	fmt.Fprintf(&b, "| Optimal correlation | %.2f |\n", s.OptimalCorrelation)
	fmt.Fprintf(&b, "| Improvement range | %.1f%% |\n\n", 100*s.ImprovementRange)

	b.WriteString("## Recommendations\n\n")
	for _, f := range Findings(s) {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "- Warning: %s\n", w)
	}
	b.WriteString("\n")

	e := sweep.Efficiency
	b.WriteString("## Efficiency\n\n")
	fmt.Fprintf(&b, "- Reduction ratio: %.1fx\n", e.ReductionRatio)
	fmt.Fprintf(&b, "- Step 1 efficiency: %.1f%%\n", 100*e.Step1Efficiency)
	fmt.Fprintf(&b, "- Step 2 efficiency: %.1f%%\n", 100*e.Step2Efficiency)
	fmt.Fprintf(&b, "- Overall efficiency: %.1f%%\n\n", 100*e.OverallEfficiency)

	if r.Comparison != nil {
		b.WriteString("## Workflow Comparison\n\n")
		fmt.Fprintf(&b, "At correlation %.2f: 2-step %.3f, 3-step %.3f\n\n",
			r.Comparison.Correlation, r.Comparison.TwoStep, r.Comparison.ThreeStep)
	}

	if len(r.Sensitivity) > 0 {
		b.WriteString("## Sensitivity\n\n| Parameter | Range | Max probability |\n|---|---|---|\n")
		names := make([]string, 0, len(r.Sensitivity))
		for name := range r.Sensitivity {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			curve := r.Sensitivity[name]
			if len(curve.Values) == 0 {
				continue
			}
			maxP := curve.Probabilities[0]
			for _, p := range curve.Probabilities {
				if p > maxP {
					maxP = p
				}
			}
			fmt.Fprintf(&b, "| %s | %g - %g | %.3f |\n", name, curve.Values[0], curve.Values[len(curve.Values)-1], maxP)
		}
		b.WriteString("\n")
	}

	if p := r.Profile; p != nil {
		b.WriteString("## Data\n\n")
		fmt.Fprintf(&b, "- Total rows: %d (valid %d, missing %d)\n", p.Summary.TotalRows, p.Summary.ValidResults, p.Summary.MissingResults)
		fmt.Fprintf(&b, "- Mean %.3f, std %.3f, min %.3f, max %.3f\n", p.Summary.Mean, p.Summary.StdDev, p.Summary.Min, p.Summary.Max)
		fmt.Fprintf(&b, "- Skewness %.2f, %d potential outliers\n\n", p.Quality.Skewness, p.Quality.Outliers)
	}

	return b.String()
}

// HTML renders the markdown report as an HTML fragment
func HTML(r RunReport) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(Markdown(r)), p, renderer)
}

// WriteCSV exports the correlation curve as Correlation,Success_Probability rows
func WriteCSV(w io.Writer, sweep *app.SweepResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Correlation", "Success_Probability"}); err != nil {
		return err
	}
	for _, p := range sweep.Points {
		row := []string{
			strconv.FormatFloat(p.Correlation, 'f', -1, 64),
			strconv.FormatFloat(p.Probability, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
