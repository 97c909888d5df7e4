package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"cloneselect/app"
	"cloneselect/domain/clone"
	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
	"cloneselect/internal/config"
	"cloneselect/internal/errors"
	"cloneselect/internal/profiling"
	"cloneselect/internal/report"
)

// DataPayload carries the clone table inline
type DataPayload struct {
	Results  []float64           `json:"results"`
	Criteria map[string][]float64 `json:"criteria,omitempty"`
}

func (d DataPayload) table() (*clone.Table, error) {
	if len(d.Results) == 0 {
		return nil, errors.InvalidInput("data.results must contain at least one value")
	}
	table, err := clone.NewTable(d.Results, d.Criteria)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return table, nil
}

// SimulationRequest is the body shared by simulate, sweep, sensitivity and compare
type SimulationRequest struct {
	Data         DataPayload             `json:"data"`
	Config       workflow.Config         `json:"config"`
	Correlations []float64               `json:"correlations,omitempty"`
	Range        *config.CorrelationSpec `json:"correlation_range,omitempty"`
}

// correlations returns the explicit list, else the requested or default range
func (r *SimulationRequest) correlations() ([]float64, error) {
	if len(r.Correlations) > 0 {
		return r.Correlations, nil
	}
	spec := config.DefaultScenario().Correlations
	if r.Range != nil {
		spec = *r.Range
	}
	return app.CorrelationRange(spec.Min, spec.Max, spec.Step)
}

func (s *Server) bindSimulation(c *gin.Context) (*SimulationRequest, *clone.Table, bool) {
	req := &SimulationRequest{Config: s.defaultConfig()}
	if err := c.ShouldBindJSON(req); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return nil, nil, false
	}
	req.Config.Method = workflow.ParseMethod(string(req.Config.Method))

	table, err := req.Data.table()
	if err != nil {
		s.writeError(c, err)
		return nil, nil, false
	}
	return req, table, true
}

func (s *Server) handleSimulate(c *gin.Context) {
	req, table, ok := s.bindSimulation(c)
	if !ok {
		return
	}

	result, err := s.simulation.Simulate(c.Request.Context(), table.Results(), table, req.Config)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": core.NewRunID(),
		"result": result,
	})
}

// handleSweep returns JSON by default; ?format=csv|markdown|html selects a report rendering
func (s *Server) handleSweep(c *gin.Context) {
	req, table, ok := s.bindSimulation(c)
	if !ok {
		return
	}

	correlations, err := req.correlations()
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := s.sweep.SweepCorrelations(ctx, table.Results(), table, req.Config, correlations)
	if err != nil {
		s.writeError(c, err)
		return
	}

	switch c.Query("format") {
	case "csv":
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, result); err != nil {
			s.writeError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="clone_selection_results.csv"`)
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	case "markdown", "html":
		rr := report.RunReport{
			Sweep:    result,
			Warnings: workflow.ValidateParameters(req.Config, table.Len()).Warnings,
		}
		if profile, err := profiling.Profile(table, table.Len()); err == nil {
			rr.Profile = profile
		}
		if c.Query("format") == "html" {
			c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(rr))
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown(rr)))
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) handleSensitivity(c *gin.Context) {
	req, table, ok := s.bindSimulation(c)
	if !ok {
		return
	}

	curves, err := s.sensitivity.Analyze(c.Request.Context(), table.Results(), table, req.Config, req.Correlations)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      core.NewRunID(),
		"sensitivity": curves,
	})
}

func (s *Server) handleCompare(c *gin.Context) {
	req, table, ok := s.bindSimulation(c)
	if !ok {
		return
	}

	cmp, err := s.sweep.CompareWorkflows(c.Request.Context(), table.Results(), table, req.Config)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// SyntheticRequest asks for an overlay sample drawn like the simulator draws
type SyntheticRequest struct {
	Data   DataPayload           `json:"data"`
	Method workflow.Method       `json:"distribution_method"`
	Model  *workflow.FittedModel `json:"fitted_model,omitempty"`
	Count  int                   `json:"count"`
	Seed   *int64                `json:"seed,omitempty"`
}

func (s *Server) handleSynthetic(c *gin.Context) {
	req := SyntheticRequest{Method: workflow.MethodLognormal, Count: app.SyntheticOverlaySize}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	if req.Count <= 0 {
		s.writeError(c, errors.InvalidInput("count must be positive"))
		return
	}
	seed := s.defaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	values, err := s.simulation.Synthetic(c.Request.Context(), req.Data.Results, req.Count, workflow.ParseMethod(string(req.Method)), req.Model, seed)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// EfficiencyRequest is a keep-count plan
type EfficiencyRequest struct {
	Step1Keep     int `json:"step1_keep"`
	Step2Keep     int `json:"step2_keep"`
	Step3Keep     int `json:"step3_keep"`
	WorkflowSteps int `json:"workflow_steps"`
}

func (s *Server) handleEfficiency(c *gin.Context) {
	req := EfficiencyRequest{WorkflowSteps: 2}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	eff, err := workflow.WorkflowEfficiency(req.Step1Keep, req.Step2Keep, req.Step3Keep, req.WorkflowSteps)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eff)
}

// ValidateRequest checks a configuration against a dataset size
type ValidateRequest struct {
	Config      workflow.Config `json:"config"`
	TotalClones int             `json:"total_clones"`
}

func (s *Server) handleValidate(c *gin.Context) {
	req := ValidateRequest{Config: s.defaultConfig()}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	rep := workflow.ValidateParameters(req.Config, req.TotalClones)
	c.JSON(http.StatusOK, gin.H{
		"ok":       rep.OK(),
		"errors":   rep.Errors,
		"warnings": rep.Warnings,
	})
}

func (s *Server) handleProfile(c *gin.Context) {
	var data DataPayload
	if err := c.ShouldBindJSON(&data); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	table, err := data.table()
	if err != nil {
		s.writeError(c, err)
		return
	}

	profile, err := profiling.Profile(table, table.Len())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":          profile,
		"recommendations":  profiling.Recommendations(profile),
		"suggested_method": profiling.SuggestedMethod(profile.Quality.Skewness),
	})
}
