package models

import "time"

// Requests and views for the analysis HTTP endpoints. Defined in domain for
// consistency and reuse.

// AnalysisRunRequest is the POST body for starting a run. It mirrors the
// backend's request schema and is forwarded to it verbatim, so optional model
// and portfolio parameters pass through untouched.
type AnalysisRunRequest struct {
	Tickers           []string `json:"tickers" validate:"required,min=1,dive,required"`
	SelectedAgents    []string `json:"selected_agents" validate:"required,min=1,dive,required"`
	StartDate         string   `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate           string   `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ModelName         string   `json:"model_name" default:"gpt-4o"`
	ModelProvider     string   `json:"model_provider" default:"OpenAI"`
	InitialCash       float64  `json:"initial_cash" default:"100000" validate:"gte=0"`
	MarginRequirement float64  `json:"margin_requirement" validate:"gte=0"`
}

// CellRequest addresses one progress cell.
type CellRequest struct {
	Agent  string `query:"agent" json:"agent" validate:"required"`
	Ticker string `query:"ticker" json:"ticker" validate:"required"`
}

// TickerAnalysisView annotates a stored entry for presentation.
type TickerAnalysisView struct {
	TickerAnalysis
	Prominent *AgentSignalEntry `json:"prominent_signal,omitempty"`
}

// DatasetView is the results payload for one source key.
type DatasetView struct {
	SourceKey   string               `json:"source_key"`
	RunID       string               `json:"run_id,omitempty"`
	Tickers     []string             `json:"tickers_analyzed,omitempty"`
	TotalCost   float64              `json:"total_cost"`
	TotalTokens int64                `json:"total_tokens"`
	UpdatedAt   time.Time            `json:"last_updated"`
	Entries     []TickerAnalysisView `json:"entries"`
}

// NewDatasetView builds the presentation view of a dataset slice.
func NewDatasetView(ds *SourceDataset) *DatasetView {
	v := &DatasetView{
		SourceKey:   ds.SourceKey,
		RunID:       ds.RunID,
		Tickers:     ds.Tickers,
		TotalCost:   ds.TotalCost,
		TotalTokens: ds.TotalTokens,
		UpdatedAt:   ds.UpdatedAt,
		Entries:     make([]TickerAnalysisView, 0, len(ds.Entries)),
	}
	for _, e := range ds.Entries {
		view := TickerAnalysisView{TickerAnalysis: e}
		if best, ok := e.ProminentSignal(); ok {
			view.Prominent = &best
		}
		v.Entries = append(v.Entries, view)
	}
	return v
}
