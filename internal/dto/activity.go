package dto

// CreateActivityRequest is the student submission payload.
type CreateActivityRequest struct {
	Category     string   `json:"category" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description" validate:"required"`
	Duration     string   `json:"duration" validate:"required"`
	SkillsGained []string `json:"skills_gained" validate:"dive,required"`
	ProofURL     *string  `json:"proof_url"`
}

// PortfolioFormat selects the portfolio export renderer.
type PortfolioFormat string

const (
	PortfolioPDF PortfolioFormat = "pdf"
	PortfolioCSV PortfolioFormat = "csv"
)
