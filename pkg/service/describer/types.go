package describer

import "context"

// Service writes a short description for a page that did not provide one
type Service interface {
	Describe(ctx context.Context, input Input) (string, error)
}

// Input is what the model sees about the page
type Input struct {
	Title    string
	URL      string
	SiteName string
}

// llmResponse represents the structured response from LLM
type llmResponse struct {
	Description string `json:"description"`
}
