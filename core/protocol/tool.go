package protocol

// Tool defines a function that can be proposed by the completion service.
// This is the canonical tool definition type used across the orchestrator.
// Parameters uses JSON Schema format to describe the function's input.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
