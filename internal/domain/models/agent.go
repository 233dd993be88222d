package models

// AgentInfo is one catalog entry. Key is the bare id without the "_agent"
// wire suffix.
type AgentInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Style       string `json:"style"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}
