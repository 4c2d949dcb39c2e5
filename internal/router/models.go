// internal/router/models.go
package router

import "github.com/vihaan69-420/school-agent-simple/internal/types"

// DefaultModelID is the model used when a request names none.
const DefaultModelID = "general"

// modelRegistry is the static set of selectable response strategies.
var modelRegistry = []types.ModelDescriptor{
	{
		ID:          "general",
		Name:        "Study Companion",
		Description: "Quick, accurate responses for general academic queries and homework help.",
		Capabilities: types.Capabilities{
			SupportsWebScraping:   false,
			SupportsKnowledgeBase: false,
			SupportsCitations:     true,
			SupportsStreaming:     true,
		},
	},
	{
		ID:          "everest",
		Name:        "Everest Scholar",
		Description: "Official school assistant grounded in the indexed study corpus.",
		Capabilities: types.Capabilities{
			SupportsWebScraping:   true,
			SupportsKnowledgeBase: true,
			SupportsCitations:     true,
			SupportsStreaming:     true,
		},
	},
	{
		ID:          "web_scraper",
		Name:        "Research Scholar",
		Description: "Advanced academic research tool for web analysis with citations.",
		Capabilities: types.Capabilities{
			SupportsWebScraping:   true,
			SupportsKnowledgeBase: false,
			SupportsCitations:     true,
			SupportsStreaming:     true,
		},
	},
}

// Models returns all registered model descriptors.
func Models() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, len(modelRegistry))
	copy(out, modelRegistry)
	return out
}

// Lookup returns the descriptor for id, if registered.
func Lookup(id string) (types.ModelDescriptor, bool) {
	for _, m := range modelRegistry {
		if m.ID == id {
			return m, true
		}
	}
	return types.ModelDescriptor{}, false
}
