package ai

import (
	"fmt"

	"github.com/xxxsen/framefinder/internal/config"
)

func providerName(item config.ProviderConfig) string {
	if item.Name != "" {
		return item.Name
	}
	return item.Provider + ":" + item.Model
}

// BuildGenerator turns the configured generator list into one fallback
// group. An empty list yields nil, which the manager reports as unavailable.
func BuildGenerator(items []config.ProviderConfig) (IGenerator, error) {
	entries := make([]GeneratorEntry, 0, len(items))
	for i, item := range items {
		p, err := NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("generator[%d]: %w", i, err)
		}
		entries = append(entries, GeneratorEntry{Name: providerName(item), Generator: NewGenerator(p, item.Model)})
	}
	return NewGroupGenerator(entries), nil
}

func BuildEmbedder(items []config.ProviderConfig) (IEmbedder, error) {
	entries := make([]EmbedderEntry, 0, len(items))
	for i, item := range items {
		p, err := NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("embedder[%d]: %w", i, err)
		}
		entries = append(entries, EmbedderEntry{Name: providerName(item), Embedder: NewEmbedder(p, item.Model)})
	}
	return NewGroupEmbedder(entries), nil
}
