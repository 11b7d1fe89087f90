package sources

import (
	"context"
	"fmt"
	"sync"

	"github.com/schemabounce/kolumn/dbwizard/config"
)

// MemorySource holds a configuration document in process. It is what hosts
// use when the editor already has the config file open.
type MemorySource struct {
	mu  sync.RWMutex
	doc *config.Document
}

// NewMemorySource creates an empty memory source
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// Configure accepts an optional "content" setting holding the config XML.
func (s *MemorySource) Configure(_ context.Context, settings map[string]interface{}) error {
	var content string
	stringSetting(settings, "content", &content)
	if content == "" {
		return nil
	}
	return s.SetContent(content)
}

// SetContent parses and stores content.
func (s *MemorySource) SetContent(content string) error {
	doc, err := config.ParseString(content)
	if err != nil {
		return fmt.Errorf("invalid memory configuration: %w", err)
	}
	s.SetDocument(doc)
	return nil
}

// SetDocument stores doc; nil means no configuration exists.
func (s *MemorySource) SetDocument(doc *config.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

// Load implements config.Loader.
func (s *MemorySource) Load(context.Context) (*config.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, config.ErrNotFound
	}
	return s.doc, nil
}
