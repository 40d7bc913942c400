package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/domain/template"
)

// TemplateService holds the built-in debate templates plus any custom
// registrations. Built-ins cannot be removed or shadowed.
type TemplateService struct {
	mu      sync.RWMutex
	builtin map[string]template.Template
	custom  map[string]template.Template
}

func NewTemplateService() *TemplateService {
	s := &TemplateService{
		builtin: make(map[string]template.Template),
		custom:  make(map[string]template.Template),
	}
	for _, tpl := range template.BuiltIns() {
		s.builtin[tpl.ID] = tpl
	}
	return s
}

// Get returns the template with the given id.
func (s *TemplateService) Get(id string) (*template.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tpl, ok := s.builtin[id]; ok {
		return &tpl, nil
	}
	if tpl, ok := s.custom[id]; ok {
		return &tpl, nil
	}
	return nil, fmt.Errorf("%w: template %q", domain.ErrNotFound, id)
}

// List returns all templates, built-ins first, each group sorted by id.
func (s *TemplateService) List() []template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]template.Template, 0, len(s.builtin)+len(s.custom))
	out = append(out, sortedValues(s.builtin)...)
	out = append(out, sortedValues(s.custom)...)
	return out
}

// Add registers a custom template. Ids must not collide with built-ins
// or existing custom templates.
func (s *TemplateService) Add(tpl template.Template) error {
	if tpl.ID == "" || tpl.Name == "" {
		return fmt.Errorf("%w: template id and name are required", domain.ErrValidation)
	}
	if tpl.DebateRounds < 1 {
		return fmt.Errorf("%w: template rounds must be >= 1", domain.ErrValidation)
	}
	if tpl.ConsensusThreshold < 0 || tpl.ConsensusThreshold > 1 {
		return fmt.Errorf("%w: template threshold must be in [0, 1]", domain.ErrValidation)
	}
	if !debate.ValidMode(tpl.ConsensusMode) {
		return fmt.Errorf("%w: unknown consensus mode %q", domain.ErrValidation, tpl.ConsensusMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.builtin[tpl.ID]; ok {
		return fmt.Errorf("%w: template %q is built-in", domain.ErrConflict, tpl.ID)
	}
	if _, ok := s.custom[tpl.ID]; ok {
		return fmt.Errorf("%w: template %q already exists", domain.ErrConflict, tpl.ID)
	}
	s.custom[tpl.ID] = tpl
	return nil
}

// Remove deletes a custom template. Built-ins cannot be removed.
func (s *TemplateService) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.builtin[id]; ok {
		return fmt.Errorf("%w: template %q is built-in", domain.ErrConflict, id)
	}
	if _, ok := s.custom[id]; !ok {
		return fmt.Errorf("%w: template %q", domain.ErrNotFound, id)
	}
	delete(s.custom, id)
	return nil
}

func sortedValues(m map[string]template.Template) []template.Template {
	out := make([]template.Template, 0, len(m))
	for _, tpl := range m {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
