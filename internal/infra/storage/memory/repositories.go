package memory

import (
	"context"
	"strings"
	"sync"

	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
)

// PropertyRepository is an in-memory property store.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[domainproperty.PropertyID]*domainproperty.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[domainproperty.PropertyID]*domainproperty.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainproperty.ErrPropertyNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

// CategoryRepository keeps seasonal fee categories in memory.
type CategoryRepository struct {
	mu    sync.RWMutex
	items map[domainproperty.CategoryID]*domainproperty.SeasonCategory
}

func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{items: make(map[domainproperty.CategoryID]*domainproperty.SeasonCategory)}
}

func (r *CategoryRepository) ByID(ctx context.Context, id domainproperty.CategoryID) (*domainproperty.SeasonCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, domainproperty.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CategoryRepository) Save(ctx context.Context, c *domainproperty.SeasonCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

// AgentRepository keeps booking agents keyed by case-insensitive name.
type AgentRepository struct {
	mu    sync.RWMutex
	items map[string]*domainproperty.BookingAgent
}

func NewAgentRepository() *AgentRepository {
	return &AgentRepository{items: make(map[string]*domainproperty.BookingAgent)}
}

func (r *AgentRepository) ByName(ctx context.Context, name string) (*domainproperty.BookingAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[agentKey(name)]
	if !ok {
		return nil, domainproperty.ErrAgentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AgentRepository) Save(ctx context.Context, a *domainproperty.BookingAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.items[agentKey(a.Name)] = &cp
	return nil
}

func agentKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RuleRepository stores pricing rules; ForProperty returns the property's own
// rules plus all global templates.
type RuleRepository struct {
	mu    sync.RWMutex
	rules []domainpricing.Rule
}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{}
}

func (r *RuleRepository) ForProperty(ctx context.Context, id domainproperty.PropertyID) ([]domainpricing.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainpricing.Rule, 0)
	for _, rule := range r.rules {
		if rule.PropertyID == id {
			out = append(out, rule)
		}
	}
	for _, rule := range r.rules {
		if rule.PropertyID == "" {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule domainpricing.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].ID == rule.ID {
			r.rules[i] = rule
			return nil
		}
	}
	r.rules = append(r.rules, rule)
	return nil
}
