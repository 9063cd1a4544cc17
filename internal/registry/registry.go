// File: internal/registry/registry.go
package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
)

// Registry is the validated, in-memory rule catalog. It is an explicitly
// constructed object injected into the engine by reference, never
// module-level shared state, so repeated or concurrent runs in one process
// cannot cross-contaminate.
//
// Registration happens before execution and is guarded for writers; the
// engine only reads during a run.
type Registry struct {
	mu     sync.RWMutex
	rules  map[string]schemas.Rule
	order  []string
	logger *zap.Logger
}

// RuleStatus pairs a rule's metadata with its derived disabled flag.
// Stored entries are never mutated to carry the flag.
type RuleStatus struct {
	Meta     schemas.RuleMeta `json:"meta"`
	Disabled bool             `json:"disabled"`
}

// New returns an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rules:  make(map[string]schemas.Rule),
		logger: logger.Named("registry"),
	}
}

// Register validates and stores a rule. It rejects nil rules, metadata that
// fails its field checks, and ids that are already registered. Registration
// errors are programming-time defects and are returned immediately.
func (r *Registry) Register(rule schemas.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule must not be nil")
	}
	meta := rule.Meta()
	if err := meta.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[meta.ID]; exists {
		return fmt.Errorf("rule %q already exists", meta.ID)
	}
	r.rules[meta.ID] = rule
	r.order = append(r.order, meta.ID)
	r.logger.Debug("rule registered",
		zap.String("rule", meta.ID), zap.String("category", string(meta.Category)))
	return nil
}

// RegisterMany registers each rule in order, stopping at the first failure.
// Rules registered before the failure remain registered.
func (r *Registry) RegisterMany(rules ...schemas.Rule) error {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the rule with the given id.
func (r *Registry) Get(id string) (schemas.Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

// Has reports whether a rule with the given id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rules[id]
	return ok
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// All returns every registered rule in registration order. The slice is the
// caller's to keep; the registry retains no reference to it.
func (r *Registry) All() []schemas.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schemas.Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// ByCategory returns the registered rules in the given category, in
// registration order.
func (r *Registry) ByCategory(c schemas.Category) []schemas.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schemas.Rule
	for _, id := range r.order {
		if r.rules[id].Meta().Category == c {
			out = append(out, r.rules[id])
		}
	}
	return out
}

// ByFramework returns every rule with no framework restriction plus every
// rule whose restriction list contains the given framework.
func (r *Registry) ByFramework(framework string) []schemas.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schemas.Rule
	for _, id := range r.order {
		if r.rules[id].Meta().AppliesTo([]string{framework}) {
			out = append(out, r.rules[id])
		}
	}
	return out
}

// AllWithStatus returns every rule's metadata annotated with whether its id
// appears in the disabled list.
func (r *Registry) AllWithStatus(disabledIDs []string) []RuleStatus {
	disabled := make(map[string]struct{}, len(disabledIDs))
	for _, id := range disabledIDs {
		disabled[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RuleStatus, 0, len(r.order))
	for _, id := range r.order {
		_, off := disabled[id]
		out = append(out, RuleStatus{Meta: r.rules[id].Meta(), Disabled: off})
	}
	return out
}

// Unregister removes a rule by id. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return
	}
	delete(r.rules, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("rule unregistered", zap.String("rule", id))
}
