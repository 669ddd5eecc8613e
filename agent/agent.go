package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Handler reacts to envelopes taken from an agent inbox.
// Handlers are invoked from the agent's loop goroutine, one envelope at a time.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Handle calls f(ctx, msg).
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// SkillConfig describes a skill independently of its handlers.
type SkillConfig struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Skill pairs a skill configuration with its handlers, keyed by handler name.
type Skill struct {
	Config   SkillConfig
	Handlers map[string]Handler
}

// Config is the static configuration an agent is built from.
// It is constructed once and must not be mutated after New.
type Config struct {
	Name   string
	Skills []Skill
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("agent name is required")
	}
	seen := make(map[string]struct{}, len(c.Skills))
	for i, s := range c.Skills {
		if s.Config.Name == "" {
			return fmt.Errorf("skill %d: name is required", i)
		}
		if _, dup := seen[s.Config.Name]; dup {
			return fmt.Errorf("skill %q: duplicate name", s.Config.Name)
		}
		seen[s.Config.Name] = struct{}{}
		if len(s.Handlers) == 0 {
			return fmt.Errorf("skill %q: at least one handler is required", s.Config.Name)
		}
		for name, h := range s.Handlers {
			if h == nil {
				return fmt.Errorf("skill %q: handler %q is nil", s.Config.Name, name)
			}
		}
	}
	return nil
}

type boundHandler struct {
	skill   string
	name    string
	handler Handler
}

// dispatchOrder flattens skills into the order envelopes are dispatched in:
// skills in declaration order, handlers sorted by name within a skill.
func (c Config) dispatchOrder() []boundHandler {
	var out []boundHandler
	for _, s := range c.Skills {
		names := make([]string, 0, len(s.Handlers))
		for name := range s.Handlers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, boundHandler{skill: s.Config.Name, name: name, handler: s.Handlers[name]})
		}
	}
	return out
}
