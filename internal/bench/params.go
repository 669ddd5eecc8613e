package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/aixgo-dev/devkit/agent"
)

// Params are the inputs of the inbox-flood case.
type Params struct {
	AgentsNum        int           `json:"agents_num"`
	SkillsNum        int           `json:"skills_num"`
	InboxNum         int           `json:"inbox_num"`
	AgentLoopTimeout time.Duration `json:"agent_loop_timeout"`
}

// DefaultParams returns the parameters the case runs with when none are given.
func DefaultParams() Params {
	return Params{
		AgentsNum:        2,
		SkillsNum:        1,
		InboxNum:         1000,
		AgentLoopTimeout: 10 * time.Millisecond,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	var errs []error
	if p.AgentsNum <= 0 {
		errs = append(errs, fmt.Errorf("agents_num must be positive, got %d", p.AgentsNum))
	}
	if p.SkillsNum <= 0 {
		errs = append(errs, fmt.Errorf("skills_num must be positive, got %d", p.SkillsNum))
	}
	if p.InboxNum < 0 {
		errs = append(errs, fmt.Errorf("inbox_num must not be negative, got %d", p.InboxNum))
	}
	if p.AgentLoopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent_loop_timeout must be positive, got %s", p.AgentLoopTimeout))
	}
	return errors.Join(errs...)
}

// MakeAgencyConfig builds the configuration of one benchmark agent:
// skills sc0..scN-1, each with a single DummyHandler.
func MakeAgencyConfig(name string, skillsNum int) agent.Config {
	skills := make([]agent.Skill, 0, skillsNum)
	for i := 0; i < skillsNum; i++ {
		skills = append(skills, agent.Skill{
			Config:   agent.SkillConfig{Name: fmt.Sprintf("sc%d", i)},
			Handlers: map[string]agent.Handler{"dummy_handler": &DummyHandler{}},
		})
	}
	return agent.Config{Name: name, Skills: skills}
}
