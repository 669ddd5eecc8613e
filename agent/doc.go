// Package agent provides the in-process agent runtime driven by the devkit
// benchmarks.
//
// An agent is built from a static Config: a name and an ordered list of
// skills, each mapping handler names to Handler implementations. The
// Wrapper owns the agent's inbox and runs a processing loop on its own
// goroutine.
//
// # Basic Usage
//
//	cfg := agent.Config{
//	    Name: "agent0",
//	    Skills: []agent.Skill{{
//	        Config:   agent.SkillConfig{Name: "echo"},
//	        Handlers: map[string]agent.Handler{"echo": echoHandler},
//	    }},
//	}
//
//	w, err := agent.New(cfg)
//	if err != nil {
//	    return err
//	}
//	_ = w.SetLoopTimeout(10 * time.Millisecond)
//	_ = w.PutInbox(ctx, w.DummyEnvelope())
//
//	_ = w.StartLoop(ctx)
//	<-w.Running()
//	...
//	err = w.StopLoop(ctx)
//
// # Loop Semantics
//
// Each iteration takes up to MaxReactions envelopes from the inbox in FIFO
// order and hands every envelope to every handler, skills in declaration
// order and handlers sorted by name. Handler errors are logged and counted;
// they never stop the loop. After an iteration the loop waits for the loop
// timeout before the next one.
//
// # Inboxes
//
// MemoryInbox is the default. RedisStore hands out Redis list backed
// inboxes for runs where the queue should live outside the process.
package agent
