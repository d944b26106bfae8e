package domain

import "log/slog"

// Decision is the classifier's verdict on an event.
type Decision bool

const (
	Reject Decision = false
	Accept Decision = true
)

func (d Decision) String() string {
	if d {
		return "accept"
	}
	return "reject"
}

// Classifier decides whether an audit event is worth scanning. It only reads
// its allow-list after construction and is safe for concurrent use.
type Classifier struct {
	allowed [commandCount]bool
	logger  *slog.Logger
}

// NewClassifier returns a classifier accepting query-start events for the
// given commands. With no commands it uses DocumentedCommands.
func NewClassifier(logger *slog.Logger, commands ...Command) *Classifier {
	if len(commands) == 0 {
		commands = DocumentedCommands()
	}
	c := &Classifier{logger: logger}
	for _, cmd := range commands {
		if cmd >= 0 && cmd < commandCount {
			c.allowed[cmd] = true
		}
	}
	return c
}

// Allows reports whether cmd is on the allow-list.
func (c *Classifier) Allows(cmd Command) bool {
	return cmd >= 0 && cmd < commandCount && c.allowed[cmd]
}

// Commands returns the allow-list in declaration order.
func (c *Classifier) Commands() []Command {
	var out []Command
	for i, ok := range c.allowed {
		if ok {
			out = append(out, Command(i))
		}
	}
	return out
}

// Classify filters an event. The hook is only registered for query-start
// events, so any other class or phase is a host contract violation: it is
// logged as a warning and rejected.
func (c *Classifier) Classify(ev Event) Decision {
	switch e := ev.(type) {
	case QueryStartEvent:
		return Decision(c.Allows(e.Command))
	case QueryPhaseEvent:
		c.logger.Warn("received query event of wrong subclass, skipping",
			slog.String("event.class", EventClassQuery.String()),
			slog.String("event.subclass", e.Subclass.String()),
		)
		return Reject
	case nil:
		c.logger.Warn("received nil event, skipping")
		return Reject
	default:
		c.logger.Warn("received event of wrong type, skipping",
			slog.String("event.class", ev.Class().String()),
		)
		return Reject
	}
}
