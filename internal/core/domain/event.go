package domain

import "fmt"

// EventClass is the coarse kind of an audit event raised by the host.
type EventClass int

const (
	EventClassGeneral EventClass = iota
	EventClassConnection
	EventClassParse
	EventClassAuthorization
	EventClassTableAccess
	EventClassGlobalVariable
	EventClassServerStartup
	EventClassServerShutdown
	EventClassCommand
	EventClassQuery
	EventClassStoredProgram
	EventClassAuthentication
	EventClassMessage
)

var eventClassNames = map[EventClass]string{
	EventClassGeneral:        "general",
	EventClassConnection:     "connection",
	EventClassParse:          "parse",
	EventClassAuthorization:  "authorization",
	EventClassTableAccess:    "table_access",
	EventClassGlobalVariable: "global_variable",
	EventClassServerStartup:  "server_startup",
	EventClassServerShutdown: "server_shutdown",
	EventClassCommand:        "command",
	EventClassQuery:          "query",
	EventClassStoredProgram:  "stored_program",
	EventClassAuthentication: "authentication",
	EventClassMessage:        "message",
}

func (c EventClass) String() string {
	if n, ok := eventClassNames[c]; ok {
		return n
	}
	return fmt.Sprintf("event_class(%d)", int(c))
}

// QuerySubclass is the phase of a query event.
type QuerySubclass int

const (
	QueryStart QuerySubclass = iota
	QueryNestedStart
	QueryStatusEnd
	QueryNestedStatusEnd
)

func (s QuerySubclass) String() string {
	switch s {
	case QueryStart:
		return "start"
	case QueryNestedStart:
		return "nested_start"
	case QueryStatusEnd:
		return "status_end"
	case QueryNestedStatusEnd:
		return "nested_status_end"
	default:
		return fmt.Sprintf("query_subclass(%d)", int(s))
	}
}

// Event is an audit notification from the host. The concrete type tells the
// classifier which phase it is looking at:
//
//	UnknownEvent     any non-query event class
//	QueryStartEvent  a query about to start executing
//	QueryPhaseEvent  any other phase of a query
type Event interface {
	Class() EventClass
	isEvent()
}

type UnknownEvent struct {
	EventClass EventClass
}

func (e UnknownEvent) Class() EventClass { return e.EventClass }
func (UnknownEvent) isEvent()            {}

type QueryStartEvent struct {
	Command Command
}

func (QueryStartEvent) Class() EventClass { return EventClassQuery }
func (QueryStartEvent) isEvent()          {}

type QueryPhaseEvent struct {
	Subclass QuerySubclass
	Command  Command
}

func (QueryPhaseEvent) Class() EventClass { return EventClassQuery }
func (QueryPhaseEvent) isEvent()          {}

// NewQueryEvent builds the query event variant matching subclass.
func NewQueryEvent(subclass QuerySubclass, cmd Command) Event {
	if subclass == QueryStart {
		return QueryStartEvent{Command: cmd}
	}
	return QueryPhaseEvent{Subclass: subclass, Command: cmd}
}
