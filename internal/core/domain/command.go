package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command is the kind of SQL operation a statement performs.
type Command int

const (
	CommandOther Command = iota
	CommandSelect
	CommandInsert
	CommandUpdate
	CommandInsertSelect
	CommandDelete
	CommandTruncate
	CommandDeleteMulti
	CommandUpdateMulti
	CommandPrepare
	CommandExecute
	CommandDeallocate
	CommandBinlogBase64Event
	CommandImport
	CommandCreateSRS
	CommandDropSRS
	CommandLoad
	CommandCopyOut
	CommandCreateTable
	CommandAlterTable
	CommandDropTable
	CommandCreateIndex
	CommandDropIndex
	CommandCreateView
	CommandDropView
	CommandCreateDB
	CommandDropDB
	CommandCreateFunction
	CommandCreateProcedure
	CommandCall
	CommandLock
	CommandGrant
	CommandRevoke
	CommandBegin
	CommandCommit
	CommandRollback
	CommandSet
	CommandShow
	CommandExplain
	CommandAnalyze
	CommandVacuum

	commandCount
)

var commandNames = [commandCount]string{
	CommandOther:             "other",
	CommandSelect:            "select",
	CommandInsert:            "insert",
	CommandUpdate:            "update",
	CommandInsertSelect:      "insert_select",
	CommandDelete:            "delete",
	CommandTruncate:          "truncate",
	CommandDeleteMulti:       "delete_multi",
	CommandUpdateMulti:       "update_multi",
	CommandPrepare:           "prepare",
	CommandExecute:           "execute",
	CommandDeallocate:        "deallocate",
	CommandBinlogBase64Event: "binlog_base64_event",
	CommandImport:            "import",
	CommandCreateSRS:         "create_srs",
	CommandDropSRS:           "drop_srs",
	CommandLoad:              "load",
	CommandCopyOut:           "copy_out",
	CommandCreateTable:       "create_table",
	CommandAlterTable:        "alter_table",
	CommandDropTable:         "drop_table",
	CommandCreateIndex:       "create_index",
	CommandDropIndex:         "drop_index",
	CommandCreateView:        "create_view",
	CommandDropView:          "drop_view",
	CommandCreateDB:          "create_db",
	CommandDropDB:            "drop_db",
	CommandCreateFunction:    "create_function",
	CommandCreateProcedure:   "create_procedure",
	CommandCall:              "call",
	CommandLock:              "lock",
	CommandGrant:             "grant",
	CommandRevoke:            "revoke",
	CommandBegin:             "begin",
	CommandCommit:            "commit",
	CommandRollback:          "rollback",
	CommandSet:               "set",
	CommandShow:              "show",
	CommandExplain:           "explain",
	CommandAnalyze:           "analyze",
	CommandVacuum:            "vacuum",
}

func (c Command) String() string {
	if c < 0 || c >= commandCount {
		return fmt.Sprintf("command(%d)", int(c))
	}
	return commandNames[c]
}

// MarshalText lets commands appear by name in JSON and YAML.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Command) UnmarshalText(text []byte) error {
	parsed, err := ParseCommand(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCommand resolves a command name. Matching ignores case, surrounding
// whitespace, and accepts '-' or ' ' in place of '_'.
func ParseCommand(name string) (Command, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for c, n := range commandNames {
		if n == normalized {
			return Command(c), nil
		}
	}
	return CommandOther, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// AllCommands returns every known command kind in declaration order.
func AllCommands() []Command {
	all := make([]Command, commandCount)
	for i := range all {
		all[i] = Command(i)
	}
	return all
}

// DocumentedCommands is the full set of data-touching commands the hook is
// meant to audit. It is the default allow-list.
func DocumentedCommands() []Command {
	return []Command{
		CommandSelect,
		CommandInsert,
		CommandUpdate,
		CommandInsertSelect,
		CommandDelete,
		CommandTruncate,
		CommandDeleteMulti,
		CommandUpdateMulti,
		CommandPrepare,
		CommandExecute,
		CommandBinlogBase64Event,
		CommandImport,
		CommandCreateSRS,
		CommandDropSRS,
	}
}

// MatchedCommands is the narrower allow-list without prepared statements,
// binlog replay and spatial reference systems.
func MatchedCommands() []Command {
	return []Command{
		CommandSelect,
		CommandInsert,
		CommandUpdate,
		CommandInsertSelect,
		CommandDelete,
		CommandTruncate,
		CommandDeleteMulti,
		CommandUpdateMulti,
		CommandImport,
	}
}

// IsWrite reports whether the command can modify data or schema.
func (c Command) IsWrite() bool {
	switch c {
	case CommandSelect, CommandShow, CommandExplain, CommandCopyOut,
		CommandBegin, CommandCommit, CommandRollback:
		return false
	default:
		return true
	}
}
