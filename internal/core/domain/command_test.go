package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Command
		wantErr bool
	}{
		{"select", CommandSelect, false},
		{"SELECT", CommandSelect, false},
		{"  insert_select ", CommandInsertSelect, false},
		{"insert-select", CommandInsertSelect, false},
		{"delete multi", CommandDeleteMulti, false},
		{"BINLOG_BASE64_EVENT", CommandBinlogBase64Event, false},
		{"create_srs", CommandCreateSRS, false},
		{"other", CommandOther, false},
		{"merge", CommandOther, true},
		{"", CommandOther, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCommand(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_NamesAreUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]Command)
	for _, c := range AllCommands() {
		name := c.String()
		require.NotEmpty(t, name, "command %d has no name", int(c))
		if prev, ok := seen[name]; ok {
			t.Fatalf("commands %d and %d share name %q", int(prev), int(c), name)
		}
		seen[name] = c

		parsed, err := ParseCommand(name)
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestCommand_StringOutOfRange(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "command(-1)", Command(-1).String())
	assert.Equal(t, "command(999)", Command(999).String())
}

func TestCommand_JSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal([]Command{CommandSelect, CommandDeleteMulti})
	require.NoError(t, err)
	assert.JSONEq(t, `["select","delete_multi"]`, string(data))

	var back []Command
	require.NoError(t, json.Unmarshal([]byte(`["truncate","IMPORT"]`), &back))
	assert.Equal(t, []Command{CommandTruncate, CommandImport}, back)

	assert.Error(t, json.Unmarshal([]byte(`["nope"]`), &back))
}

func TestDocumentedCommands_SupersetOfMatched(t *testing.T) {
	t.Parallel()
	documented := DocumentedCommands()
	assert.Len(t, documented, 14)
	for _, c := range MatchedCommands() {
		assert.Contains(t, documented, c)
	}
}

func TestCommand_IsWrite(t *testing.T) {
	t.Parallel()
	assert.False(t, CommandSelect.IsWrite())
	assert.False(t, CommandExplain.IsWrite())
	assert.False(t, CommandShow.IsWrite())
	assert.True(t, CommandInsert.IsWrite())
	assert.True(t, CommandTruncate.IsWrite())
	assert.True(t, CommandOther.IsWrite())
}
