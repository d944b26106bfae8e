package service

import (
	"context"
	"testing"

	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusService_Status(t *testing.T) {
	t.Parallel()
	hook := domain.NewHook(testLogger(), domain.WithCommands(domain.CommandSelect, domain.CommandDelete))
	svc := NewStatusService(hook, testLogger())

	hook.Notify(domain.QueryStartEvent{Command: domain.CommandSelect}, &domain.Statement{
		Lex: &domain.Lex{Tables: []domain.TableRef{{Kind: domain.TableKindBase, Name: domain.SpecialTable}}},
	})

	st := svc.Status()
	assert.True(t, st.Enabled)
	assert.Equal(t, []domain.Command{domain.CommandSelect, domain.CommandDelete}, st.Commands)
	assert.Equal(t, uint64(1), st.Counters.TotalQueries)
	assert.Equal(t, uint64(1), st.Counters.TotalSpecialQueries)

	require.Len(t, st.Variables, 3)
	assert.Equal(t, domain.StatusTotalQueries, st.Variables[0].Name)
	assert.Equal(t, uint64(1), st.Variables[0].Value)
}

func TestStatusService_SetEnabled(t *testing.T) {
	t.Parallel()
	hook := domain.NewHook(testLogger())
	svc := NewStatusService(hook, testLogger())
	ctx := context.Background()

	assert.True(t, svc.Enabled())
	assert.True(t, svc.SetEnabled(ctx, false))
	assert.False(t, svc.Enabled())
	assert.False(t, hook.Enabled())
	assert.False(t, svc.SetEnabled(ctx, false), "no change reported for the same value")
	assert.True(t, svc.SetEnabled(ctx, true))
	assert.True(t, hook.Enabled())
}
