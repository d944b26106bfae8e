package postgres

import (
	"testing"

	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestSchemaFilter(t *testing.T) {
	t.Parallel()

	clause, args := schemaFilter(nil, "n.nspname", 1)
	assert.Equal(t, "n.nspname NOT IN ('pg_catalog', 'information_schema')", clause)
	assert.Nil(t, args)

	clause, args = schemaFilter([]string{"public", "sales"}, "n.nspname", 2)
	assert.Equal(t, "n.nspname IN ($2, $3)", clause)
	assert.Equal(t, []any{"public", "sales"}, args)
}

func TestRelationKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		relkind string
		want    domain.TableKind
	}{
		{"r", domain.TableKindBase},
		{"p", domain.TableKindBase},
		{"v", domain.TableKindView},
		{"m", domain.TableKindView},
		{"f", domain.TableKindOther},
		{"", domain.TableKindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relationKind(tt.relkind), "relkind %q", tt.relkind)
	}
}
