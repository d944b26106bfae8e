package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// relations is an immutable snapshot of the database's named relations.
type relations struct {
	qualified   map[string]domain.TableKind // "schema.name"
	unqualified map[string]domain.TableKind
}

// Catalog resolves relation names to table kinds from pg_class. It
// implements port.RelationCatalog and is safe for concurrent use.
type Catalog struct {
	pool    *pgxpool.Pool
	schemas []string
	logger  *slog.Logger
	rels    atomic.Pointer[relations]
}

func NewCatalog(pool *pgxpool.Pool, schemas []string, logger *slog.Logger) *Catalog {
	return &Catalog{pool: pool, schemas: schemas, logger: logger}
}

// Kind reports the kind of the named relation. An empty schema resolves
// against public first. ok is false until the first successful Refresh or
// when the relation is unknown.
func (c *Catalog) Kind(schema, name string) (domain.TableKind, bool) {
	rels := c.rels.Load()
	if rels == nil {
		return domain.TableKindOther, false
	}
	var (
		kind domain.TableKind
		ok   bool
	)
	if schema == "" {
		kind, ok = rels.unqualified[name]
	} else {
		kind, ok = rels.qualified[schema+"."+name]
	}
	return kind, ok
}

// Len returns the number of relations in the current snapshot.
func (c *Catalog) Len() int {
	rels := c.rels.Load()
	if rels == nil {
		return 0
	}
	return len(rels.qualified)
}

// Refresh reloads the relation snapshot.
func (c *Catalog) Refresh(ctx context.Context) error {
	filter, args := schemaFilter(c.schemas, "n.nspname", 1)
	rows, err := c.pool.Query(ctx, fmt.Sprintf(queryRelations, filter), args...)
	if err != nil {
		return fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	next := &relations{
		qualified:   make(map[string]domain.TableKind),
		unqualified: make(map[string]domain.TableKind),
	}
	for rows.Next() {
		var schema, name, relkind string
		if err := rows.Scan(&schema, &name, &relkind); err != nil {
			return fmt.Errorf("scanning relation: %w", err)
		}
		kind := relationKind(relkind)
		next.qualified[schema+"."+name] = kind
		if _, seen := next.unqualified[name]; !seen {
			next.unqualified[name] = kind
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating relations: %w", err)
	}

	c.rels.Store(next)
	c.logger.Debug("relation catalog refreshed", slog.Int("relations", len(next.qualified)))
	return nil
}

// Run refreshes the catalog every interval until ctx is done. Refresh
// failures are logged and the previous snapshot stays in place.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("relation catalog refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
