package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/document"
	"github.com/poiesic/corpora/storage"
	"golang.org/x/sync/errgroup"
)

// StructuredSearcher finds structured rows matching a query.
type StructuredSearcher interface {
	Search(ctx context.Context, query string) ([]core.StructuredHit, error)
}

// StructuredRetriever matches a query against the structured tables.
type StructuredRetriever struct {
	store         storage.Store
	perTableLimit int
	globalLimit   int
	logger        *slog.Logger
}

var _ StructuredSearcher = (*StructuredRetriever)(nil)

// NewStructuredRetriever creates a structured retriever.
// Honors WithLogger, WithPerTableLimit and WithGlobalLimit.
func NewStructuredRetriever(store storage.Store, opts ...Option) (*StructuredRetriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &StructuredRetriever{
		store:         store,
		perTableLimit: o.perTableLimit,
		globalLimit:   o.globalLimit,
		logger:        o.logger.With("component", "structured-retriever"),
	}, nil
}

// Search returns up to the global limit of hits. Each table contributes at
// most the per-table limit, and tables are concatenated in
// core.StructuredTables order before truncation. No match yields an empty
// slice.
func (r *StructuredRetriever) Search(ctx context.Context, query string) ([]core.StructuredHit, error) {
	p, err := newPattern(query)
	if err != nil {
		return nil, err
	}

	perTable := make([][]core.StructuredHit, len(core.StructuredTables))
	g, ctx := errgroup.WithContext(ctx)
	for i, table := range core.StructuredTables {
		g.Go(func() error {
			hits, err := r.searchTable(ctx, table, p)
			if err != nil {
				return fmt.Errorf("failed to search %s: %w", table, err)
			}
			perTable[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Error("structured search failed", "err", err)
		return nil, err
	}

	hits := make([]core.StructuredHit, 0, r.globalLimit)
	for _, th := range perTable {
		hits = append(hits, th...)
	}
	if len(hits) > r.globalLimit {
		hits = hits[:r.globalLimit]
	}
	r.logger.Debug("structured search complete", "query", query, "hits", len(hits))
	return hits, nil
}

func (r *StructuredRetriever) searchTable(ctx context.Context, table core.Table, p pattern) ([]core.StructuredHit, error) {
	var hits []core.StructuredHit
	err := r.store.View(ctx, func(tx storage.ReadTx) error {
		return tx.ScanTable(table, func(payload core.Payload) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hit, ok := matchPayload(payload, p)
			if !ok {
				return nil
			}
			hits = append(hits, hit)
			if len(hits) >= r.perTableLimit {
				return storage.ErrStopScan
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// matchPayload checks the searchable fields of a row and renders the hit.
func matchPayload(payload core.Payload, p pattern) (core.StructuredHit, bool) {
	switch row := payload.(type) {
	case *core.Plan:
		if !p.matches(row.Name, textList(row.Entitlements)) {
			return core.StructuredHit{}, false
		}
		return planHit(row), true
	case *core.Product:
		if !p.matches(row.Name, row.ShortDesc, row.SKU) {
			return core.StructuredHit{}, false
		}
		return productHit(row), true
	case *core.ErrorCode:
		if !p.matches(row.Code, row.Message, row.Cause, row.Fix) {
			return core.StructuredHit{}, false
		}
		return errorCodeHit(row), true
	case *core.APIEndpoint:
		if !p.matches(row.Path, row.Summary, row.Description) {
			return core.StructuredHit{}, false
		}
		return endpointHit(row), true
	case *core.Policy:
		if !p.matches(row.Name, row.Version, text(row.Payload)) {
			return core.StructuredHit{}, false
		}
		return policyHit(row), true
	default:
		return core.StructuredHit{}, false
	}
}

func planHit(plan *core.Plan) core.StructuredHit {
	return core.StructuredHit{
		Source:     string(core.TablePlans),
		Identifier: plan.Name,
		Content: fmt.Sprintf("Plan %s: users %s, API %s, dashboards %s",
			plan.Name, limit(plan.UsersLimit), limit(plan.APICallsLimit), limit(plan.DashboardsLimit)),
		Metadata: map[string]any{
			"monthly_price": optional(plan.MonthlyPrice),
			"annual_price":  optional(plan.AnnualPrice),
			"entitlements":  plan.Entitlements,
		},
	}
}

func productHit(product *core.Product) core.StructuredHit {
	return core.StructuredHit{
		Source:     string(core.TableProducts),
		Identifier: product.SKU,
		Content:    product.Name + ": " + product.ShortDesc,
		Metadata: map[string]any{
			"category":      product.Category,
			"compatibility": product.Compatibility,
			"status":        product.Status,
		},
	}
}

func errorCodeHit(code *core.ErrorCode) core.StructuredHit {
	return core.StructuredHit{
		Source:     string(core.TableErrorCodes),
		Identifier: code.Code,
		Content:    code.Code + ": " + code.Message,
		Metadata: map[string]any{
			"cause":    code.Cause,
			"fix":      code.Fix,
			"severity": code.Severity,
			"service":  code.Service,
		},
	}
}

func endpointHit(endpoint *core.APIEndpoint) core.StructuredHit {
	content := endpoint.Description
	if content == "" {
		content = endpoint.Summary
	}
	metadata := make(map[string]any, len(endpoint.Extra)+1)
	metadata["summary"] = endpoint.Summary
	for k, v := range endpoint.Extra {
		metadata[k] = v
	}
	return core.StructuredHit{
		Source:     string(core.TableAPIEndpoints),
		Identifier: endpoint.Method + " " + endpoint.Path,
		Content:    content,
		Metadata:   metadata,
	}
}

func policyHit(policy *core.Policy) core.StructuredHit {
	return core.StructuredHit{
		Source:     string(core.TablePolicies),
		Identifier: policy.Name,
		Content:    fmt.Sprintf("Policy %s v%s", policy.Name, policy.Version),
		Metadata: map[string]any{
			"effective_date": document.FormatDate(policy.EffectiveDate),
			"payload":        policy.Payload,
		},
	}
}

// limit renders an optional plan limit.
func limit(v *int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.Itoa(*v)
}

// optional unwraps a nullable column, yielding nil when unset.
func optional[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
