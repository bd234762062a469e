package markup

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/markupsync/internal/data/repos"
	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

// MarkupRow is one line of a raw markup file.
type MarkupRow struct {
	Line           int
	Model          string
	Segment        string
	PredictedValue string
	Key            string
}

type ResolvedMarkup struct {
	CustomerProfileID uuid.UUID
	Model             string
	Segment           string
	ExternalKey       string
}

// MarkupError is a row that could not be matched to a profile. ID carries the key as it was
// looked up, platform prefix included.
type MarkupError struct {
	ID        string
	AccountID uuid.UUID
	EshopID   int64
	Model     string
	Segment   string
}

// Scope pins the lookups of one run to an account and its eshop.
type Scope struct {
	AccountID uuid.UUID
	EshopID   int64
	Prefix    string
}

// IdentityResolver maps external keys of one source to customer profile ids within a Scope.
type IdentityResolver struct {
	log      *logger.Logger
	profiles repos.CustomerProfileRepo
	kind     SourceKind
	scope    Scope
}

func NewIdentityResolver(log *logger.Logger, profiles repos.CustomerProfileRepo, kind SourceKind, scope Scope) *IdentityResolver {
	return &IdentityResolver{
		log:      log.With("component", "IdentityResolver", "source", kind.Name),
		profiles: profiles,
		kind:     kind,
		scope:    scope,
	}
}

// BatchSize is the number of raw rows the caller should hand to ResolveBatch at once.
func (r *IdentityResolver) BatchSize() int { return r.kind.BatchSize }

// ResolveBatch resolves one batch with a single lookup query. A failed lookup turns every
// row of the batch into an error row.
func (r *IdentityResolver) ResolveBatch(ctx context.Context, rows []MarkupRow) ([]ResolvedMarkup, []MarkupError) {
	if len(rows) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Key == "" {
			continue
		}
		k := r.scope.Prefix + row.Key
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	refs, err := r.lookup(ctx, keys)
	if err != nil {
		r.log.Error("customer profile lookup failed; batch skipped", "rows", len(rows), "first_line", rows[0].Line, "error", err)
		return nil, r.errorRows(rows)
	}

	matcher := NewMatcher(refs)
	resolved := make([]ResolvedMarkup, 0, len(rows))
	var failed []MarkupError
	for _, row := range rows {
		if row.Key == "" {
			failed = append(failed, r.errorRow(row))
			continue
		}
		id, ok := matcher.Resolve(r.scope.Prefix + row.Key)
		if !ok {
			failed = append(failed, r.errorRow(row))
			continue
		}
		resolved = append(resolved, ResolvedMarkup{
			CustomerProfileID: id,
			Model:             row.Model,
			Segment:           row.Segment,
			ExternalKey:       row.Key,
		})
	}
	return resolved, failed
}

func (r *IdentityResolver) lookup(ctx context.Context, keys []string) ([]types.ProfileRef, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	switch r.kind.Lookup {
	case LookupCRM:
		return r.profiles.LookupCRM(dbc, r.scope.EshopID, keys)
	case LookupBehaviour:
		return r.profiles.LookupBehaviour(dbc, r.scope.AccountID, keys)
	default:
		return nil, fmt.Errorf("unknown lookup %q", r.kind.Lookup)
	}
}

func (r *IdentityResolver) errorRows(rows []MarkupRow) []MarkupError {
	out := make([]MarkupError, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.errorRow(row))
	}
	return out
}

func (r *IdentityResolver) errorRow(row MarkupRow) MarkupError {
	return MarkupError{
		ID:        r.scope.Prefix + strings.TrimSpace(row.Key),
		AccountID: r.scope.AccountID,
		EshopID:   r.scope.EshopID,
		Model:     row.Model,
		Segment:   row.Segment,
	}
}
