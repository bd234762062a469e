package markup

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type fakeProfileRepo struct {
	refs    []types.ProfileRef
	err     error
	queries [][]string
	scopes  []string
}

func (f *fakeProfileRepo) LookupCRM(_ dbctx.Context, eshopID int64, keys []string) ([]types.ProfileRef, error) {
	f.queries = append(f.queries, append([]string(nil), keys...))
	f.scopes = append(f.scopes, "crm")
	return f.hits(keys), f.err
}

func (f *fakeProfileRepo) LookupBehaviour(_ dbctx.Context, accountID uuid.UUID, keys []string) ([]types.ProfileRef, error) {
	f.queries = append(f.queries, append([]string(nil), keys...))
	f.scopes = append(f.scopes, "behaviour")
	return f.hits(keys), f.err
}

func (f *fakeProfileRepo) hits(keys []string) []types.ProfileRef {
	want := map[string]bool{}
	for _, k := range keys {
		want[k] = true
	}
	var out []types.ProfileRef
	for _, r := range f.refs {
		if want[r.ExternalKey] {
			out = append(out, r)
		}
	}
	return out
}

func crmKind(t *testing.T) SourceKind {
	t.Helper()
	s, err := LoadSources("")
	require.NoError(t, err)
	k, err := s.Kind("crm")
	require.NoError(t, err)
	return k
}

func TestResolveBatchPrefixesLookupButKeepsRawKey(t *testing.T) {
	const prefix = "customer-gid://shopify/Customer/"
	p1, p2 := uuid.New(), uuid.New()
	repo := &fakeProfileRepo{refs: []types.ProfileRef{
		{CustomerProfileID: p1, ExternalKey: prefix + "A"},
		{CustomerProfileID: p2, ExternalKey: prefix + "A"},
	}}
	accountID := uuid.New()
	r := NewIdentityResolver(logger.Nop(), repo, crmKind(t), Scope{AccountID: accountID, EshopID: 7, Prefix: prefix})

	resolved, failed := r.ResolveBatch(context.Background(), []MarkupRow{
		{Line: 2, Model: "churn", Segment: "1", Key: "A"},
		{Line: 3, Model: "churn", Segment: "1", Key: "A"},
		{Line: 4, Model: "ltv", Segment: "2", Key: "A"},
		{Line: 5, Model: "ltv", Segment: "2", Key: "Z"},
		{Line: 6, Model: "ltv", Segment: "2", Key: ""},
	})

	require.Equal(t, [][]string{{prefix + "A", prefix + "Z"}}, repo.queries)
	require.Equal(t, []string{"crm"}, repo.scopes)
	require.Len(t, resolved, 3)
	require.Equal(t, []uuid.UUID{p1, p2, p2}, []uuid.UUID{resolved[0].CustomerProfileID, resolved[1].CustomerProfileID, resolved[2].CustomerProfileID})
	require.Equal(t, "A", resolved[0].ExternalKey)

	require.Len(t, failed, 2)
	require.Equal(t, MarkupError{ID: prefix + "Z", AccountID: accountID, EshopID: 7, Model: "ltv", Segment: "2"}, failed[0])
	require.Equal(t, prefix, failed[1].ID)
}

func TestResolveBatchLookupErrorFailsWholeBatch(t *testing.T) {
	repo := &fakeProfileRepo{
		refs: []types.ProfileRef{{CustomerProfileID: uuid.New(), ExternalKey: "A"}},
		err:  errors.New("timeout"),
	}
	r := NewIdentityResolver(logger.Nop(), repo, crmKind(t), Scope{AccountID: uuid.New(), EshopID: 1})

	resolved, failed := r.ResolveBatch(context.Background(), []MarkupRow{
		{Line: 2, Model: "churn", Segment: "1", Key: "A"},
		{Line: 3, Model: "churn", Segment: "1", Key: "B"},
	})
	require.Empty(t, resolved)
	require.Len(t, failed, 2)
}

func TestResolveBatchBehaviourScope(t *testing.T) {
	s, err := LoadSources("")
	require.NoError(t, err)
	beh, err := s.Kind("beh")
	require.NoError(t, err)

	id := uuid.New()
	repo := &fakeProfileRepo{refs: []types.ProfileRef{{CustomerProfileID: id, ExternalKey: "g1"}}}
	r := NewIdentityResolver(logger.Nop(), repo, beh, Scope{AccountID: uuid.New()})
	require.Equal(t, 500, r.BatchSize())

	resolved, failed := r.ResolveBatch(context.Background(), []MarkupRow{{Line: 2, Model: "m", Segment: "1", Key: "g1"}})
	require.Empty(t, failed)
	require.Equal(t, id, resolved[0].CustomerProfileID)
	require.Equal(t, []string{"behaviour"}, repo.scopes)
}
