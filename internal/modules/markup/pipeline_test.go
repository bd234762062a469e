package markup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/markupsync/internal/data/repos"
	"github.com/yungbote/markupsync/internal/data/repos/testutil"
	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/authapi"
	"github.com/yungbote/markupsync/internal/platform/lock"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

const shopifyPrefix = "customer-gid://shopify/Customer/"

type harness struct {
	pipeline *Pipeline
	db       *gorm.DB
	store    *memStore
	locker   *lock.Local
	repos    repos.Repos
}

func newHarness(t *testing.T, eshops EshopLookup) *harness {
	t.Helper()
	db := testutil.DB(t)
	store := newMemStore()
	locker := lock.NewLocal()
	r := repos.New(db, testutil.Logger(t))
	sources, err := LoadSources("")
	require.NoError(t, err)
	p, err := NewPipeline(Deps{
		Log:     logger.Nop(),
		Store:   store,
		Eshops:  eshops,
		Repos:   r,
		Locker:  locker,
		Metrics: observability.NewMetrics(),
		Sources: sources,
	}, Config{})
	require.NoError(t, err)
	return &harness{pipeline: p, db: db, store: store, locker: locker, repos: r}
}

const markupCSV = "model,segment,predicted_value,eshop_customer_id\n" +
	"churn,1,0.5,100\n" +
	"churn,1,,100\n" +
	"churn,2,0.9,200\n" +
	"ltv,1,120,100\n" +
	"churn,2,,999\n"

const rulesCSV = "model,segment,predicted_value,description\n" +
	"churn,1,0.1,low\n" +
	"churn,2,,high\n" +
	"ltv,1,50,ltv low\n" +
	"ltv,9,1,orphan\n"

func seedVersion(h *harness, accountID uuid.UUID, version string) string {
	folder := ModelFolder(DefaultRootFolder, accountID, "crm")
	h.store.putString(folder+"/"+version+"/", "")
	h.store.putString(folder+"/"+version+"/"+MarkupFile, markupCSV)
	h.store.putString(folder+"/"+version+"/"+RulesFile, rulesCSV)
	return folder
}

func seedProfiles(t *testing.T, h *harness) {
	ctx := context.Background()
	testutil.SeedCRMProfile(t, ctx, h.db, 7, shopifyPrefix+"100")
	testutil.SeedCRMProfile(t, ctx, h.db, 7, shopifyPrefix+"100")
	testutil.SeedCRMProfile(t, ctx, h.db, 7, shopifyPrefix+"200")
	// another eshop; must never match
	testutil.SeedCRMProfile(t, ctx, h.db, 8, shopifyPrefix+"999")
}

func TestPipelineRunEndToEnd(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	seedProfiles(t, h)
	accountID := uuid.New()
	folder := seedVersion(h, accountID, "1700000001")

	rep, err := h.pipeline.Run(context.Background(), RunInput{AccountID: accountID, ModelType: "crm"})
	require.NoError(t, err)
	require.Equal(t, types.IngestRunStatusSucceeded, rep.Status)
	require.Equal(t, "1700000001", rep.Version)

	require.Equal(t, 5, rep.Preprocess.Rows)
	require.Equal(t, 4, rep.Preprocess.Resolved)
	require.Equal(t, 1, rep.Preprocess.Unresolved)
	require.Equal(t, 4, rep.Preprocess.Rules)
	require.Equal(t, 1, rep.Preprocess.RulesUnmatched)
	require.Len(t, rep.Preprocess.Outputs, 4)

	base := folder + "/1700000001/" + PreprocessedDir + "/"
	out, ok := h.store.get(base + PreprocessedMarkupFile)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(out, "customer_profile_id,model,segment,eshop_customer_id\n"))
	require.Contains(t, out, ",ltv,1,100\n")
	require.NotContains(t, out, shopifyPrefix)

	errs, _ := h.store.get(base + PreprocessedMarkupErrorsFile)
	require.Contains(t, errs, shopifyPrefix+"999,"+accountID.String()+",7,churn,2")

	rules, _ := h.store.get(base + PreprocessedRulesFile)
	require.Contains(t, rules, "churn,1,0.5,low\n")
	require.Contains(t, rules, "churn,2,0.9,high\n")
	require.Contains(t, rules, "ltv,9,1,orphan\n")
	rulesErrs, _ := h.store.get(base + PreprocessedRulesErrorsFile)
	require.Equal(t, "model,segment\nltv,9\n", rulesErrs)

	// raw inputs stay where they were
	_, ok = h.store.get(folder + "/1700000001/" + MarkupFile)
	require.True(t, ok)

	require.Equal(t, 4, rep.Load.Catalog.Segments)
	require.Equal(t, 4, rep.Load.Loader.Inserted)
	require.Zero(t, rep.Load.Unresolved)
	require.EqualValues(t, 4, testutil.Count(t, h.db, &types.Markup{}, "account_id = ?", accountID))
	require.EqualValues(t, 2, testutil.Count(t, h.db, &types.ActiveAccountModel{}, "account_id = ?", accountID))

	run, err := h.repos.IngestRuns.GetLatest(testDBC(), accountID, "crm")
	require.NoError(t, err)
	require.Equal(t, types.IngestRunStatusSucceeded, run.Status)
	require.Equal(t, "1700000001", run.ModelVersion)
	require.NotNil(t, run.FinishedAt)
}

func TestPipelineRerunOfSameVersionIsIdempotent(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	seedProfiles(t, h)
	accountID := uuid.New()
	seedVersion(h, accountID, "1700000001")

	for i := 0; i < 2; i++ {
		_, err := h.pipeline.Run(context.Background(), RunInput{AccountID: accountID, ModelType: "crm"})
		require.NoError(t, err)
	}
	require.EqualValues(t, 4, testutil.Count(t, h.db, &types.Markup{}, "account_id = ?", accountID))
	require.EqualValues(t, 4, testutil.Count(t, h.db, &types.Segment{}, ""))
	require.EqualValues(t, 2, testutil.Count(t, h.db, &types.AccountModel{}, "account_id = ?", accountID))
}

func TestPipelineRetentionKeepsTwoNewestAndArchives(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	seedProfiles(t, h)
	accountID := uuid.New()
	ctx := context.Background()

	var folder string
	var last RunReport
	for _, v := range []string{"1700000001", "1700000002", "1700000003"} {
		folder = seedVersion(h, accountID, v)
		rep, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm"})
		require.NoError(t, err)
		last = rep
	}

	require.Equal(t, []string{"1700000001"}, last.Load.Retention.Archived)
	require.EqualValues(t, 2, last.Load.Retention.Deleted)

	churn, err := h.repos.Models.GetOrCreate(testDBC(), "churn")
	require.NoError(t, err)
	rows, err := h.repos.AccountModels.ListByAccountAndModels(testDBC(), accountID, []int64{churn.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "1700000003", rows[0].ModelVersion)
	require.Equal(t, "1700000002", rows[1].ModelVersion)

	active, err := h.repos.ActiveAccountModels.ListByAccount(testDBC(), accountID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, a := range active {
		if a.ModelID == churn.ID {
			require.Equal(t, rows[0].ID, a.AccountModelID)
		}
	}

	// markups of the dropped version went with it
	require.EqualValues(t, 8, testutil.Count(t, h.db, &types.Markup{}, "account_id = ?", accountID))

	require.Empty(t, h.store.keys(folder+"/1700000001/"))
	archived := ArchiveKey(folder+"/1700000001/"+MarkupFile, DefaultArchiveFolder)
	_, ok := h.store.get(archived)
	require.True(t, ok, archived)
	_, ok = h.store.get(ArchiveKey(folder+"/1700000001/"+PreprocessedDir+"/"+PreprocessedMarkupFile, DefaultArchiveFolder))
	require.True(t, ok)
	require.NotEmpty(t, h.store.keys(folder+"/1700000002/"))
}

func TestPipelineArchivesVersionSharedOnlyWithAnotherModelType(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	seedProfiles(t, h)
	accountID := uuid.New()
	ctx := context.Background()

	// a behaviour model of the same account at the oldest crm version
	visits := testutil.SeedModel(t, ctx, h.db, "visits")
	testutil.SeedAccountModel(t, ctx, h.db, accountID, visits.ID, "1700000001")

	var folder string
	var last RunReport
	for _, v := range []string{"1700000001", "1700000002", "1700000003"} {
		folder = seedVersion(h, accountID, v)
		rep, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm"})
		require.NoError(t, err)
		last = rep
	}

	require.Equal(t, []string{"1700000001"}, last.Load.Retention.Archived)
	require.Empty(t, last.Load.Retention.KeptReferenced)
	require.EqualValues(t, 2, last.Load.Retention.Deleted)
	require.Empty(t, h.store.keys(folder+"/1700000001/"))
	require.NotEmpty(t, h.store.keys(DefaultArchiveFolder+"/"))
	require.EqualValues(t, 1, testutil.Count(t, h.db, &types.AccountModel{}, "account_id = ? AND model_id = ?", accountID, visits.ID))
}

func TestPipelineSameVersionAcrossModelTypesKeepsMarkupsApart(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	seedProfiles(t, h)
	ctx := context.Background()
	accountID := uuid.New()
	testutil.SeedBehaviourProfile(t, ctx, h.db, accountID, "guest-1")

	seedVersion(h, accountID, "1700000001")
	_, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm"})
	require.NoError(t, err)
	require.EqualValues(t, 4, testutil.Count(t, h.db, &types.Markup{}, "account_id = ?", accountID))

	behFolder := ModelFolder(DefaultRootFolder, accountID, "beh")
	h.store.putString(behFolder+"/1700000001/"+MarkupFile, "model,segment,guest_id\nvisits,1,guest-1\nchurn,1,guest-1\n")
	h.store.putString(behFolder+"/1700000001/"+RulesFile, "model,segment,predicted_value,description\nvisits,1,3.5,frequent\n")

	rep, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "beh"})
	require.NoError(t, err)
	require.Zero(t, rep.Load.Loader.Reset)
	require.Equal(t, 1, rep.Load.Loader.Inserted)
	// churn belongs to the crm folder and does not resolve here
	require.Len(t, rep.Load.Loader.Unresolved, 1)
	require.Equal(t, reasonUnknownSegment, rep.Load.Loader.Unresolved[0].Reason)

	require.EqualValues(t, 5, testutil.Count(t, h.db, &types.Markup{}, "account_id = ?", accountID))
	churn, err := h.repos.Models.GetOrCreate(testDBC(), "churn")
	require.NoError(t, err)
	crmRows, err := h.repos.AccountModels.ListByAccountAndModels(testDBC(), accountID, []int64{churn.ID})
	require.NoError(t, err)
	require.Len(t, crmRows, 1)
	require.EqualValues(t, 3, testutil.Count(t, h.db, &types.Markup{}, "segment_id IN (?)",
		h.db.Model(&types.Segment{}).Select("id").Where("account_model_id = ?", crmRows[0].ID)))
}

func TestPipelineWritesUnresolvedMarkupLog(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	seedProfiles(t, h)
	accountID := uuid.New()
	folder := ModelFolder(DefaultRootFolder, accountID, "crm")
	h.store.putString(folder+"/1700000001/"+MarkupFile, markupCSV+"churn,5,,200\n")
	h.store.putString(folder+"/1700000001/"+RulesFile, rulesCSV)

	rep, err := h.pipeline.Run(context.Background(), RunInput{AccountID: accountID, ModelType: "crm"})
	require.NoError(t, err)
	require.Equal(t, 4, rep.Load.Loader.Inserted)
	require.Equal(t, 1, rep.Load.Unresolved)

	got, ok := h.store.get(folder + "/1700000001/" + PreprocessedDir + "/" + LoadErrorsFile)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(got, "line,external_key,model,segment,reason\n"), got)
	// the original key, not the prefixed lookup key
	require.Contains(t, got, ",200,churn,5,"+reasonUnknownSegment+"\n")
	require.NotContains(t, got, shopifyPrefix)
}

func TestPipelineStructuralErrors(t *testing.T) {
	accountID := uuid.New()
	ctx := context.Background()

	t.Run("no version", func(t *testing.T) {
		h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
		_, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm"})
		require.True(t, IsStructural(err), "%v", err)
	})

	t.Run("missing rules file", func(t *testing.T) {
		h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
		folder := ModelFolder(DefaultRootFolder, accountID, "crm")
		h.store.putString(folder+"/1700000001/"+MarkupFile, markupCSV)
		_, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm"})
		require.True(t, IsStructural(err), "%v", err)
		require.ErrorContains(t, err, RulesFile)
	})

	t.Run("unknown model type", func(t *testing.T) {
		h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
		_, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "web"})
		require.True(t, IsStructural(err), "%v", err)
	})

	t.Run("eshop lookup fails", func(t *testing.T) {
		h := newHarness(t, eshopLookupFunc(func(context.Context, uuid.UUID) (*authapi.Eshop, error) {
			return nil, authapi.ErrEshopNotFound
		}))
		seedVersion(h, accountID, "1700000001")
		_, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm"})
		require.True(t, IsStructural(err), "%v", err)
		require.ErrorIs(t, err, authapi.ErrEshopNotFound)
		require.Zero(t, testutil.Count(t, h.db, &types.AccountModel{}, ""))
	})

	t.Run("load before preprocess", func(t *testing.T) {
		h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
		seedVersion(h, accountID, "1700000001")
		_, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm", Stages: []Stage{StageLoad}})
		require.True(t, IsStructural(err), "%v", err)
	})
}

func TestPipelineNothingResolved(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	accountID := uuid.New()
	folder := seedVersion(h, accountID, "1700000001")

	rep, err := h.pipeline.Run(context.Background(), RunInput{AccountID: accountID, ModelType: "crm"})
	require.True(t, errors.Is(err, ErrNoResolvedMarkups), "%v", err)
	require.Equal(t, types.IngestRunStatusFailed, rep.Status)
	require.Empty(t, h.store.keys(folder+"/1700000001/"+PreprocessedDir+"/"))
	require.Zero(t, testutil.Count(t, h.db, &types.Markup{}, ""))

	run, err := h.repos.IngestRuns.GetLatest(testDBC(), accountID, "crm")
	require.NoError(t, err)
	require.Equal(t, types.IngestRunStatusFailed, run.Status)
	require.NotEmpty(t, run.Error)
}

func TestPipelineRejectsConcurrentRun(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	accountID := uuid.New()
	err := h.locker.WithLock(context.Background(), LockKey(accountID, "crm"), func(ctx context.Context) error {
		_, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "crm"})
		return err
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestPipelineBehaviourSource(t *testing.T) {
	h := newHarness(t, staticEshop(7, authapi.PlatformShopify))
	ctx := context.Background()
	accountID := uuid.New()
	g1 := testutil.SeedBehaviourProfile(t, ctx, h.db, accountID, "guest-1")
	testutil.SeedBehaviourProfile(t, ctx, h.db, uuid.New(), "guest-2")

	folder := ModelFolder(DefaultRootFolder, accountID, "beh")
	h.store.putString(folder+"/1700000001/"+MarkupFile, "model,segment,guest_id\nvisits,1,guest-1\nvisits,1,guest-2\n")
	h.store.putString(folder+"/1700000001/"+RulesFile, "model,segment,predicted_value,description\nvisits,1,3.5,frequent\n")

	rep, err := h.pipeline.Run(ctx, RunInput{AccountID: accountID, ModelType: "beh"})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Preprocess.Resolved)
	require.Equal(t, 1, rep.Preprocess.Unresolved)
	require.Equal(t, 1, rep.Load.Loader.Inserted)

	var m types.Markup
	require.NoError(t, h.db.Where("account_id = ?", accountID).Take(&m).Error)
	require.Equal(t, g1.CustomerProfileID, m.CustomerProfileID)
}

func TestParseStages(t *testing.T) {
	got, err := ParseStages("")
	require.NoError(t, err)
	require.Equal(t, []Stage{StagePreprocess, StageLoad}, got)
	got, err = ParseStages("LOAD")
	require.NoError(t, err)
	require.Equal(t, []Stage{StageLoad}, got)
	_, err = ParseStages("retention")
	require.Error(t, err)
}
