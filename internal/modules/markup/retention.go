package markup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/markupsync/internal/data/repos"
	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

const (
	DefaultKeep            = 2
	DefaultArchiveFolder   = "archive_models"
	DefaultMoveConcurrency = 8
)

type RetentionPolicy struct {
	Keep            int
	ArchiveFolder   string
	MoveConcurrency int
}

type RetentionResult struct {
	Candidates     []*types.AccountModel `json:"-"`
	Deleted        int64                 `json:"deleted"`
	Archived       []string              `json:"archived,omitempty"`
	KeptReferenced []string              `json:"kept_referenced,omitempty"`
	ArchiveFailed  []string              `json:"archive_failed,omitempty"`
}

type RetentionManager struct {
	log           *logger.Logger
	store         ObjectStore
	accountModels repos.AccountModelRepo
	metrics       *observability.Metrics
	policy        RetentionPolicy
}

func NewRetentionManager(log *logger.Logger, store ObjectStore, accountModels repos.AccountModelRepo, metrics *observability.Metrics, policy RetentionPolicy) *RetentionManager {
	if policy.Keep <= 0 {
		policy.Keep = DefaultKeep
	}
	if policy.ArchiveFolder == "" {
		policy.ArchiveFolder = DefaultArchiveFolder
	}
	if policy.MoveConcurrency <= 0 {
		policy.MoveConcurrency = DefaultMoveConcurrency
	}
	return &RetentionManager{
		log:           log.With("component", "RetentionManager"),
		store:         store,
		accountModels: accountModels,
		metrics:       metrics,
		policy:        policy,
	}
}

// Apply trims every model in modelIDs down to the newest Keep versions. Artifacts of a dropped
// version are moved to the archive folder unless another of modelIDs still uses that version.
// Rows of a dropped version are deleted even when its archival fails; the folder is left in
// place for the purge command.
func (m *RetentionManager) Apply(ctx context.Context, accountID uuid.UUID, folder, modelType string, modelIDs []int64) (RetentionResult, error) {
	var res RetentionResult
	if len(modelIDs) == 0 {
		return res, nil
	}
	dbc := dbctx.Context{Ctx: ctx}

	rows, err := m.accountModels.ListByAccountAndModels(dbc, accountID, modelIDs)
	if err != nil {
		return res, fmt.Errorf("list account models: %w", err)
	}

	seen := map[int64]int{}
	byVersion := map[string][]int64{}
	for _, row := range rows {
		n := seen[row.ModelID]
		seen[row.ModelID] = n + 1
		switch {
		case n == 0:
			res.Candidates = append(res.Candidates, row)
		case n < m.policy.Keep:
		default:
			byVersion[row.ModelVersion] = append(byVersion[row.ModelVersion], row.ID)
		}
	}
	if len(byVersion) == 0 {
		return res, nil
	}

	versions := make([]string, 0, len(byVersion))
	var deletion []int64
	for v, ids := range byVersion {
		versions = append(versions, v)
		deletion = append(deletion, ids...)
	}
	sort.Strings(versions)

	held, err := m.accountModels.VersionsReferencedOutside(dbc, accountID, modelIDs, deletion, versions)
	if err != nil {
		return res, fmt.Errorf("check version references: %w", err)
	}
	heldSet := make(map[string]bool, len(held))
	for _, v := range held {
		heldSet[v] = true
	}

	var deleteIDs []int64
	for _, v := range versions {
		if heldSet[v] {
			m.log.Info("version still referenced; archival skipped", "version", v)
			m.metrics.ObserveArchival(modelType, "referenced")
			res.KeptReferenced = append(res.KeptReferenced, v)
			deleteIDs = append(deleteIDs, byVersion[v]...)
			continue
		}
		if err := m.archiveVersion(ctx, folder, v); err != nil {
			m.log.Error("archival failed; version rows deleted, folder left for purge", "version", v, "folder", folder, "error", err)
			m.metrics.ObserveArchival(modelType, "failed")
			res.ArchiveFailed = append(res.ArchiveFailed, v)
			deleteIDs = append(deleteIDs, byVersion[v]...)
			continue
		}
		m.metrics.ObserveArchival(modelType, "archived")
		res.Archived = append(res.Archived, v)
		deleteIDs = append(deleteIDs, byVersion[v]...)
	}

	if len(deleteIDs) > 0 {
		n, err := m.accountModels.DeleteByIDs(dbc, deleteIDs)
		if err != nil {
			return res, fmt.Errorf("delete account models: %w", err)
		}
		res.Deleted = n
		m.metrics.ObserveAccountModelsDeleted(modelType, n)
	}
	m.log.Info("retention applied", "archived", res.Archived, "referenced", res.KeptReferenced, "deleted", res.Deleted)
	return res, nil
}

func (m *RetentionManager) archiveVersion(ctx context.Context, folder, version string) error {
	marker := strings.TrimRight(folder, "/") + "/" + version + "/"
	keys, err := m.store.ListKeys(ctx, marker)
	if err != nil {
		return fmt.Errorf("list %s: %w", marker, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.policy.MoveConcurrency)
	for _, key := range keys {
		if key == marker || strings.HasSuffix(key, "/") {
			continue
		}
		src := key
		dst := ArchiveKey(src, m.policy.ArchiveFolder)
		g.Go(func() error {
			if err := m.store.Copy(gctx, src, dst); err != nil {
				return fmt.Errorf("copy %s: %w", src, err)
			}
			if err := m.store.Delete(gctx, src); err != nil {
				return fmt.Errorf("delete %s: %w", src, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, marker); err != nil {
		return fmt.Errorf("delete marker %s: %w", marker, err)
	}
	return nil
}

// ArchiveKey replaces the first path segment of key with archiveFolder:
// "models/a/crm/1700000000/markup.csv" -> "archive_models/a/crm/1700000000/markup.csv".
func ArchiveKey(key, archiveFolder string) string {
	_, rest, ok := strings.Cut(key, "/")
	if !ok {
		return archiveFolder + "/" + key
	}
	return archiveFolder + "/" + rest
}
