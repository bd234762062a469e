package markup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

// ErrNothingLoaded means the load stage inserted no markups, so retention and activation were
// not run. The previous active versions stay in place.
var ErrNothingLoaded = errors.New("no markups inserted")

type LoadReport struct {
	Version          string          `json:"version"`
	Rules            int             `json:"rules"`
	RulesInvalid     int             `json:"rules_invalid"`
	Rows             int             `json:"rows"`
	Catalog          CatalogResult   `json:"catalog"`
	Loader           LoaderResult    `json:"loader"`
	Unresolved       int             `json:"unresolved"`
	Retention        RetentionResult `json:"retention"`
	Activated        []int64         `json:"activated,omitempty"`
	LifecycleSkipped bool            `json:"lifecycle_skipped,omitempty"`
}

// LoadStage persists the preprocessed files of the latest version and then applies the
// version lifecycle: catalog, markups, retention, activation, in that order.
type LoadStage struct {
	log        *logger.Logger
	store      ObjectStore
	sources    Sources
	catalog    *CatalogUpserter
	loader     *Loader
	retention  *RetentionManager
	activation *ActivationManager
	root       string
}

func NewLoadStage(log *logger.Logger, store ObjectStore, sources Sources, catalog *CatalogUpserter, loader *Loader, retention *RetentionManager, activation *ActivationManager, root string) *LoadStage {
	return &LoadStage{
		log:        log.With("component", "LoadStage"),
		store:      store,
		sources:    sources,
		catalog:    catalog,
		loader:     loader,
		retention:  retention,
		activation: activation,
		root:       root,
	}
}

func (s *LoadStage) Run(ctx context.Context, accountID uuid.UUID, modelType string) (LoadReport, error) {
	var rep LoadReport
	kind, err := s.sources.Kind(modelType)
	if err != nil {
		return rep, err
	}
	folder := ModelFolder(s.root, accountID, modelType)
	listing, err := ResolveVersions(ctx, s.store, folder)
	if err != nil {
		return rep, err
	}
	if !listing.HasLatest() {
		return rep, structural("resolve version", fmt.Errorf("no versions under %s", folder))
	}
	version := listing.Latest
	rep.Version = version
	for _, name := range []string{PreprocessedMarkupFile, PreprocessedRulesFile} {
		if !listing.Has(version, PreprocessedDir+"/"+name) {
			return rep, structural("locate input", fmt.Errorf("%s/%s/%s/%s not found", folder, version, PreprocessedDir, name))
		}
	}
	log := s.log.With("account_id", accountID.String(), "model_type", modelType, "version", version)
	tracer := observability.Tracer()

	rules, err := s.readRules(ctx, versionKey(folder, version, PreprocessedDir+"/"+PreprocessedRulesFile), &rep)
	if err != nil {
		return rep, err
	}
	rows, invalid, err := s.readMarkups(ctx, versionKey(folder, version, PreprocessedDir+"/"+PreprocessedMarkupFile), kind)
	if err != nil {
		return rep, err
	}
	rep.Rows = len(rows) + len(invalid)

	cctx, span := tracer.Start(ctx, "markup.catalog")
	rep.Catalog, err = s.catalog.Upsert(cctx, accountID, version, rules)
	span.End()
	if err != nil {
		log.Error("segment catalog upsert failed", "error", err)
	}

	lctx, span := tracer.Start(ctx, "markup.load")
	rep.Loader, err = s.loader.Load(lctx, accountID, version, modelType, rep.Catalog.AccountModelIDs, rows)
	span.End()
	if err != nil {
		return rep, err
	}

	unresolved := append(invalid, rep.Loader.Unresolved...)
	rep.Unresolved = len(unresolved)
	if len(unresolved) > 0 {
		s.uploadUnresolved(ctx, versionKey(folder, version, PreprocessedDir+"/"+LoadErrorsFile), unresolved, log)
	}

	if rep.Loader.Inserted == 0 {
		rep.LifecycleSkipped = true
		log.Warn("nothing inserted; retention and activation skipped", "unresolved", rep.Unresolved)
		return rep, fmt.Errorf("load %s: %w", version, ErrNothingLoaded)
	}

	rctx, span := tracer.Start(ctx, "markup.retention")
	rep.Retention, err = s.retention.Apply(rctx, accountID, folder, modelType, rep.Catalog.ModelIDs)
	span.End()
	if err != nil {
		return rep, err
	}

	actx, span := tracer.Start(ctx, "markup.activation")
	rep.Activated, err = s.activation.Activate(actx, accountID, rep.Catalog.ModelIDs, rep.Retention.Candidates)
	span.End()
	if err != nil {
		return rep, err
	}
	log.Info("load finished", "inserted", rep.Loader.Inserted, "unresolved", rep.Unresolved, "deleted_versions", rep.Retention.Deleted)
	return rep, nil
}

func (s *LoadStage) readRules(ctx context.Context, key string, rep *LoadReport) ([]RuleRow, error) {
	in, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer in.Close()

	tbl, err := openCSV(in, "model", "segment", "predicted_value", "description")
	if err != nil {
		return nil, structural("read "+PreprocessedRulesFile, err)
	}
	var out []RuleRow
	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, structural("read "+PreprocessedRulesFile, err)
		}
		rep.Rules++
		model := tbl.get(rec, "model")
		number, err := parseSegmentNumber(tbl.get(rec, "segment"))
		if err != nil || model == "" {
			rep.RulesInvalid++
			s.log.Warn("invalid rule skipped", "line", tbl.line, "model", model, "segment", tbl.get(rec, "segment"))
			continue
		}
		var value decimal.NullDecimal
		if raw := tbl.get(rec, "predicted_value"); raw != "" {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				rep.RulesInvalid++
				s.log.Warn("invalid predicted value; rule skipped", "line", tbl.line, "value", raw)
				continue
			}
			value = decimal.NewNullDecimal(d)
		}
		out = append(out, RuleRow{
			Line:           tbl.line,
			Model:          model,
			SegmentNumber:  number,
			PredictedValue: value,
			Description:    tbl.get(rec, "description"),
		})
	}
}

// readMarkups returns the parsable rows and, separately, the rows that cannot be loaded at all.
func (s *LoadStage) readMarkups(ctx context.Context, key string, kind SourceKind) ([]LoadRow, []UnresolvedMarkup, error) {
	in, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer in.Close()

	tbl, err := openCSV(in, "customer_profile_id", "model", "segment")
	if err != nil {
		return nil, nil, structural("read "+PreprocessedMarkupFile, err)
	}
	var rows []LoadRow
	var invalid []UnresolvedMarkup
	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			return rows, invalid, nil
		}
		if err != nil {
			return nil, nil, structural("read "+PreprocessedMarkupFile, err)
		}
		model := tbl.get(rec, "model")
		segment := tbl.get(rec, "segment")
		extKey := tbl.get(rec, kind.KeyColumn)
		id, idErr := uuid.Parse(tbl.get(rec, "customer_profile_id"))
		number, segErr := parseSegmentNumber(segment)
		if idErr != nil || segErr != nil {
			invalid = append(invalid, UnresolvedMarkup{Line: tbl.line, ExternalKey: extKey, Model: model, Segment: segment, Reason: reasonInvalidRow})
			continue
		}
		rows = append(rows, LoadRow{
			Line:              tbl.line,
			CustomerProfileID: id,
			Model:             model,
			SegmentNumber:     number,
			ExternalKey:       extKey,
		})
	}
}

func (s *LoadStage) uploadUnresolved(ctx context.Context, key string, rows []UnresolvedMarkup, log *logger.Logger) {
	buf := newCSVBuffer("line", "external_key", "model", "segment", "reason")
	for _, u := range rows {
		buf.write(strconv.Itoa(u.Line), u.ExternalKey, u.Model, u.Segment, u.Reason)
	}
	r, err := buf.reader()
	if err == nil {
		err = s.store.Put(ctx, key, r)
	}
	if err != nil {
		log.Warn("unresolved markup log not written", "key", key, "rows", len(rows), "error", err)
		return
	}
	log.Info("unresolved markups logged", "key", key, "rows", len(rows))
}

// parseSegmentNumber accepts integer segments and their float spelling ("3.0").
func parseSegmentNumber(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid segment number %q", raw)
	}
	return int(f), nil
}
