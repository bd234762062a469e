package markup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/yungbote/markupsync/internal/data/repos"
	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

const (
	MarkupFile                   = "markup.csv"
	RulesFile                    = "rules.csv"
	PreprocessedDir              = "preprocessed"
	PreprocessedMarkupFile       = "preprocessed_markup.csv"
	PreprocessedMarkupErrorsFile = "preprocessed_markup_errors.csv"
	PreprocessedRulesFile        = "preprocessed_rules.csv"
	PreprocessedRulesErrorsFile  = "preprocessed_rules_errors.csv"
	LoadErrorsFile               = "load_markup_errors.csv"
)

type PreprocessReport struct {
	Version        string   `json:"version"`
	EshopID        int64    `json:"eshop_id"`
	Platform       string   `json:"platform"`
	Rows           int      `json:"rows"`
	Resolved       int      `json:"resolved"`
	Unresolved     int      `json:"unresolved"`
	Rules          int      `json:"rules"`
	RulesUnmatched int      `json:"rules_unmatched"`
	Outputs        []string `json:"outputs,omitempty"`
}

// Preprocessor turns the raw markup and rules files of the latest version into their
// resolved counterparts plus error logs, written under <version>/preprocessed/.
type Preprocessor struct {
	log      *logger.Logger
	store    ObjectStore
	eshops   EshopLookup
	profiles repos.CustomerProfileRepo
	sources  Sources
	metrics  *observability.Metrics
	root     string
}

func NewPreprocessor(log *logger.Logger, store ObjectStore, eshops EshopLookup, profiles repos.CustomerProfileRepo, sources Sources, metrics *observability.Metrics, root string) *Preprocessor {
	return &Preprocessor{
		log:      log.With("component", "Preprocessor"),
		store:    store,
		eshops:   eshops,
		profiles: profiles,
		sources:  sources,
		metrics:  metrics,
		root:     root,
	}
}

func (p *Preprocessor) Run(ctx context.Context, accountID uuid.UUID, modelType string) (PreprocessReport, error) {
	var rep PreprocessReport
	kind, err := p.sources.Kind(modelType)
	if err != nil {
		return rep, err
	}

	folder := ModelFolder(p.root, accountID, modelType)
	listing, err := ResolveVersions(ctx, p.store, folder)
	if err != nil {
		return rep, err
	}
	if !listing.HasLatest() {
		return rep, structural("resolve version", fmt.Errorf("no versions under %s", folder))
	}
	version := listing.Latest
	rep.Version = version
	for _, name := range []string{MarkupFile, RulesFile} {
		if !listing.Has(version, name) {
			return rep, structural("locate input", fmt.Errorf("%s/%s/%s not found", folder, version, name))
		}
	}

	eshop, err := p.eshops.GetEshop(ctx, accountID)
	if err != nil {
		return rep, structural("eshop lookup", err)
	}
	rep.EshopID = eshop.ID
	rep.Platform = eshop.PlatformID.String()
	scope := Scope{AccountID: accountID, EshopID: eshop.ID, Prefix: kind.Prefix(eshop.PlatformID)}
	log := p.log.With("account_id", accountID.String(), "model_type", modelType, "version", version)

	resolver := NewIdentityResolver(p.log, p.profiles, kind, scope)
	markupOut := newCSVBuffer("customer_profile_id", "model", "segment", kind.KeyColumn)
	markupErr := newCSVBuffer("id", "account_id", "eshop_id", "model", "segment")
	predicted, err := p.resolveMarkups(ctx, versionKey(folder, version, MarkupFile), kind, resolver, markupOut, markupErr, &rep)
	if err != nil {
		return rep, err
	}
	p.metrics.ObserveResolution(modelType, rep.Resolved, rep.Unresolved)
	log.Info("markups resolved", "rows", rep.Rows, "resolved", rep.Resolved, "unresolved", rep.Unresolved)
	if rep.Resolved == 0 {
		return rep, fmt.Errorf("preprocess %s: %w", version, ErrNoResolvedMarkups)
	}

	rulesOut := newCSVBuffer("model", "segment", "predicted_value", "description")
	rulesErr := newCSVBuffer("model", "segment")
	if err := p.rewriteRules(ctx, versionKey(folder, version, RulesFile), predicted, rulesOut, rulesErr, &rep); err != nil {
		return rep, err
	}
	if rep.RulesUnmatched > 0 {
		log.Warn("rules without markups", "rules", rep.Rules, "unmatched", rep.RulesUnmatched)
	}

	outputs := []struct {
		name string
		buf  *csvBuffer
	}{
		{PreprocessedMarkupFile, markupOut},
		{PreprocessedMarkupErrorsFile, markupErr},
		{PreprocessedRulesFile, rulesOut},
		{PreprocessedRulesErrorsFile, rulesErr},
	}
	for _, o := range outputs {
		key := versionKey(folder, version, PreprocessedDir+"/"+o.name)
		r, err := o.buf.reader()
		if err != nil {
			return rep, fmt.Errorf("encode %s: %w", o.name, err)
		}
		if err := p.store.Put(ctx, key, r); err != nil {
			return rep, fmt.Errorf("upload %s: %w", key, err)
		}
		rep.Outputs = append(rep.Outputs, key)
	}
	log.Info("preprocess finished", "outputs", len(rep.Outputs))
	return rep, nil
}

// resolveMarkups streams the markup file through the resolver and returns the predicted value
// seen for each (model, segment). A later non-blank value replaces an earlier one.
func (p *Preprocessor) resolveMarkups(ctx context.Context, key string, kind SourceKind, resolver *IdentityResolver, out, errs *csvBuffer, rep *PreprocessReport) (map[string]map[string]string, error) {
	in, err := p.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer in.Close()

	tbl, err := openCSV(in, "model", "segment", kind.KeyColumn)
	if err != nil {
		return nil, structural("read "+MarkupFile, err)
	}

	predicted := map[string]map[string]string{}
	batch := make([]MarkupRow, 0, resolver.BatchSize())
	flush := func() {
		if len(batch) == 0 {
			return
		}
		resolved, failed := resolver.ResolveBatch(ctx, batch)
		for _, r := range resolved {
			out.write(r.CustomerProfileID.String(), r.Model, r.Segment, r.ExternalKey)
		}
		for _, e := range failed {
			errs.write(e.ID, e.AccountID.String(), strconv.FormatInt(e.EshopID, 10), e.Model, e.Segment)
		}
		rep.Resolved += len(resolved)
		rep.Unresolved += len(failed)
		batch = batch[:0]
	}

	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, structural("read "+MarkupFile, err)
		}
		row := MarkupRow{
			Line:           tbl.line,
			Model:          tbl.get(rec, "model"),
			Segment:        tbl.get(rec, "segment"),
			PredictedValue: tbl.get(rec, "predicted_value"),
			Key:            tbl.get(rec, kind.KeyColumn),
		}
		rep.Rows++

		segs := predicted[row.Model]
		if segs == nil {
			segs = map[string]string{}
			predicted[row.Model] = segs
		}
		if _, ok := segs[row.Segment]; !ok || row.PredictedValue != "" {
			segs[row.Segment] = row.PredictedValue
		}

		batch = append(batch, row)
		if len(batch) == resolver.BatchSize() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			flush()
		}
	}
	flush()
	return predicted, nil
}

func (p *Preprocessor) rewriteRules(ctx context.Context, key string, predicted map[string]map[string]string, out, errs *csvBuffer, rep *PreprocessReport) error {
	in, err := p.store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer in.Close()

	tbl, err := openCSV(in, "model", "segment")
	if err != nil {
		return structural("read "+RulesFile, err)
	}
	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return structural("read "+RulesFile, err)
		}
		model := tbl.get(rec, "model")
		segment := tbl.get(rec, "segment")
		value := tbl.get(rec, "predicted_value")
		rep.Rules++

		if v, ok := predicted[model][segment]; ok {
			if v != "" {
				value = v
			}
		} else {
			rep.RulesUnmatched++
			errs.write(model, segment)
		}
		out.write(model, segment, value, tbl.get(rec, "description"))
	}
}

func versionKey(folder, version, name string) string {
	return folder + "/" + version + "/" + name
}
