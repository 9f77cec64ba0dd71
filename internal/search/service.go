package search

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"menueditor-backend/internal/config"
	"menueditor-backend/internal/infrastructure/observability"
	"menueditor-backend/pkg/auth"
	apperrors "menueditor-backend/pkg/errors"
)

// SiteProvider returns the current site model.
type SiteProvider interface {
	Site() *config.Site
}

// Options configures a Service.
type Options struct {
	Permission     string
	MaxQueryLength int
}

// Service answers picker searches.
type Service struct {
	index    ContentIndex
	site     SiteProvider
	opts     Options
	validate *validator.Validate
	metrics  *observability.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewService creates a search service. metrics may be nil.
func NewService(index ContentIndex, site SiteProvider, opts Options, metrics *observability.Collector, logger *zap.Logger) *Service {
	if opts.MaxQueryLength <= 0 {
		opts.MaxQueryLength = 256
	}
	return &Service{
		index:    index,
		site:     site,
		opts:     opts,
		validate: validator.New(),
		metrics:  metrics,
		tracer:   observability.Tracer(),
		logger:   logger,
	}
}

// Search returns every record, overview and taxonomy term matching q, in that
// order. Matching is a case-insensitive substring test. A blank query matches
// nothing.
func (s *Service) Search(ctx context.Context, q string) ([]Result, error) {
	if p := auth.PrincipalFromContext(ctx); !p.IsAllowed(s.opts.Permission) {
		s.record("denied", 0)
		return nil, apperrors.NewPermissionDenied(s.opts.Permission)
	}

	q = strings.TrimSpace(q)
	if q == "" {
		s.record("ok", 0)
		return []Result{}, nil
	}
	if len([]rune(q)) > s.opts.MaxQueryLength {
		s.record("rejected", 0)
		return nil, apperrors.NewValidationFailed("search query is too long", nil).
			WithDetails(map[string]interface{}{"max_length": s.opts.MaxQueryLength})
	}

	ctx, span := s.tracer.Start(ctx, "search.Search", trace.WithAttributes(attribute.Int("query.length", len(q))))
	defer span.End()
	start := time.Now()

	records, err := s.index.SearchContent(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.record("failed", 0)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "content search failed")
	}

	site := s.site.Site()
	results := make([]Result, 0, len(records))
	results = append(results, s.recordResults(records, site)...)
	results = append(results, overviewResults(site, q)...)
	results = append(results, taxonomyResults(site, q)...)

	span.SetAttributes(attribute.Int("results.count", len(results)))
	s.logger.Debug("Search completed",
		zap.Int("records", len(records)),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	s.record("ok", len(results))
	return results, nil
}

func (s *Service) recordResults(records []Record, site *config.Site) []Result {
	types := make(map[string]config.ContentType, len(site.ContentTypes))
	for _, ct := range site.ContentTypes {
		types[ct.Key] = ct
		types[ct.Slug] = ct
	}

	out := make([]Result, 0, len(records))
	for _, rec := range records {
		if err := s.validate.Struct(rec); err != nil {
			s.logger.Warn("Skipping malformed content record", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		ct, ok := types[rec.ContentType]
		if !ok {
			ct = config.ContentType{
				Key:          rec.ContentType,
				Slug:         rec.ContentType,
				SingularSlug: rec.ContentType,
				SingularName: rec.ContentType,
			}
		}
		link := rec.Link
		if link == "" {
			slug := rec.Slug
			if slug == "" {
				slug = rec.ID
			}
			link = "/" + ct.SingularSlug + "/" + slug
		}
		out = append(out, Result{
			Kind:        KindRecord,
			Title:       rec.Title,
			Image:       rec.Image,
			Body:        Excerpt(rec.Excerpt, ExcerptLength),
			Link:        link,
			ContentType: ct.SingularSlug,
			Type:        ct.SingularName,
			Icon:        NormalizeIcon(ct.IconOne),
			ID:          rec.ID,
		})
	}
	return out
}

func overviewResults(site *config.Site, q string) []Result {
	needle := strings.ToLower(q)
	var out []Result
	for _, ct := range site.ContentTypes {
		if ct.Viewless {
			continue
		}
		if !matches(ct.Slug, needle) && !matches(ct.Name, needle) {
			continue
		}
		out = append(out, Result{
			Kind:  KindOverview,
			Title: ct.Name,
			Link:  ct.Slug,
			Type:  OverviewType,
			Icon:  NormalizeIcon(ct.IconMany),
			ID:    ct.Slug,
		})
	}
	return out
}

func taxonomyResults(site *config.Site, q string) []Result {
	needle := strings.ToLower(q)
	var out []Result
	for _, tax := range site.Taxonomies {
		icon := tax.Icon
		if icon == "" {
			icon = DefaultTaxonomyIcon
		}
		for _, opt := range tax.Options {
			if !matches(opt.Label, needle) && !matches(opt.Key, needle) {
				continue
			}
			link := tax.Slug + "/" + opt.Key
			out = append(out, Result{
				Kind:  KindTaxonomy,
				Title: opt.Label,
				Link:  link,
				Type:  tax.Name + " (Taxonomy)",
				Icon:  NormalizeIcon(icon),
				ID:    link,
			})
		}
	}
	return out
}

func (s *Service) record(outcome string, n int) {
	if s.metrics != nil {
		s.metrics.RecordSearch(outcome, n)
	}
}
