// Package editor implements the menu editor: loading the page model and saving
// submitted menus through decode, round-trip validation, backup rotation and an
// atomic replace of the stored document.
package editor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/config"
	"menueditor-backend/internal/infrastructure/messaging"
	"menueditor-backend/internal/infrastructure/observability"
	"menueditor-backend/internal/menu"
	"menueditor-backend/internal/storage"
	"menueditor-backend/pkg/auth"
	apperrors "menueditor-backend/pkg/errors"
)

// Service defines the menu editor operations.
type Service interface {
	// Page returns the editor page model.
	Page(ctx context.Context) (*Page, error)

	// Save decodes a JSON payload and replaces the stored menus with it.
	Save(ctx context.Context, payload []byte) (*Outcome, error)

	// Restore replaces the stored menus with a backup snapshot. The replaced
	// document is itself backed up.
	Restore(ctx context.Context, name string) (*Outcome, error)

	// Backups lists snapshots, newest first.
	Backups(ctx context.Context) ([]backup.Record, error)
}

// Options configures the service.
type Options struct {
	Permission      string
	MaxDepth        int
	MaxPayloadBytes int64
	Fields          []config.EditorField
}

// service implements the Service interface.
type service struct {
	store     storage.DocumentStore
	codec     *menu.Codec
	validator *menu.Validator
	rotator   *backup.Rotator
	publisher messaging.Publisher
	metrics   *observability.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

// NewService creates the editor service. metrics may be nil.
func NewService(
	store storage.DocumentStore,
	rotator *backup.Rotator,
	publisher messaging.Publisher,
	metrics *observability.Collector,
	logger *zap.Logger,
	opts Options,
) Service {
	if opts.Permission == "" {
		opts.Permission = Permission
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	codec := menu.NewCodec(opts.MaxDepth)
	return &service{
		store:     store,
		codec:     codec,
		validator: menu.NewValidator(codec),
		rotator:   rotator,
		publisher: publisher,
		metrics:   metrics,
		tracer:    observability.Tracer(),
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *service) authorize(ctx context.Context) error {
	if !auth.PrincipalFromContext(ctx).IsAllowed(s.opts.Permission) {
		return apperrors.NewPermissionDenied(s.opts.Permission)
	}
	return nil
}

// Page implements Service.
func (s *service) Page(ctx context.Context) (*Page, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}

	doc, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	policy := s.rotator.Policy()
	page := &Page{
		Menus: doc,
		Config: PageConfig{
			Fields:  s.fields(),
			Backups: BackupSummary{Enabled: policy.Enabled},
		},
		Entry: MenuEntry(),
	}
	if policy.Enabled {
		page.Config.Backups.Folder = policy.Folder
		page.Config.Backups.Keep = policy.Keep
		recent, err := s.rotator.List(ctx)
		if err != nil {
			s.logger.Warn("Failed to list menu backups", zap.Error(err))
		}
		page.Backups = recent
	}
	return page, nil
}

func (s *service) fields() []config.EditorField {
	if s.opts.Fields == nil {
		return []config.EditorField{}
	}
	return s.opts.Fields
}

// current reads and decodes the stored document. A missing document is empty.
func (s *service) current(ctx context.Context) (*menu.Document, error) {
	data, err := s.store.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return &menu.Document{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read %s", s.store.Location())
	}
	return s.codec.Decode(data)
}

// Save implements Service.
func (s *service) Save(ctx context.Context, payload []byte) (*Outcome, error) {
	if err := s.authorize(ctx); err != nil {
		s.recordSave(StateRejected, 0)
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "editor.Save", trace.WithAttributes(attribute.Int("payload.bytes", len(payload))))
	defer span.End()
	start := s.now()

	out := s.newOutcome()
	span.SetAttributes(attribute.String("save.id", out.SaveID))

	out.enter(StateDecoding)
	if s.opts.MaxPayloadBytes > 0 && int64(len(payload)) > s.opts.MaxPayloadBytes {
		err := apperrors.NewValidationFailed("menu payload is too large", nil).
			WithDetails(map[string]interface{}{"max_bytes": s.opts.MaxPayloadBytes})
		return s.reject(ctx, span, out, start, err)
	}
	doc, err := menu.DecodeJSON(payload, menu.Limits{MaxDepth: s.codec.MaxDepth()})
	if err != nil {
		return s.reject(ctx, span, out, start, err)
	}
	out.Document = doc

	return s.commit(ctx, span, out, start)
}

// Restore implements Service.
func (s *service) Restore(ctx context.Context, name string) (*Outcome, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "editor.Restore", trace.WithAttributes(attribute.String("backup.name", name)))
	defer span.End()
	start := s.now()

	data, err := s.rotator.Read(ctx, name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := s.newOutcome()
	out.enter(StateDecoding)
	doc, err := s.codec.Decode(data)
	if err != nil {
		return s.reject(ctx, span, out, start, apperrors.NewValidationFailed("backup is not a menu document", err))
	}
	out.Document = doc

	return s.commit(ctx, span, out, start)
}

// Backups implements Service.
func (s *service) Backups(ctx context.Context) ([]backup.Record, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	return s.rotator.List(ctx)
}

func (s *service) newOutcome() *Outcome {
	out := &Outcome{SaveID: uuid.NewString()}
	out.enter(StateIdle)
	return out
}

// commit runs validation, backup and write for a decoded document.
func (s *service) commit(ctx context.Context, span trace.Span, out *Outcome, start time.Time) (*Outcome, error) {
	out.enter(StateValidating)
	text, err := s.validator.Validate(out.Document)
	if err != nil {
		return s.reject(ctx, span, out, start, err)
	}

	out.enter(StateBackingUp)
	out.Backup, out.BackupErr = s.backup(ctx)
	if out.BackupErr != nil {
		span.AddEvent("backup_failed", trace.WithAttributes(attribute.String("error", out.BackupErr.Error())))
	}

	out.enter(StateWriting)
	if err := s.store.Put(ctx, text); err != nil {
		out.Err = apperrors.NewStorageWriteFailed(s.store.Location(), err)
		out.enter(StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage write failed")
		s.logger.Error("Menu could not be written",
			zap.String("save_id", out.SaveID),
			zap.String("location", s.store.Location()),
			zap.Error(err),
		)
		s.recordSave(StateFailed, s.now().Sub(start))
		return out, out.Err
	}
	out.Bytes = len(text)

	out.enter(StateDone)
	s.logger.Info("Menu saved",
		zap.String("save_id", out.SaveID),
		zap.String("location", s.store.Location()),
		zap.Strings("menus", out.Document.Names()),
		zap.Int("items", out.Document.ItemCount()),
		zap.Int("bytes", out.Bytes),
		zap.Bool("backup", out.Backup != nil),
	)
	if s.metrics != nil {
		s.metrics.RecordDocument(out.Bytes, out.Document.ItemCount())
	}
	s.recordSave(StateDone, s.now().Sub(start))
	s.publish(ctx, out)
	return out, nil
}

// backup snapshots the stored document before it is replaced. Nothing is
// snapshotted when there is no stored document yet.
func (s *service) backup(ctx context.Context) (*backup.Record, error) {
	if !s.rotator.Policy().Enabled {
		return nil, nil
	}

	previous, err := s.store.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		s.recordBackup("skipped")
		return nil, nil
	}
	if err != nil {
		err = apperrors.NewBackupFailed("read previous document", err)
		s.logger.Warn("Menu backup failed, saving anyway", zap.Error(err))
		s.recordBackup("failed")
		return nil, err
	}

	rec, err := s.rotator.Rotate(ctx, previous)
	if err != nil {
		s.logger.Warn("Menu backup failed, saving anyway", zap.Error(err))
		s.recordBackup("failed")
		return rec, err
	}
	s.recordBackup("written")
	return rec, nil
}

func (s *service) reject(ctx context.Context, span trace.Span, out *Outcome, start time.Time, err error) (*Outcome, error) {
	out.Err = err
	out.enter(StateRejected)
	span.RecordError(err)
	span.SetStatus(codes.Error, "menu rejected")
	s.logger.Info("Menu rejected, stored menu left unchanged",
		zap.String("save_id", out.SaveID),
		zap.Error(err),
	)
	s.recordSave(StateRejected, s.now().Sub(start))
	return out, err
}

func (s *service) publish(ctx context.Context, out *Outcome) {
	event := messaging.MenuSaved{
		EventID:    uuid.NewString(),
		SaveID:     out.SaveID,
		Location:   s.store.Location(),
		Menus:      out.Document.Names(),
		Items:      out.Document.ItemCount(),
		Bytes:      out.Bytes,
		OccurredAt: s.now().UTC(),
		Version:    1,
	}
	if out.Backup != nil {
		event.Backup = out.Backup.Name
	}
	if p := auth.PrincipalFromContext(ctx); p != nil {
		event.UserID = p.UserID
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish menu saved event", zap.String("save_id", out.SaveID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.EventsDropped.Inc()
		}
	}
}

func (s *service) recordSave(state State, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordSave(string(state), d)
	}
}

func (s *service) recordBackup(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBackup(outcome)
	}
}
