package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"deck-backend/internal/content"
	"deck-backend/internal/generator"
	"deck-backend/internal/models"
	"deck-backend/internal/schema"
	"deck-backend/internal/storage"
	"deck-backend/internal/validation"

	"github.com/google/uuid"
)

// Sentinel errors. Callers use errors.Is() instead of string matching.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrUnknownTemplate      = errors.New("unknown template")
	ErrUnknownField         = errors.New("unknown slide or field")
	ErrFieldType            = errors.New("value does not match the field type")
	ErrValidationFailed     = errors.New("required fields are missing")
	ErrGenerationInProgress = errors.New("generation already in progress")
)

// ValidationFailure carries the errors that blocked a generate request. It
// matches ErrValidationFailed.
type ValidationFailure struct {
	Errors []models.ValidationError
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%v: %d field(s)", ErrValidationFailed, len(e.Errors))
}

func (e *ValidationFailure) Is(target error) bool { return target == ErrValidationFailed }

// SessionView is a session together with its current validation errors.
type SessionView struct {
	Session *models.EditorSession   `json:"session"`
	Errors  []models.ValidationError `json:"validation_errors"`
}

// Generated is a finished deck, its serialized bytes and the name to save it under.
type Generated struct {
	Document *generator.Document
	Data     []byte
	FileName string
}

type SessionService struct {
	Store     storage.SnapshotStore
	Catalog   *schema.Catalog
	Generator *generator.Generator
	// Files holds uploaded source files; it may be nil.
	Files storage.Storage
	Theme models.Theme

	locks sessionLocks
	guard generationGuard
}

func NewSessionService(store storage.SnapshotStore, catalog *schema.Catalog, gen *generator.Generator, files storage.Storage) *SessionService {
	return &SessionService{
		Store:     store,
		Catalog:   catalog,
		Generator: gen,
		Files:     files,
		Theme:     models.OceanTheme,
	}
}

// fresh is the start state: default template, empty content, default first slide.
func (s *SessionService) fresh() models.Snapshot {
	t := s.Catalog.Default()
	return models.Snapshot{
		V:                models.SnapshotVersion,
		Template:         t,
		Content:          content.Empty(t),
		GlobalFirstSlide: models.DefaultGlobalFirstSlide(),
	}
}

func (s *SessionService) Create(ctx context.Context) (*models.EditorSession, error) {
	snap := s.fresh()
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	rec, err := s.Store.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	return &models.EditorSession{
		SessionID: rec.ID,
		Snapshot:  snap,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// decode reads a session. corrupt reports a snapshot that cannot be decoded or
// migrated; sess then carries the fresh state, not yet saved.
func (s *SessionService) decode(ctx context.Context, id uuid.UUID) (sess *models.EditorSession, corrupt bool, err error) {
	rec, err := s.Store.Load(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, ErrSessionNotFound
	}
	if err != nil {
		return nil, false, err
	}

	sess = &models.EditorSession{
		SessionID: rec.ID,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if snap := models.Migrate(rec.Data); snap != nil {
		sess.Snapshot = *snap
		return sess, false, nil
	}
	sess.Snapshot = s.fresh()
	return sess, true, nil
}

// load reads a session for a caller holding its lock. A snapshot that cannot be
// decoded or migrated is replaced by the fresh state, never reported as an error.
func (s *SessionService) load(ctx context.Context, id uuid.UUID) (*models.EditorSession, error) {
	sess, corrupt, err := s.decode(ctx, id)
	if err != nil || !corrupt {
		return sess, err
	}
	log.Printf("session: %s has an unreadable snapshot, starting over", id)
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// read is load for callers that do not hold the session lock. The lock is only
// taken to repair a corrupt snapshot.
func (s *SessionService) read(ctx context.Context, id uuid.UUID) (*models.EditorSession, error) {
	sess, corrupt, err := s.decode(ctx, id)
	if err != nil || !corrupt {
		return sess, err
	}
	unlock := s.locks.lock(id)
	defer unlock()
	return s.load(ctx, id)
}

func (s *SessionService) write(ctx context.Context, sess *models.EditorSession) error {
	sess.Snapshot.V = models.SnapshotVersion
	data, err := json.Marshal(sess.Snapshot)
	if err != nil {
		return err
	}
	if err := s.Store.Save(ctx, sess.SessionID, data); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	sess.Version++
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// update applies fn to the session's snapshot under the session lock and saves the
// result. Nothing is written when fn fails.
func (s *SessionService) update(ctx context.Context, id uuid.UUID, fn func(*models.Snapshot) error) (*models.EditorSession, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot
	if err := fn(&snap); err != nil {
		return nil, err
	}
	sess.Snapshot = snap
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) view(sess *models.EditorSession) *SessionView {
	errs := validation.Validate(sess.Snapshot.Template, sess.Snapshot.Content)
	if errs == nil {
		errs = []models.ValidationError{}
	}
	return &SessionView{Session: sess, Errors: errs}
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	sess, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// SelectTemplate switches the session to a catalog template. Content is reset to
// the new template's empty content, whatever the old values were.
func (s *SessionService) SelectTemplate(ctx context.Context, id uuid.UUID, templateID string) (*SessionView, error) {
	t, err := s.Catalog.Get(templateID)
	if errors.Is(err, schema.ErrTemplateNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}
	if err != nil {
		return nil, err
	}
	return s.useTemplate(ctx, id, t)
}

// ImportSchema parses an uploaded schema and makes it the active template. A
// *schema.ParseError leaves the session untouched.
func (s *SessionService) ImportSchema(ctx context.Context, id uuid.UUID, fileName string, data []byte) (*SessionView, error) {
	t, err := schema.Decode(fileName, data)
	if err != nil {
		return nil, err
	}
	return s.useTemplate(ctx, id, t)
}

func (s *SessionService) useTemplate(ctx context.Context, id uuid.UUID, t models.TemplateSchema) (*SessionView, error) {
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		snap.Template = t
		snap.Content = content.Empty(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// ExportSchema returns the active template in interchange form, with a file name
// derived from the template name.
func (s *SessionService) ExportSchema(ctx context.Context, id uuid.UUID) (fileName, text string, err error) {
	sess, err := s.read(ctx, id)
	if err != nil {
		return "", "", err
	}
	t := sess.Snapshot.Template
	text, err = schema.Serialize(t)
	if err != nil {
		return "", "", err
	}
	fileName = strings.TrimSuffix(generator.SanitizeFileName(t.Name), ".pptx") + ".json"
	return fileName, text, nil
}

func lookupField(t models.TemplateSchema, slideID, key string) (models.FieldDefinition, error) {
	slide, ok := t.Slide(slideID)
	if !ok {
		return models.FieldDefinition{}, fmt.Errorf("%w: slide %q", ErrUnknownField, slideID)
	}
	field, ok := slide.Field(key)
	if !ok {
		return models.FieldDefinition{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, slideID, key)
	}
	return field, nil
}

func requireList(t models.TemplateSchema, slideID, key string) error {
	field, err := lookupField(t, slideID, key)
	if err != nil {
		return err
	}
	if !field.Type.IsList() {
		return fmt.Errorf("%w: %s.%s is %s", ErrFieldType, slideID, key, field.Type)
	}
	return nil
}

// SetField replaces one value. Bullets fields take lists, every other type text.
func (s *SessionService) SetField(ctx context.Context, id uuid.UUID, slideID, key string, v models.Value) (*SessionView, error) {
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		field, err := lookupField(snap.Template, slideID, key)
		if err != nil {
			return err
		}
		if field.Type.IsList() != v.IsList() {
			return fmt.Errorf("%w: %s.%s is %s", ErrFieldType, slideID, key, field.Type)
		}
		snap.Content = content.SetField(snap.Content, slideID, key, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// SetImage stores an image data URI in an image field.
func (s *SessionService) SetImage(ctx context.Context, id uuid.UUID, slideID, key, dataURL string) (*SessionView, error) {
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		field, err := lookupField(snap.Template, slideID, key)
		if err != nil {
			return err
		}
		if field.Type != models.FieldImage {
			return fmt.Errorf("%w: %s.%s is %s", ErrFieldType, slideID, key, field.Type)
		}
		snap.Content = content.SetField(snap.Content, slideID, key, models.Text(dataURL))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *SessionService) AddBullet(ctx context.Context, id uuid.UUID, slideID, key string) (*SessionView, error) {
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		if err := requireList(snap.Template, slideID, key); err != nil {
			return err
		}
		snap.Content = content.AddBullet(snap.Content, slideID, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *SessionService) RemoveBullet(ctx context.Context, id uuid.UUID, slideID, key string, index int) (*SessionView, error) {
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		if err := requireList(snap.Template, slideID, key); err != nil {
			return err
		}
		c, err := content.RemoveBullet(snap.Content, slideID, key, index)
		if err != nil {
			return err
		}
		snap.Content = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *SessionService) SetBullet(ctx context.Context, id uuid.UUID, slideID, key string, index int, value string) (*SessionView, error) {
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		if err := requireList(snap.Template, slideID, key); err != nil {
			return err
		}
		c, err := content.SetBullet(snap.Content, slideID, key, index, value)
		if err != nil {
			return err
		}
		snap.Content = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// SetFirstSlideImage sets the global first slide image. An empty dataURL restores
// the default image.
func (s *SessionService) SetFirstSlideImage(ctx context.Context, id uuid.UUID, dataURL string) (*SessionView, error) {
	if dataURL == "" {
		dataURL = models.DefaultFirstSlideImage
	}
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		snap.GlobalFirstSlide.ImageDataURL = dataURL
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *SessionService) SetFirstSlideEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*SessionView, error) {
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		snap.GlobalFirstSlide.Enabled = enabled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// AttachSourceFile records an uploaded source file. A previously attached file is
// removed from storage once the session is saved.
func (s *SessionService) AttachSourceFile(ctx context.Context, id uuid.UUID, meta models.SourceFile) (*SessionView, error) {
	var previous *models.SourceFile
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		previous = snap.SourceFile
		m := meta
		snap.SourceFile = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous != nil && previous.URL != meta.URL {
		s.removeFile(previous)
	}
	return s.view(sess), nil
}

func (s *SessionService) RemoveSourceFile(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	var previous *models.SourceFile
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		previous = snap.SourceFile
		snap.SourceFile = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.removeFile(previous)
	return s.view(sess), nil
}

func (s *SessionService) removeFile(f *models.SourceFile) {
	if f == nil || f.URL == "" || s.Files == nil {
		return
	}
	if err := s.Files.Remove(f.URL); err != nil {
		log.Printf("session: remove source file %s: %v", f.URL, err)
	}
}

// Reset puts the session back into the fresh state.
func (s *SessionService) Reset(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	var previous *models.SourceFile
	sess, err := s.update(ctx, id, func(snap *models.Snapshot) error {
		previous = snap.SourceFile
		*snap = s.fresh()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.removeFile(previous)
	return s.view(sess), nil
}

func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	s.removeFile(sess.Snapshot.SourceFile)
	return nil
}

// Generate validates the session, builds its deck and hands it to deliver. The
// export stays in flight until deliver returns, and while it is in flight further
// requests for the same session fail with ErrGenerationInProgress.
func (s *SessionService) Generate(ctx context.Context, id uuid.UUID, deliver func(*Generated) error) error {
	if !s.guard.TryLock(id) {
		return ErrGenerationInProgress
	}
	defer s.guard.Unlock(id)

	sess, err := s.read(ctx, id)
	if err != nil {
		return err
	}
	snap := sess.Snapshot

	if errs := validation.Validate(snap.Template, snap.Content); len(errs) > 0 {
		return &ValidationFailure{Errors: errs}
	}

	first := snap.GlobalFirstSlide
	doc, err := s.Generator.Generate(ctx, snap.Template, snap.Content, s.Theme, &first)
	if err != nil {
		log.Printf("session: generate %s failed: %v", id, err)
		return err
	}
	data, err := doc.Bytes()
	if err != nil {
		log.Printf("session: write deck %s failed: %v", id, err)
		return err
	}
	return deliver(&Generated{
		Document: doc,
		Data:     data,
		FileName: generator.FileName(snap.Template, snap.SourceFile),
	})
}

// WaitGenerations blocks until in-flight exports finish or ctx is done.
func (s *SessionService) WaitGenerations(ctx context.Context) {
	s.guard.WaitAll(ctx)
}
