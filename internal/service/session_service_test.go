package service_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"deck-backend/internal/assets"
	"deck-backend/internal/content"
	"deck-backend/internal/generator"
	"deck-backend/internal/models"
	"deck-backend/internal/schema"
	"deck-backend/internal/service"
	"deck-backend/internal/storage"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func newService(t *testing.T) (*service.SessionService, *storage.SQLStore) {
	t.Helper()
	store, err := storage.OpenSQL(context.Background(), storage.SQLite, filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gen := generator.New(generator.NewResolver(assets.FS, 5*time.Second))
	return service.NewSessionService(store, schema.NewCatalog(true, ""), gen, nil), store
}

func TestCreate_FreshState(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	snap := sess.Snapshot
	if snap.Template.ID != schema.DefaultTemplateID {
		t.Errorf("template = %q", snap.Template.ID)
	}
	if !reflect.DeepEqual(snap.Content, content.Empty(snap.Template)) {
		t.Error("content is not the empty content of the template")
	}
	if !snap.GlobalFirstSlide.Enabled || !snap.GlobalFirstSlide.IsDefault() {
		t.Errorf("first slide = %+v", snap.GlobalFirstSlide)
	}

	view, err := svc.Get(ctx, sess.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	// Every slide title of the pitch deck is required.
	if len(view.Errors) != 5 {
		t.Errorf("validation errors = %d", len(view.Errors))
	}
}

func TestGet_Unknown(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSelectTemplate_ResetsContent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	ids := []string{schema.DefaultTemplateID, "demo_report"}

	rapid.Check(t, func(rt *rapid.T) {
		sess, err := svc.Create(ctx)
		if err != nil {
			rt.Fatal(err)
		}
		id := sess.SessionID

		edits := rapid.IntRange(0, 4).Draw(rt, "edits")
		for i := 0; i < edits; i++ {
			text := rapid.StringMatching(`[a-z ]{0,10}`).Draw(rt, "text")
			if _, err := svc.SetField(ctx, id, "s1", "title", models.Text(text)); err != nil {
				rt.Fatal(err)
			}
		}

		target := rapid.SampledFrom(ids).Draw(rt, "template")
		view, err := svc.SelectTemplate(ctx, id, target)
		if err != nil {
			rt.Fatal(err)
		}
		snap := view.Session.Snapshot
		if snap.Template.ID != target {
			rt.Fatalf("template = %q, want %q", snap.Template.ID, target)
		}
		if !reflect.DeepEqual(snap.Content, content.Empty(snap.Template)) {
			rt.Fatalf("content was not reset: %+v", snap.Content)
		}
	})
}

func TestSelectTemplate_Unknown(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	if _, err := svc.SelectTemplate(ctx, sess.SessionID, "nope"); !errors.Is(err, service.ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestSetField_Checks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	id := sess.SessionID

	if _, err := svc.SetField(ctx, id, "s9", "title", models.Text("x")); !errors.Is(err, service.ErrUnknownField) {
		t.Errorf("unknown slide: %v", err)
	}
	if _, err := svc.SetField(ctx, id, "s1", "nope", models.Text("x")); !errors.Is(err, service.ErrUnknownField) {
		t.Errorf("unknown key: %v", err)
	}
	if _, err := svc.SetField(ctx, id, "s2", "bullets", models.Text("x")); !errors.Is(err, service.ErrFieldType) {
		t.Errorf("text into bullets: %v", err)
	}
	if _, err := svc.SetField(ctx, id, "s1", "title", models.List("x")); !errors.Is(err, service.ErrFieldType) {
		t.Errorf("list into text: %v", err)
	}
	if _, err := svc.SetImage(ctx, id, "s1", "title", "data:image/png;base64,AA=="); !errors.Is(err, service.ErrFieldType) {
		t.Errorf("image into text: %v", err)
	}
	if _, err := svc.AddBullet(ctx, id, "s1", "title"); !errors.Is(err, service.ErrFieldType) {
		t.Errorf("add bullet to text: %v", err)
	}
	if _, err := svc.RemoveBullet(ctx, id, "s2", "bullets", 4); !errors.Is(err, content.ErrBulletIndex) {
		t.Errorf("remove out of range: %v", err)
	}

	view, err := svc.SetField(ctx, id, "s1", "title", models.Text("Acme"))
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Version != 2 {
		t.Errorf("version after one save = %d", view.Session.Version)
	}
	if len(view.Errors) != 4 {
		t.Errorf("validation errors = %d", len(view.Errors))
	}
}

func TestBullets(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	id := sess.SessionID

	if _, err := svc.AddBullet(ctx, id, "s2", "bullets"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetBullet(ctx, id, "s2", "bullets", 1, "second"); err != nil {
		t.Fatal(err)
	}
	view, err := svc.RemoveBullet(ctx, id, "s2", "bullets", 0)
	if err != nil {
		t.Fatal(err)
	}
	got := content.ReadBullets(view.Session.Snapshot.Content, "s2", "bullets")
	if !reflect.DeepEqual(got, []string{"second"}) {
		t.Errorf("bullets = %q", got)
	}
}

func TestFirstSlide(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	id := sess.SessionID

	view, err := svc.SetFirstSlideImage(ctx, id, "data:image/png;base64,AA==")
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Snapshot.GlobalFirstSlide.IsDefault() {
		t.Error("image was not replaced")
	}
	view, err = svc.SetFirstSlideImage(ctx, id, "")
	if err != nil {
		t.Fatal(err)
	}
	if !view.Session.Snapshot.GlobalFirstSlide.IsDefault() {
		t.Error("clearing should restore the default image")
	}
	view, err = svc.SetFirstSlideEnabled(ctx, id, false)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Snapshot.GlobalFirstSlide.Visible() {
		t.Error("disabled slide is visible")
	}
}

func TestImportExportSchema(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	id := sess.SessionID

	before, _ := svc.Get(ctx, id)
	var pe *schema.ParseError
	if _, err := svc.ImportSchema(ctx, id, "bad.json", []byte(`{"slides": [{"layout": "zigzag"}]}`)); !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	after, _ := svc.Get(ctx, id)
	if after.Session.Version != before.Session.Version {
		t.Error("a failed import must not save")
	}

	yaml := "id: weekly\nname: Weekly Sync\nslides:\n  - id: w1\n    layout: title+content\n    fields:\n      - key: summary\n        type: multiline\n"
	view, err := svc.ImportSchema(ctx, id, "weekly.yaml", []byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Snapshot.Template.ID != "weekly" {
		t.Errorf("template = %q", view.Session.Snapshot.Template.ID)
	}

	name, text, err := svc.ExportSchema(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Weekly_Sync.json" {
		t.Errorf("file name = %q", name)
	}
	got, err := schema.Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, view.Session.Snapshot.Template) {
		t.Error("exported schema does not parse back to the active template")
	}
}

func TestGenerate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	id := sess.SessionID

	err := svc.Generate(ctx, id, func(*service.Generated) error {
		t.Fatal("an invalid session must not be delivered")
		return nil
	})
	if !errors.Is(err, service.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	var vf *service.ValidationFailure
	if !errors.As(err, &vf) || len(vf.Errors) != 5 {
		t.Fatalf("failure = %+v", vf)
	}

	for _, slideID := range []string{"s1", "s2", "s3", "s4", "s5"} {
		if _, err := svc.SetField(ctx, id, slideID, "title", models.Text("Title "+slideID)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.AttachSourceFile(ctx, id, models.SourceFile{Name: "Brand.pptx", Size: 10}); err != nil {
		t.Fatal(err)
	}

	var out *service.Generated
	if err := svc.Generate(ctx, id, func(g *service.Generated) error {
		out = g
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out.Data, []byte("PK")) {
		t.Error("Data is not a .pptx")
	}
	if out.FileName != "Brand.pptx" {
		t.Errorf("file name = %q", out.FileName)
	}
	if out.Document.SlideCount() != 6 {
		t.Errorf("slide count = %d", out.Document.SlideCount())
	}
}

func TestGenerate_SecondExportWhileDelivering(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	id := readySession(t, svc)

	delivered := 0
	var inner error
	err := svc.Generate(ctx, id, func(*service.Generated) error {
		delivered++
		inner = svc.Generate(ctx, id, func(*service.Generated) error {
			delivered++
			return nil
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, service.ErrGenerationInProgress) {
		t.Errorf("export during delivery = %v, want ErrGenerationInProgress", inner)
	}
	if delivered != 1 {
		t.Errorf("delivered %d decks, want 1", delivered)
	}

	// released once delivery returns
	if err := svc.Generate(ctx, id, func(*service.Generated) error { return nil }); err != nil {
		t.Errorf("export after delivery = %v", err)
	}
}

func TestGenerate_DeliveryError(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	id := readySession(t, svc)

	errClosed := errors.New("client went away")
	if err := svc.Generate(ctx, id, func(*service.Generated) error { return errClosed }); !errors.Is(err, errClosed) {
		t.Errorf("Generate = %v", err)
	}
	if err := svc.Generate(ctx, id, func(*service.Generated) error { return nil }); err != nil {
		t.Errorf("guard not released after a failed delivery: %v", err)
	}
}

// readySession creates a session on the default template with every required
// field filled.
func readySession(t *testing.T, svc *service.SessionService) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, slideID := range []string{"s1", "s2", "s3", "s4", "s5"} {
		if _, err := svc.SetField(ctx, sess.SessionID, slideID, "title", models.Text("Title "+slideID)); err != nil {
			t.Fatal(err)
		}
	}
	return sess.SessionID
}

func TestResetAndDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	id := sess.SessionID

	if _, err := svc.SelectTemplate(ctx, id, "demo_report"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AttachSourceFile(ctx, id, models.SourceFile{Name: "a.pptx"}); err != nil {
		t.Fatal(err)
	}
	view, err := svc.Reset(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	snap := view.Session.Snapshot
	if snap.Template.ID != schema.DefaultTemplateID || snap.SourceFile != nil {
		t.Errorf("after reset = %s / %+v", snap.Template.ID, snap.SourceFile)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestLoad_CorruptSnapshotStartsOver(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	rec, err := store.Create(ctx, []byte(`{"v": 99}`))
	if err != nil {
		t.Fatal(err)
	}
	view, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Snapshot.Template.ID != schema.DefaultTemplateID {
		t.Errorf("template = %q", view.Session.Snapshot.Template.ID)
	}

	stored, err := store.Load(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if models.Migrate(stored.Data) == nil {
		t.Error("the fresh state was not written back")
	}
}

func TestLoad_CorruptSnapshotRepairDoesNotLoseEdits(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		rec, err := store.Create(ctx, []byte(`not json`))
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Get(ctx, rec.ID); err != nil {
					t.Error(err)
				}
			}()
		}
		if _, err := svc.SetField(ctx, rec.ID, "s1", "title", models.Text("Kept")); err != nil {
			t.Fatal(err)
		}
		wg.Wait()

		view, err := svc.Get(ctx, rec.ID)
		if err != nil {
			t.Fatal(err)
		}
		if v, _ := view.Session.Snapshot.Content.Get("s1", "title"); v.String() != "Kept" {
			t.Fatalf("round %d: title = %q, edit was overwritten by a repair", round, v.String())
		}
	}
}

func TestGenerationGuard(t *testing.T) {
	var g service.ExportedGenerationGuard
	id := uuid.New()

	if !g.TryLock(id) {
		t.Fatal("first TryLock failed")
	}
	if g.TryLock(id) {
		t.Fatal("second TryLock should fail while the first runs")
	}
	if !g.TryLock(uuid.New()) {
		t.Fatal("another session should not be blocked")
	}
	if !g.Running(id) {
		t.Error("Running = false")
	}
	g.Unlock(id)
	if g.Running(id) || !g.TryLock(id) {
		t.Error("guard not released")
	}
}

func TestGenerationGuard_WaitAll(t *testing.T) {
	var g service.ExportedGenerationGuard
	g.WaitAll(context.Background()) // nothing running

	a, b := uuid.New(), uuid.New()
	g.TryLock(a)
	g.TryLock(b)

	done := make(chan struct{})
	go func() {
		g.WaitAll(context.Background())
		close(done)
	}()

	g.Unlock(a)
	select {
	case <-done:
		t.Fatal("WaitAll returned while an export still runs")
	case <-time.After(50 * time.Millisecond):
	}

	g.Unlock(b)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitAll did not return after the last export")
	}

	g.TryLock(a)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	g.WaitAll(ctx) // returns on ctx
	g.Unlock(a)
	g.Unlock(a) // second unlock is a no-op
}

func TestPruner(t *testing.T) {
	_, store := newService(t)
	ctx := context.Background()
	if _, err := store.Create(ctx, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	p := service.NewPruner(store, time.Hour)
	n, err := p.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("pruned %d fresh sessions", n)
	}

	if err := p.Start(ctx, "not a schedule"); err == nil {
		t.Error("expected an invalid schedule error")
	}
	if err := p.Start(ctx, "@daily"); err != nil {
		t.Fatal(err)
	}
	p.Stop()

	expired := service.NewPruner(store, -time.Hour)
	if n, err := expired.RunOnce(ctx); err != nil || n != 1 {
		t.Errorf("expired prune = %d, %v", n, err)
	}
}
