package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deck-backend/internal/assets"
	"deck-backend/internal/generator"
	"deck-backend/internal/handler"
	"deck-backend/internal/schema"
	"deck-backend/internal/service"
	"deck-backend/internal/storage"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, _ := newServerWithUploads(t)
	return srv
}

func newServerWithUploads(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.OpenSQL(context.Background(), storage.SQLite, filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	uploads := filepath.Join(dir, "uploads")
	files, err := storage.NewLocalStorage(uploads, "http://localhost")
	if err != nil {
		t.Fatal(err)
	}
	catalog := schema.NewCatalog(true, "")
	gen := generator.New(generator.NewResolver(assets.FS, 5*time.Second))
	h := &handler.EditorHandler{
		Service: service.NewSessionService(store, catalog, gen, files),
		Catalog: catalog,
		Storage: files,
	}

	r := mux.NewRouter()
	h.Register(r.PathPrefix("/api/v1").Subrouter())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, uploads
}

type sessionResponse struct {
	Session struct {
		SessionID string `json:"session_id"`
		Version   int    `json:"version"`
		Snapshot  struct {
			Template struct {
				ID string `json:"id"`
			} `json:"template"`
		} `json:"snapshot"`
	} `json:"session"`
	ValidationErrors []struct {
		SlideID  string `json:"slide_id"`
		FieldKey string `json:"field_key"`
	} `json:"validation_errors"`
}

func do(t *testing.T, method, url, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, "POST", srv.URL+"/api/v1/sessions", "", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var got sessionResponse
	decode(t, resp, &got)
	return got.Session.SessionID
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/api/v1/sessions/" + id

	resp := do(t, "GET", base, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got sessionResponse
	decode(t, resp, &got)
	if got.Session.Snapshot.Template.ID != schema.DefaultTemplateID || len(got.ValidationErrors) != 5 {
		t.Errorf("session = %+v", got)
	}

	resp = do(t, "PUT", base+"/content/s1/title", "application/json", []byte(`{"value": "Acme"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set field status = %d", resp.StatusCode)
	}
	decode(t, resp, &got)
	if got.Session.Version != 2 || len(got.ValidationErrors) != 4 {
		t.Errorf("after edit = v%d, %d errors", got.Session.Version, len(got.ValidationErrors))
	}

	resp = do(t, "PUT", base+"/content/s2/bullets", "application/json", []byte(`{"value": "not a list"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("type mismatch status = %d", resp.StatusCode)
	}

	resp = do(t, "PUT", base+"/template", "application/json", []byte(`{"template_id": "missing"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown template status = %d", resp.StatusCode)
	}

	resp = do(t, "DELETE", base, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = do(t, "GET", base, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestNotFound(t *testing.T) {
	srv := newServer(t)
	for _, path := range []string{"/api/v1/sessions/not-a-uuid", "/api/v1/sessions/6f1c1f7e-3a0e-4c55-9d43-6f3a1a3b2c11"} {
		if resp := do(t, "GET", srv.URL+path, "", nil); resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}
	if resp := do(t, "GET", srv.URL+"/api/v1/templates/nope", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown template = %d", resp.StatusCode)
	}
}

func TestGenerate(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/api/v1/sessions/" + id

	resp := do(t, "POST", base+"/generate", "", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid generate status = %d", resp.StatusCode)
	}
	var failure struct {
		ValidationErrors []json.RawMessage `json:"validation_errors"`
	}
	decode(t, resp, &failure)
	if len(failure.ValidationErrors) != 5 {
		t.Errorf("validation errors = %d", len(failure.ValidationErrors))
	}

	if resp := do(t, "PUT", base+"/template", "application/json", []byte(`{"template_id": "demo_report"}`)); resp.StatusCode != http.StatusOK {
		t.Fatalf("select template status = %d", resp.StatusCode)
	}
	for _, slideID := range []string{"r1", "r2", "r3"} {
		body := []byte(`{"value": "Title ` + slideID + `"}`)
		if resp := do(t, "PUT", base+"/content/"+slideID+"/title", "application/json", body); resp.StatusCode != http.StatusOK {
			t.Fatalf("set %s title status = %d", slideID, resp.StatusCode)
		}
	}
	if resp := do(t, "PUT", base+"/content/r2/bullets", "application/json", []byte(`{"value": ["On track", ""]}`)); resp.StatusCode != http.StatusOK {
		t.Fatalf("set bullets status = %d", resp.StatusCode)
	}

	resp = do(t, "POST", base+"/generate", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != generator.ContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Report_Demo.pptx") {
		t.Errorf("content disposition = %q", cd)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("body is not a .pptx")
	}
}

func TestParseTemplate(t *testing.T) {
	srv := newServer(t)

	resp := do(t, "POST", srv.URL+"/api/v1/templates/parse", "application/json", []byte(`{"slides": [{"layout": "hexagon"}]}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad schema status = %d", resp.StatusCode)
	}

	yaml := "name: Quick\nslides:\n  - layout: title+bullets\n    fields:\n      - key: bullets\n        type: bullets\n"
	resp = do(t, "POST", srv.URL+"/api/v1/templates/parse?name=quick.yml", "text/plain", []byte(yaml))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("yaml schema status = %d", resp.StatusCode)
	}
	var got struct {
		Placeholders []string `json:"placeholders"`
	}
	decode(t, resp, &got)
	if len(got.Placeholders) != 3 || got.Placeholders[0] != "{{bullets_1}}" {
		t.Errorf("placeholders = %q", got.Placeholders)
	}
}

func TestImportTemplate_Multipart(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "custom.json")
	fw.Write([]byte(`{"id": "custom", "name": "Custom", "slides": [{"id": "c1", "layout": "title"}]}`))
	mw.Close()

	resp := do(t, "POST", srv.URL+"/api/v1/sessions/"+id+"/template/import", mw.FormDataContentType(), body.Bytes())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}
	var got sessionResponse
	decode(t, resp, &got)
	if got.Session.Snapshot.Template.ID != "custom" {
		t.Errorf("template = %q", got.Session.Snapshot.Template.ID)
	}
}

func TestUploadImage(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	url := srv.URL + "/api/v1/sessions/" + id + "/content/s3/image_1/image"

	upload := func(name string, data []byte) *http.Response {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, _ := mw.CreateFormFile("image", name)
		fw.Write(data)
		mw.Close()
		return do(t, "POST", url, mw.FormDataContentType(), body.Bytes())
	}

	var img bytes.Buffer
	png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if resp := upload("photo.png", img.Bytes()); resp.StatusCode != http.StatusOK {
		t.Errorf("png upload status = %d", resp.StatusCode)
	}
	if resp := upload("notes.png", []byte("plain text pretending")); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("fake png status = %d", resp.StatusCode)
	}
}

func TestUploadSource_UnknownSessionKeepsNoFile(t *testing.T) {
	srv, uploads := newServerWithUploads(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "Brand.pptx")
	fw.Write([]byte("PK not really a deck"))
	mw.Close()

	url := srv.URL + "/api/v1/sessions/" + uuid.NewString() + "/source"
	if resp := do(t, "POST", url, mw.FormDataContentType(), body.Bytes()); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	entries, err := os.ReadDir(uploads)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("upload left %d files behind", len(entries))
	}
}

func TestPreviewHTML(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/api/v1/sessions/" + id

	resp := do(t, "GET", base+"/preview.html", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("panel status = %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	// default first slide + five pitch deck slides
	if n := doc.Find(".SlideThumb").Length(); n != 6 {
		t.Errorf("thumbnails = %d", n)
	}
	href, _ := doc.Find(".SlideThumb").Eq(1).Attr("href")
	if href != "/api/v1/sessions/"+id+"/preview/1.html" {
		t.Errorf("thumbnail href = %q", href)
	}

	resp = do(t, "GET", srv.URL+href, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fullscreen status = %d", resp.StatusCode)
	}
	doc, err = goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(doc.Find(".Badge").Text()); got != "Slide 2 / 6" {
		t.Errorf("badge = %q", got)
	}
	if closeHref, _ := doc.Find(".ModalHeader a").Attr("href"); closeHref != "/api/v1/sessions/"+id+"/preview.html" {
		t.Errorf("close href = %q", closeHref)
	}
}
