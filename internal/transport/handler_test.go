package transport

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"screenvec/internal/config"
	"screenvec/internal/detector"
	"screenvec/internal/shapes"
	"screenvec/internal/state"
	"screenvec/internal/storage"
	"screenvec/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	handler http.Handler
	store   *state.Store
	paths   config.DevicePaths
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Root:               t.TempDir(),
		Device:             "bench-01",
		MaxRequestBodySize: 1 << 20,
	}
	paths := cfg.Paths()
	if err := os.MkdirAll(paths.ImagesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	store := state.NewStore(paths.StatePath)
	wf := workflow.New(
		paths,
		storage.NewLocalSource(),
		detector.New(detector.DefaultConfig()),
		detector.NewQualifier(detector.DefaultQualifierConfig()),
		store,
		shapes.NewLibrary(paths.ShapesPath),
		workflow.Options{MoveRejected: true},
	)
	return &testServer{handler: NewHandler(store, wf, cfg), store: store, paths: paths}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func writeScreenPage(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			img.SetGray(x, y, color.Gray{Y: 10})
		}
	}
	for y := 10; y < 150; y++ {
		for x := 20; x < 320; x++ {
			img.SetGray(x, y, color.Gray{Y: 160})
		}
	}
	for _, lineY := range []int{55, 67, 79, 91, 103} {
		for y := lineY; y < lineY+3; y++ {
			for x := 100; x < 280; x++ {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListItemsStatusAndOrder(t *testing.T) {
	s := newTestServer(t)

	ok := state.NewItemState("incoming/a.png")
	ok.Validation.IsQualifying = true
	if _, err := s.store.Set("a", ok); err != nil {
		t.Fatal(err)
	}
	flagged := state.NewItemState("rejected/b.png")
	flagged.Flags = map[string]string{state.FlagManualStatus: state.ManualStatusNeedsReview}
	if _, err := s.store.Set("b", flagged); err != nil {
		t.Fatal(err)
	}

	w := s.do(t, http.MethodGet, "/api/items", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Items []ItemSummary `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	// b was written last, so it sorts first.
	if resp.Items[0].ID != "b" || resp.Items[0].Status != state.ManualStatusNeedsReview {
		t.Errorf("first item = %+v, want b with manual needs_review", resp.Items[0])
	}
	if resp.Items[1].ID != "a" || resp.Items[1].Status != state.ManualStatusOK {
		t.Errorf("second item = %+v, want a with ok", resp.Items[1])
	}
	if resp.Items[1].SVGURL != "/api/public/screens/a.svg" {
		t.Errorf("svg url = %q", resp.Items[1].SVGURL)
	}
}

func TestGetItem(t *testing.T) {
	s := newTestServer(t)
	item := state.NewItemState("incoming/a.png")
	item.Notes = "check the bezel"
	if _, err := s.store.Set("a", item); err != nil {
		t.Fatal(err)
	}

	w := s.do(t, http.MethodGet, "/api/item/a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var detail ItemDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.State.Notes != "check the bezel" {
		t.Errorf("notes = %q", detail.State.Notes)
	}

	if w := s.do(t, http.MethodGet, "/api/item/ghost", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing item status = %d, want 404", w.Code)
	}
}

func TestUpdateItemState(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.store.Set("a", state.NewItemState("incoming/a.png")); err != nil {
		t.Fatal(err)
	}

	body := `{"threshold": 140, "flags": {"manual_status": "rejected"}, "notes": "glare"}`
	w := s.do(t, http.MethodPost, "/api/item/a/state", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var detail ItemDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Status != state.ManualStatusRejected {
		t.Errorf("status = %q, want manual rejected", detail.Status)
	}
	if detail.State.NormalizeParams.OtsuThreshold == nil || *detail.State.NormalizeParams.OtsuThreshold != 140 {
		t.Errorf("threshold = %v", detail.State.NormalizeParams.OtsuThreshold)
	}
	if detail.State.Notes != "glare" {
		t.Errorf("notes = %q", detail.State.Notes)
	}

	if w := s.do(t, http.MethodPost, "/api/item/a/state", `{bad json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/item/ghost/state", `{}`); w.Code != http.StatusNotFound {
		t.Errorf("missing item status = %d, want 404", w.Code)
	}
}

func TestRerunEndpoint(t *testing.T) {
	s := newTestServer(t)
	writeScreenPage(t, filepath.Join(s.paths.IncomingDir, "boot.png"))
	if _, err := s.store.Set("boot", state.NewItemState("incoming/boot.png")); err != nil {
		t.Fatal(err)
	}

	w := s.do(t, http.MethodPost, "/api/item/boot/rerun", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var detail ItemDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !detail.State.Validation.IsQualifying {
		t.Errorf("rerun must qualify, reasons = %v", detail.State.Validation.ReasonCodes)
	}
	if _, err := os.Stat(s.paths.SVGPath("boot")); err != nil {
		t.Errorf("svg artifact missing: %v", err)
	}
	if _, err := os.Stat(s.paths.ManifestPath); err != nil {
		t.Errorf("manifest missing after rerun: %v", err)
	}

	if w := s.do(t, http.MethodPost, "/api/item/ghost/rerun", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing item status = %d, want 404", w.Code)
	}
}

func TestPublicFileServing(t *testing.T) {
	s := newTestServer(t)
	dir := filepath.Join(s.paths.ScreensDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := s.do(t, http.MethodGet, "/api/public/screens/a.svg", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "<svg/>" {
		t.Errorf("body = %q", w.Body.String())
	}
}
