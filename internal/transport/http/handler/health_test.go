package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docsort/internal/bootstrap"
	"docsort/internal/config"
)

func newHealthRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(app)
	router := gin.New()
	router.GET("/", h.Hello)
	router.GET("/healthz", h.Check)
	return router
}

type fileClassifier struct {
	stubClassifier
	path string
}

func (f *fileClassifier) ModelPath() string { return f.path }

func testApp(classifierLoaded bool) *bootstrap.App {
	app := &bootstrap.App{
		Config: &config.Config{
			App: config.AppConfig{Name: "docsort", Env: "test"},
		},
		StartedAt: time.Now(),
	}
	if classifierLoaded {
		app.Classifier = &stubClassifier{}
	}
	return app
}

func TestHello(t *testing.T) {
	router := newHealthRouter(testApp(true))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["message"] != "Hello, World!" || body["app"] != "docsort" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		app        *bootstrap.App
		wantStatus int
	}{
		{name: "model loaded, backends disabled", app: testApp(true), wantStatus: http.StatusOK},
		{name: "model missing", app: testApp(false), wantStatus: http.StatusServiceUnavailable},
		{name: "redis enabled but not connected", app: func() *bootstrap.App {
			app := testApp(true)
			app.Config.Redis.Enabled = true
			return app
		}(), wantStatus: http.StatusServiceUnavailable},
		{name: "rabbitmq enabled but not connected", app: func() *bootstrap.App {
			app := testApp(true)
			app.Config.RabbitMQ.Enabled = true
			return app
		}(), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newHealthRouter(tt.app)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if resp.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.Code, tt.wantStatus, resp.Body.String())
			}

			var body struct {
				Dependencies map[string]dependencyStatus `json:"dependencies"`
			}
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, dep := range []string{"model", "redis", "rabbitmq"} {
				if _, ok := body.Dependencies[dep]; !ok {
					t.Errorf("missing dependency %q", dep)
				}
			}
		})
	}
}

func TestHealthCheckReportsModelPath(t *testing.T) {
	app := testApp(true)
	app.Classifier = &fileClassifier{path: "models/document_classifier.onnx"}
	router := newHealthRouter(app)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var body struct {
		Dependencies map[string]dependencyStatus `json:"dependencies"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := body.Dependencies["model"].Path; got != "models/document_classifier.onnx" {
		t.Fatalf("model path = %q", got)
	}
}
