package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/models"
	"github.com/memevote/backend/services"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testAPI struct {
	handler http.Handler
	hub     *events.Hub
	db      database.Database
}

func newTestAPI(t *testing.T, c map[string]string) *testAPI {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_fk=1"
	gdb, err := database.OpenSQLite(dsn, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if c == nil {
		c = map[string]string{}
	}
	if _, ok := c["AUTH_RATE_LIMIT_PER_MINUTE"]; !ok {
		c["AUTH_RATE_LIMIT_PER_MINUTE"] = "1000"
	}

	db := database.New(gdb)
	hub := events.NewHub()
	images := services.NewImageService(db, nil)
	svc := Services{
		Auth:       services.NewAuthService(db, tokens),
		Users:      services.NewUserService(db, images),
		Categories: services.NewCategoryService(db),
		Memes:      services.NewMemeService(db, images, hub),
		Votes:      services.NewVoteService(db, hub),
		Comments:   services.NewCommentService(db, hub),
		Images:     images,
		Hub:        hub,
	}
	return &testAPI{
		handler: newRouter(svc, withConfig(c)),
		hub:     hub,
		db:      db,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return a.do(t, method, path, token, bytes.NewReader(data), "application/json")
}

// register signs a user up and returns a bearer token for them.
func (a *testAPI) register(t *testing.T, username string) string {
	t.Helper()
	rec := a.doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup %s: %d %s", username, rec.Code, rec.Body)
	}

	rec = a.doJSON(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email":    username + "@example.com",
		"password": "password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin %s: %d %s", username, rec.Code, rec.Body)
	}
	var result services.SigninResult
	decode(t, rec, &result)
	return result.Token
}

func (a *testAPI) createMeme(t *testing.T, token, title string, categories ...string) services.MemeView {
	t.Helper()
	meta, _ := json.Marshal(map[string]any{"title": title, "categories": categories})
	body, contentType := multipartBody(t, map[string]string{"meme": string(meta)}, "file", "image.png")
	rec := a.do(t, http.MethodPost, "/api/memes", token, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("create meme: %d %s", rec.Code, rec.Body)
	}
	var view services.MemeView
	decode(t, rec, &view)
	return view
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body MessageResponse
	decode(t, rec, &body)
	return body.Message
}

// multipartBody builds a form with the given fields plus one small PNG per filename,
// all under fileField.
func multipartBody(t *testing.T, fields map[string]string, fileField string, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	for _, filename := range filenames {
		part, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(pngBytes(t, 4, 4))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
