package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/database"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/models"
	"github.com/memevote/backend/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type published struct {
	topic string
	event events.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, event: event})
	return nil
}

func (p *recordingPublisher) ofType(typ events.Type) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []published
	for _, e := range p.events {
		if e.event.Type == typ {
			matched = append(matched, e)
		}
	}
	return matched
}

type testEnv struct {
	db         database.Database
	publisher  *recordingPublisher
	images     *ImageService
	auth       *AuthService
	users      *UserService
	categories *CategoryService
	memes      *MemeService
	votes      *VoteService
	comments   *CommentService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, nil)
}

func newTestEnvWithStore(t *testing.T, payloads storage.PayloadStore) *testEnv {
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

	db := database.New(gdb)
	publisher := &recordingPublisher{}
	images := NewImageService(db, payloads)
	return &testEnv{
		db:         db,
		publisher:  publisher,
		images:     images,
		auth:       NewAuthService(db, tokens),
		users:      NewUserService(db, images),
		categories: NewCategoryService(db),
		memes:      NewMemeService(db, images, publisher),
		votes:      NewVoteService(db, publisher),
		comments:   NewCommentService(db, publisher),
	}
}

func (e *testEnv) signup(t *testing.T, username string) auth.Identity {
	t.Helper()
	user, err := e.auth.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return auth.Identity{UserID: user.ID, Email: user.Email, Username: user.Username}
}

func (e *testEnv) createMeme(t *testing.T, owner auth.Identity, title string, categories ...string) MemeView {
	t.Helper()
	view, err := e.memes.CreateMeme(context.Background(), owner, MemeInput{Title: title, Categories: categories},
		Upload{Filename: "image.png", Data: pngBytes(t, 4, 4)})
	if err != nil {
		t.Fatalf("create meme %q: %v", title, err)
	}
	return view
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func count(t *testing.T, db database.Database, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.DB().Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects["objects/"+key] = data
	return "objects/" + key, nil
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
