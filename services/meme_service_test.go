package services

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/models"
)

func TestScenarioVoteVisibleToVoterOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	created := env.createMeme(t, alice, "cat.png", "funny", "animals")
	if _, err := env.votes.ToggleVote(ctx, bob, created.ID); err != nil {
		t.Fatal(err)
	}

	asBob, err := env.memes.GetMemeByID(ctx, bob, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if asBob.Title != "cat.png" || asBob.VoteCount != 1 || !asBob.UserVoted {
		t.Errorf("bob's view = %+v", asBob)
	}
	if len(asBob.Voters) != 1 || asBob.Voters[0].ID != bob.UserID || asBob.Voters[0].Username != "bob" {
		t.Errorf("voters = %+v", asBob.Voters)
	}
	if asBob.Voters[0].ProfilePicture != DefaultAvatar {
		t.Errorf("voter without picture should get %s, got %s", DefaultAvatar, asBob.Voters[0].ProfilePicture)
	}
	if len(asBob.Categories) != 2 || asBob.Categories[0].Name != "animals" || asBob.Categories[1].Name != "funny" {
		t.Errorf("categories = %+v", asBob.Categories)
	}
	if asBob.User.Username != "alice" || asBob.User.ID != alice.UserID {
		t.Errorf("owner = %+v", asBob.User)
	}

	anonymous, err := env.memes.GetMemeByID(ctx, auth.Anonymous, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if anonymous.VoteCount != 1 || anonymous.UserVoted {
		t.Errorf("anonymous view = %+v", anonymous)
	}
}

func TestMemeOwnerPlaceholderWhenOwnerGone(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")

	if err := env.db.UserRepo().Delete(alice.UserID); err != nil {
		t.Fatal(err)
	}

	view, err := env.memes.GetMemeByID(context.Background(), auth.Anonymous, meme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.User != (UserSummary{Username: AnonymousUsername}) {
		t.Errorf("owner = %+v, want anonymous placeholder", view.User)
	}
}

func TestGetMemeByIDIsStable(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat", "b", "a")
	env.votes.ToggleVote(context.Background(), alice, meme.ID)

	first, err := env.memes.GetMemeByID(context.Background(), alice, meme.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.memes.GetMemeByID(context.Background(), alice, meme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("views differ:\n%+v\n%+v", first, second)
	}

	if _, err := env.memes.GetMemeByID(context.Background(), alice, meme.ID+1); !errs.IsNotFound(err) {
		t.Errorf("missing meme: %v", err)
	}
}

func TestCreateMemePublishesAndNormalizesCategories(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")

	view := env.createMeme(t, alice, "  cat  ", " funny", "funny", "", "animals")
	if view.Title != "cat" {
		t.Errorf("title = %q", view.Title)
	}
	if len(view.Categories) != 2 {
		t.Errorf("categories = %+v", view.Categories)
	}
	if n := count(t, env.db, &models.Category{}); n != 2 {
		t.Errorf("stored %d categories", n)
	}

	created := env.publisher.ofType(events.NewMeme)
	if len(created) != 1 || created[0].topic != events.MemesTopic {
		t.Fatalf("events = %+v", created)
	}
	if created[0].event.Payload.(MemeView).ID != view.ID {
		t.Error("event payload is not the created meme")
	}
}

func isBadRequest(err error) bool {
	return errs.StatusCode(err) == http.StatusBadRequest
}

func TestCreateMemeRejections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	ctx := context.Background()
	image := Upload{Filename: "a.png", Data: pngBytes(t, 2, 2)}

	tests := []struct {
		name     string
		identity auth.Identity
		input    MemeInput
		upload   Upload
		check    func(error) bool
	}{
		{"anonymous", auth.Anonymous, MemeInput{Title: "x"}, image, errs.IsUnauthorized},
		{"blank title", alice, MemeInput{Title: "   "}, image, isBadRequest},
		{"long title", alice, MemeInput{Title: strings.Repeat("a", 101)}, image, isBadRequest},
		{"not an image", alice, MemeInput{Title: "x"}, Upload{Filename: "a.png", Data: []byte("plain text")}, errs.IsUnsupportedMediaTypeError},
		{"empty file", alice, MemeInput{Title: "x"}, Upload{Filename: "a.png"}, errs.IsImageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.memes.CreateMeme(ctx, tt.identity, tt.input, tt.upload)
			if err == nil || !tt.check(err) {
				t.Errorf("err = %v", err)
			}
		})
	}

	if n := count(t, env.db, &models.Meme{}); n != 0 {
		t.Errorf("rejected creates left %d memes", n)
	}
	if n := count(t, env.db, &models.ImageBlob{}); n != 0 {
		t.Errorf("rejected creates left %d images", n)
	}
}

func TestBatchCreateTitlesFromFilenames(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")

	uploads := []Upload{
		{Filename: "cat.png", Data: pngBytes(t, 2, 2)},
		{Filename: "dog.final.jpeg", Data: pngBytes(t, 2, 2)},
		{Filename: "noext", Data: pngBytes(t, 2, 2)},
	}
	views, err := env.memes.CreateMemes(context.Background(), alice, uploads, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"cat", "dog.final", "noext"}
	if len(views) != 3 {
		t.Fatalf("created %d memes", len(views))
	}
	for i, v := range views {
		if v.Title != want[i] || len(v.Categories) != 0 {
			t.Errorf("meme %d = %q %v", i, v.Title, v.Categories)
		}
	}
	if n := len(env.publisher.ofType(events.NewMeme)); n != 3 {
		t.Errorf("published %d NEW_MEME events, want 3", n)
	}
}

func TestBatchCreateCommitsPerItem(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")

	uploads := []Upload{
		{Filename: "one.png", Data: pngBytes(t, 2, 2)},
		{Filename: "two.txt", Data: []byte("not an image")},
		{Filename: "three.png", Data: pngBytes(t, 2, 2)},
	}
	views, err := env.memes.CreateMemes(context.Background(), alice, uploads, []string{"batch"})
	if !errs.IsUnsupportedMediaTypeError(err) {
		t.Fatalf("err = %v", err)
	}
	if len(views) != 1 || views[0].Title != "one" {
		t.Errorf("views = %+v", views)
	}
	if n := count(t, env.db, &models.Meme{}); n != 1 {
		t.Errorf("stored %d memes, want the one before the failure", n)
	}
	if n := len(env.publisher.ofType(events.NewMeme)); n != 1 {
		t.Errorf("published %d events", n)
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := map[string]string{
		"cat.png":             "cat",
		"archive.tar.gz":      "archive.tar",
		"dir/sub/doge.jpg":    "doge",
		`C:\memes\pepe.gif`:   "pepe",
		".hidden":             ".hidden",
		".png":                ".png",
		"":                    "Untitled",
		"  spaced name .webp": "spaced name",
	}
	for in, want := range tests {
		if got := TitleFromFilename(in); got != want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetMemesFiltersAndPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	env.createMeme(t, alice, "Grumpy Cat", "funny")
	env.createMeme(t, bob, "Doge", "animals")
	env.createMeme(t, bob, "Cat nap", "animals")

	page, err := env.memes.GetMemes(ctx, auth.Anonymous, MemeFilter{Username: "bob", Title: "cat"}, PageRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != 1 || page.Content[0].Title != "Cat nap" {
		t.Errorf("bob+cat = %+v", page)
	}

	page, err = env.memes.GetMemes(ctx, auth.Anonymous, MemeFilter{Username: "nobody"}, PageRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if !page.Empty || page.TotalElements != 0 || page.Content == nil {
		t.Errorf("unknown user = %+v", page)
	}

	page, err = env.memes.GetMemes(ctx, auth.Anonymous, MemeFilter{Categories: []string{"ghost"}}, PageRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != 0 {
		t.Errorf("unknown category matched %d memes", page.TotalElements)
	}
	if n := count(t, env.db, &models.Category{}); n != 2 {
		t.Errorf("filtering created categories: %d stored", n)
	}

	req, _ := NewPageRequest(1, 2, Sort{Field: "id"})
	page, err = env.memes.GetMemes(ctx, auth.Anonymous, MemeFilter{}, req)
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != 3 || page.TotalPages != 2 || len(page.Content) != 1 || page.Content[0].Title != "Cat nap" {
		t.Errorf("second page = %+v", page)
	}
	if page.First || !page.Last || page.Number != 1 || page.Size != 2 {
		t.Errorf("page flags = %+v", page)
	}

	page, _ = env.memes.GetMemes(ctx, auth.Anonymous, MemeFilter{}, PageRequest{})
	if page.Content[0].Title != "Cat nap" {
		t.Errorf("default sort should be newest first, got %q", page.Content[0].Title)
	}
}
