package services

import (
	"context"
	"strings"
	"testing"

	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/models"
)

func TestCommentAppearsInRecentAndExactlyOnePage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")

	var ids []uint
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		c, err := env.comments.AddComment(ctx, alice, meme.ID, text)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, c.ID)
	}

	recent, err := env.comments.RecentComments(ctx, meme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 5 || recent[0].Text != "five" || recent[4].Text != "one" {
		t.Errorf("recent = %+v", recent)
	}

	seen := map[uint]int{}
	for page := 0; page < 3; page++ {
		p, err := env.comments.ListComments(ctx, meme.ID, PageRequest{Page: page, Size: 2})
		if err != nil {
			t.Fatal(err)
		}
		if p.TotalElements != 5 || p.TotalPages != 3 {
			t.Errorf("page %d totals = %d/%d", page, p.TotalElements, p.TotalPages)
		}
		for _, c := range p.Content {
			seen[c.ID]++
		}
	}
	for _, id := range ids {
		if seen[id] != 1 {
			t.Errorf("comment %d appeared on %d pages", id, seen[id])
		}
	}

	first, _ := env.comments.ListComments(ctx, meme.ID, PageRequest{Size: 2})
	if first.Content[0].Text != "one" || first.Content[1].Text != "two" {
		t.Errorf("pages should be in posting order, got %+v", first.Content)
	}
}

func TestAddCommentView(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")

	view, err := env.comments.AddComment(context.Background(), alice, meme.ID, "nice")
	if err != nil {
		t.Fatal(err)
	}
	if view.Text != "nice" || view.MemeID != meme.ID || view.User.Username != "alice" || view.CreatedAt.IsZero() {
		t.Errorf("view = %+v", view)
	}
	if view.User.Email != "" {
		t.Error("comment author summary should not expose the email")
	}

	published := env.publisher.ofType(events.NewComment)
	if len(published) != 1 || published[0].topic != events.CommentsTopic(meme.ID) {
		t.Fatalf("events = %+v", published)
	}
	if published[0].event.Payload.(CommentView) != view {
		t.Error("event payload differs from the returned view")
	}
}

func TestCommentLengthBoundary(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")
	ctx := context.Background()

	if _, err := env.comments.AddComment(ctx, alice, meme.ID, strings.Repeat("é", 500)); err != nil {
		t.Errorf("500 characters rejected: %v", err)
	}
	if _, err := env.comments.AddComment(ctx, alice, meme.ID, strings.Repeat("a", 501)); !errs.IsInvalidFieldError(err) {
		t.Errorf("501 characters: %v", err)
	}
	if _, err := env.comments.AddComment(ctx, alice, meme.ID, " \n\t"); err == nil {
		t.Error("blank comment accepted")
	}

	if n := count(t, env.db, &models.Comment{}); n != 1 {
		t.Errorf("stored %d comments, want 1", n)
	}
}

func TestCommentFailures(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	ctx := context.Background()

	if _, err := env.comments.AddComment(ctx, auth.Anonymous, 1, "hi"); !errs.IsUnauthorized(err) {
		t.Errorf("anonymous: %v", err)
	}
	if _, err := env.comments.AddComment(ctx, alice, 404, "hi"); !errs.IsNotFound(err) {
		t.Errorf("missing meme: %v", err)
	}
	if _, err := env.comments.ListComments(ctx, 404, PageRequest{}); !errs.IsNotFound(err) {
		t.Errorf("list on missing meme: %v", err)
	}
	if _, err := env.comments.RecentComments(ctx, 404); !errs.IsNotFound(err) {
		t.Errorf("recent on missing meme: %v", err)
	}
}
