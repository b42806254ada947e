package services

import (
	"context"
	"sync"
	"testing"

	"github.com/memevote/backend/auth"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/models"
)

func TestToggleVoteTwiceRestoresCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")
	meme := env.createMeme(t, alice, "cat")

	if _, err := env.votes.ToggleVote(ctx, alice, meme.ID); err != nil {
		t.Fatal(err)
	}
	before, _ := env.db.VoteRepo().CountByMeme(meme.ID)

	first, err := env.votes.ToggleVote(ctx, bob, meme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Added || first.VoteCount != before+1 {
		t.Errorf("first toggle = %+v, want added with count %d", first, before+1)
	}

	second, err := env.votes.ToggleVote(ctx, bob, meme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Added || second.VoteCount != before {
		t.Errorf("second toggle = %+v, want removed with count %d", second, before)
	}
}

func TestToggleVotePublishesUpdate(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")

	env.votes.ToggleVote(context.Background(), alice, meme.ID)

	updates := env.publisher.ofType(events.VoteUpdated)
	if len(updates) != 1 {
		t.Fatalf("published %d vote updates", len(updates))
	}
	if updates[0].topic != events.VotesTopic(meme.ID) {
		t.Errorf("topic = %s", updates[0].topic)
	}
	payload := updates[0].event.Payload.(VoteUpdate)
	if payload != (VoteUpdate{MemeID: meme.ID, VoteCount: 1, UserVoted: true}) {
		t.Errorf("payload = %+v", payload)
	}
}

func TestToggleVoteFailures(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")

	if _, err := env.votes.ToggleVote(context.Background(), auth.Anonymous, meme.ID); !errs.IsUnauthorized(err) {
		t.Errorf("anonymous toggle: %v", err)
	}
	if _, err := env.votes.ToggleVote(context.Background(), alice, meme.ID+99); !errs.IsNotFound(err) {
		t.Errorf("missing meme: %v", err)
	}
	if n := count(t, env.db, &models.Vote{}); n != 0 {
		t.Errorf("failed toggles left %d votes", n)
	}
	if len(env.publisher.ofType(events.VoteUpdated)) != 0 {
		t.Error("failed toggles should not publish")
	}
}

func TestConcurrentTogglesKeepOneRowPerPair(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")

	const toggles = 6
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.votes.ToggleVote(context.Background(), alice, meme.ID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	// an even number of toggles always ends where it started
	if n, _ := env.db.VoteRepo().CountByMeme(meme.ID); n != 0 {
		t.Errorf("vote count after %d toggles = %d", toggles, n)
	}
}

func TestToggleVoteReportsFailedTransaction(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	meme := env.createMeme(t, alice, "cat")

	sqlDB, err := env.db.DB().DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.Close()

	_, err = env.votes.ToggleVote(context.Background(), alice, meme.ID)
	if !errs.IsTransactionFailedError(err) {
		t.Fatalf("expected a transaction failure, got %v", err)
	}
	if status := errs.StatusCode(err); status != 500 {
		t.Errorf("status = %d, want 500", status)
	}
}
