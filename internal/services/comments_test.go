package services

import (
	"context"
	"errors"
	"inkblog/internal/events"
	"inkblog/internal/models"
	"strings"
	"testing"
)

func TestCreateTopLevelAndReply(t *testing.T) {
	f := newFixture(t)
	top := f.comment(t, 1, 10, nil, "first")
	if top.ID == "" || top.ParentID != nil || top.PostID != 10 || top.UserID != 1 {
		t.Fatalf("unexpected top-level comment %+v", top)
	}
	if top.CreatedAt.IsZero() || !top.CreatedAt.Equal(top.UpdatedAt) {
		t.Errorf("timestamps not set: %v %v", top.CreatedAt, top.UpdatedAt)
	}

	reply := f.comment(t, 2, 10, &top.ID, "second")
	if reply.ParentID == nil || *reply.ParentID != top.ID {
		t.Fatalf("reply parent = %v", reply.ParentID)
	}
	if got := f.events.types(); len(got) != 2 || got[0] != events.TypeCommentCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCreateRejectsReplyToReply(t *testing.T) {
	f := newFixture(t)
	c1 := f.comment(t, 1, 1, nil, "A says")
	c2 := f.comment(t, 2, 1, &c1.ID, "B replies")

	_, err := f.svc.Create(context.Background(), CreateInput{AuthorID: 3, PostID: 1, ParentID: &c2.ID, Body: "C tries"})
	if !errors.Is(err, ErrInvalidNesting) {
		t.Fatalf("err = %v, want ErrInvalidNesting", err)
	}
}

func TestCreateParentNotFound(t *testing.T) {
	f := newFixture(t)
	other := f.comment(t, 1, 2, nil, "on another post")
	missing := "0190a000-0000-7000-8000-000000000000"

	for name, parent := range map[string]*string{"missing": &missing, "other post": &other.ID} {
		_, err := f.svc.Create(context.Background(), CreateInput{AuthorID: 1, PostID: 1, ParentID: parent, Body: "x"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, CreateInput{PostID: 1, Body: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous: err = %v", err)
	}

	cases := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"empty body", CreateInput{AuthorID: 1, PostID: 1, Body: ""}, "Body"},
		{"blank body", CreateInput{AuthorID: 1, PostID: 1, Body: " \n\t "}, "Body"},
		{"markup only", CreateInput{AuthorID: 1, PostID: 1, Body: "<script>x()</script>"}, "Body"},
		{"nul byte", CreateInput{AuthorID: 1, PostID: 1, Body: "a\x00b"}, "Body"},
		{"invalid utf8", CreateInput{AuthorID: 1, PostID: 1, Body: "ok\xffbad"}, "Body"},
		{"too long", CreateInput{AuthorID: 1, PostID: 1, Body: strings.Repeat("字", 5001)}, "Body"},
		{"no post", CreateInput{AuthorID: 1, Body: "x"}, "PostID"},
		{"long key", CreateInput{AuthorID: 1, PostID: 1, Body: "x", IdempotencyKey: strings.Repeat("k", 129)}, "IdempotencyKey"},
	}
	for _, tc := range cases {
		_, err := f.svc.Create(ctx, tc.in)
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("%s: err = %v, want ErrValidationFailed", tc.name, err)
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Errorf("%s: field = %v, want %s", tc.name, err, tc.field)
		}
	}

	if _, err := f.svc.Create(ctx, CreateInput{AuthorID: 1, PostID: 1, Body: strings.Repeat("字", 5000)}); err != nil {
		t.Errorf("body at the limit should pass: %v", err)
	}
}

func TestCreateStoresPlainText(t *testing.T) {
	f := newFixture(t)
	c := f.comment(t, 1, 1, nil, "  <b>hi</b> & bye ")
	if c.Body != "hi & bye" {
		t.Errorf("body = %q", c.Body)
	}
}

func TestDeleteMasksOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.comment(t, 1, 1, nil, "mine")

	_, notOwner := f.svc.Delete(ctx, 2, c.ID)
	_, missing := f.svc.Delete(ctx, 2, "no-such-comment")
	if !errors.Is(notOwner, ErrNotFound) || !errors.Is(missing, ErrNotFound) {
		t.Fatalf("errors = %v / %v", notOwner, missing)
	}
	if notOwner.Error() != missing.Error() {
		t.Errorf("errors differ: %q vs %q", notOwner, missing)
	}
	if _, err := f.svc.Delete(ctx, 0, c.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous delete: %v", err)
	}

	deleted, err := f.svc.Delete(ctx, 1, c.ID)
	if err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if deleted.ID != c.ID || deleted.Body != "mine" {
		t.Errorf("deleted = %+v", deleted)
	}
	if _, err := f.svc.Delete(ctx, 1, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestDeleteCascadesRepliesAndReactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	top := f.comment(t, 1, 1, nil, "top")
	r1 := f.comment(t, 2, 1, &top.ID, "r1")
	r2 := f.comment(t, 3, 1, &top.ID, "r2")
	keep := f.comment(t, 1, 1, nil, "keep")
	for _, id := range []string{top.ID, r1.ID, r2.ID, keep.ID} {
		if _, err := f.svc.Like(ctx, 9, id); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := f.svc.Delete(ctx, 1, top.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var comments []models.Comment
	f.db.Find(&comments)
	if len(comments) != 1 || comments[0].ID != keep.ID {
		t.Errorf("remaining comments = %v", comments)
	}
	var reactions []models.Reaction
	f.db.Find(&reactions)
	if len(reactions) != 1 || reactions[0].CommentID != keep.ID {
		t.Errorf("remaining reactions = %v", reactions)
	}

	last := f.events.events[len(f.events.events)-1]
	if last.Type != events.TypeCommentDeleted || len(last.Cascade) != 2 {
		t.Errorf("delete event = %+v", last)
	}
}

func TestDeleteReplyKeepsParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	top := f.comment(t, 1, 1, nil, "top")
	reply := f.comment(t, 2, 1, &top.ID, "reply")

	if _, err := f.svc.Delete(ctx, 2, reply.ID); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.Get(ctx, 0, top.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.ReplyCount != 0 {
		t.Errorf("reply count = %d", view.ReplyCount)
	}
}

func TestRepliesNeverNest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var all []*models.Comment
	for i := 0; i < 30; i++ {
		in := CreateInput{AuthorID: uint(i%3 + 1), PostID: 1, Body: "c"}
		if i > 0 {
			in.ParentID = &all[(i*7)%len(all)].ID
		}
		c, err := f.svc.Create(ctx, in)
		if err != nil && !errors.Is(err, ErrInvalidNesting) && !errors.Is(err, ErrNotFound) {
			t.Fatal(err)
		}
		if c != nil {
			all = append(all, c)
		}
		if i%5 == 4 {
			victim := all[(i*3)%len(all)]
			_, _ = f.svc.Delete(ctx, victim.UserID, victim.ID)
		}
	}

	var rows []models.Comment
	f.db.Find(&rows)
	byID := make(map[string]models.Comment, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	for _, c := range rows {
		if c.ParentID == nil {
			continue
		}
		parent, ok := byID[*c.ParentID]
		if !ok {
			t.Errorf("reply %s has dangling parent", c.ID)
			continue
		}
		if parent.ParentID != nil {
			t.Errorf("reply %s is nested under reply %s", c.ID, parent.ID)
		}
	}
}

func TestCreateIdempotencyKey(t *testing.T) {
	store := newMemIdem()
	f := newFixture(t, WithIdempotency(store, 0))
	ctx := context.Background()
	in := CreateInput{AuthorID: 1, PostID: 1, Body: "once", IdempotencyKey: "abc"}

	first, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	again, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Errorf("replay created a new comment: %s != %s", again.ID, first.ID)
	}
	var n int64
	f.db.Model(&models.Comment{}).Count(&n)
	if n != 1 {
		t.Errorf("rows = %d", n)
	}

	// same key from another user is independent
	other := in
	other.AuthorID = 2
	if c, err := f.svc.Create(ctx, other); err != nil || c.ID == first.ID {
		t.Errorf("other author: %v %v", c, err)
	}

	_, _ = store.Claim(ctx, "comment:1:busy", 0)
	in.IdempotencyKey = "busy"
	if _, err := f.svc.Create(ctx, in); !errors.Is(err, ErrRequestInFlight) {
		t.Errorf("pending key: err = %v", err)
	}
}

func TestCreateFailureReleasesIdempotencyKey(t *testing.T) {
	store := newMemIdem()
	f := newFixture(t, WithIdempotency(store, 0))
	ctx := context.Background()
	missing := "nope"

	in := CreateInput{AuthorID: 1, PostID: 1, ParentID: &missing, Body: "x", IdempotencyKey: "k"}
	if _, err := f.svc.Create(ctx, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if v, _ := store.Lookup(ctx, "comment:1:k"); v != "" {
		t.Errorf("key not released: %q", v)
	}

	in.ParentID = nil
	if _, err := f.svc.Create(ctx, in); err != nil {
		t.Errorf("retry with same key: %v", err)
	}
}

func TestCreateRetriesIdempotencyComplete(t *testing.T) {
	store := newMemIdem()
	store.failComplete = 1
	f := newFixture(t, WithIdempotency(store, 0))
	ctx := context.Background()
	in := CreateInput{AuthorID: 1, PostID: 1, Body: "once", IdempotencyKey: "flaky"}

	first, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := store.Lookup(ctx, "comment:1:flaky"); v != first.ID {
		t.Fatalf("key = %q, want %s", v, first.ID)
	}
	again, err := f.svc.Create(ctx, in)
	if err != nil || again.ID != first.ID {
		t.Errorf("replay: %v %v", again, err)
	}
}

func TestForeignKeyViolationsMapToNotFound(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	missing := "gone"

	// 绕过 service 的存在性检查，直接触发外键约束
	err := f.store.Comments().Insert(&models.Comment{
		ID: "orphan", PostID: 1, UserID: 1, ParentID: &missing, Body: "b",
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("insert with missing parent succeeded")
	}
	if !errors.Is(notFound("parent comment", err), ErrNotFound) {
		t.Errorf("comment insert: %v", err)
	}

	_, err = f.store.Reactions().Apply(1, "gone", models.ReactionLike, now)
	if err == nil {
		t.Fatal("reaction on missing comment succeeded")
	}
	if !errors.Is(notFound("comment", err), ErrNotFound) {
		t.Errorf("reaction apply: %v", err)
	}
}

func TestPublishFailureKeepsWrite(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	c, err := f.svc.Create(context.Background(), CreateInput{AuthorID: 1, PostID: 1, Body: "x"})
	if err != nil {
		t.Fatalf("create should succeed: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), 0, c.ID); err != nil {
		t.Errorf("comment not stored: %v", err)
	}
}
