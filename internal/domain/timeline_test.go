package domain

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func sampleTimeline() Timeline {
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return Timeline{
		{Action: ActionCreated, Timestamp: ts, User: "u1"},
		{Action: ActionCommented, Timestamp: ts, User: "u1", Comment: "first"},
		{Action: ActionCommented, Timestamp: ts, User: "ag1", Comment: "reply to first", ReplyTo: intPtr(1)},
		{Action: ActionCommented, Timestamp: ts, User: "u1", Comment: "second"},
		{Action: ActionCommented, Timestamp: ts, User: "ag1", Comment: "reply to second", ReplyTo: intPtr(3)},
		{Action: ActionCommented, Timestamp: ts, User: "u1", Comment: "reply to created", ReplyTo: intPtr(0)},
	}
}

func TestTimelineAppendReturnsIndex(t *testing.T) {
	var tl Timeline
	if idx := tl.Append(TimelineEntry{Action: ActionCreated}); idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	if idx := tl.Append(TimelineEntry{Action: ActionCommented}); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
}

func TestTimelineDeleteRenumbersReplies(t *testing.T) {
	tl := sampleTimeline()
	if err := tl.Delete(2, "ag1", RoleAgent); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(tl) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(tl))
	}
	// reply to second moved from index 4 to 3 and now points at 2.
	if got := tl[3].ReplyTo; got == nil || *got != 2 {
		t.Fatalf("expected reply_to 2, got %v", got)
	}
	// references below the deleted index are untouched.
	if got := tl[4].ReplyTo; got == nil || *got != 0 {
		t.Fatalf("expected reply_to 0 unchanged, got %v", got)
	}
}

func TestTimelineDeleteClearsDanglingReplies(t *testing.T) {
	tl := sampleTimeline()
	if err := tl.Delete(1, "u1", RoleUser); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if tl[1].Comment != "reply to first" {
		t.Fatalf("unexpected entry at 1: %q", tl[1].Comment)
	}
	if tl[1].ReplyTo != nil {
		t.Fatalf("expected dangling reply_to to be cleared, got %d", *tl[1].ReplyTo)
	}
	if got := tl[3].ReplyTo; got == nil || *got != 2 {
		t.Fatalf("expected reply_to 2, got %v", got)
	}
}

func TestTimelineDeleteRules(t *testing.T) {
	cases := []struct {
		name  string
		index int
		actor string
		role  Role
		want  error
	}{
		{name: "negative index", index: -1, actor: "u1", role: RoleUser, want: ErrTimelineIndex},
		{name: "past end", index: 6, actor: "u1", role: RoleUser, want: ErrTimelineIndex},
		{name: "system action", index: 0, actor: "u1", role: RoleUser, want: ErrTimelineNotDeletable},
		{name: "system action by admin", index: 0, actor: "ad1", role: RoleAdmin, want: ErrTimelineNotDeletable},
		{name: "other user's comment", index: 2, actor: "u1", role: RoleUser, want: ErrTimelineNotAuthor},
		{name: "agent deletes user's comment", index: 1, actor: "ag9", role: RoleAgent, want: nil},
		{name: "author deletes own", index: 3, actor: "u1", role: RoleUser, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tl := sampleTimeline()
			err := tl.Delete(tc.index, tc.actor, tc.role)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want != nil && len(tl) != 6 {
				t.Fatalf("failed delete must not change timeline, got %d entries", len(tl))
			}
		})
	}
}

func TestTimelineCloneIsDeep(t *testing.T) {
	tl := sampleTimeline()
	c := tl.Clone()
	*c[2].ReplyTo = 42
	if *tl[2].ReplyTo != 1 {
		t.Fatalf("clone aliases reply_to")
	}
}
