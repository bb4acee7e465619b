package groups

import (
	"context"
	"testing"

	"github.com/memberd/memberd/internal/models"
)

func mustCreateGroup(t *testing.T, s *Store, params NewGroupParams) *models.Group {
	t.Helper()
	group, errCreate := s.CreateGroup(context.Background(), params)
	if errCreate != nil {
		t.Fatalf("CreateGroup %s: %v", params.Name, errCreate)
	}
	return group
}

func TestIsVisible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	creator := newTestUser(t, s, "josh", "hash")
	member := newTestUser(t, s, "member", "hash")
	parentMember := newTestUser(t, s, "parentmember", "hash")
	outsider := newTestUser(t, s, "outsider", "hash")
	root := newTestUser(t, s, "root", "hash")
	root.Superuser = true
	if errSave := s.db.Save(root).Error; errSave != nil {
		t.Fatalf("mark superuser: %v", errSave)
	}

	parent := mustCreateGroup(t, s, NewGroupParams{
		Name: "Ontario", Kind: models.KindNetwork, CreatorID: creator.ID,
	})
	open := mustCreateGroup(t, s, NewGroupParams{
		Name: "Open", Kind: models.KindCommunity, CreatorID: creator.ID,
		Visibility: models.VisibilityEveryone, ParentID: &parent.ID,
	})
	closed := mustCreateGroup(t, s, NewGroupParams{
		Name: "Closed", Kind: models.KindCommunity, CreatorID: creator.ID,
		Visibility: models.VisibilityMembers, ParentID: &parent.ID,
	})
	shared := mustCreateGroup(t, s, NewGroupParams{
		Name: "Shared", Kind: models.KindCommunity, CreatorID: creator.ID,
		Visibility: models.VisibilityParent, ParentID: &parent.ID,
	})

	if _, errAdd := s.AddMember(ctx, closed.ID, member.ID); errAdd != nil {
		t.Fatalf("AddMember closed: %v", errAdd)
	}
	if _, errAdd := s.AddMember(ctx, parent.ID, parentMember.ID); errAdd != nil {
		t.Fatalf("AddMember parent: %v", errAdd)
	}

	cases := []struct {
		name   string
		group  *models.Group
		viewer *models.User
		want   bool
	}{
		{"everyone visible to anonymous", open, nil, true},
		{"members-only hidden from anonymous", closed, nil, false},
		{"members-only hidden from non-member", closed, outsider, false},
		{"members-only visible to accepted member", closed, member, true},
		{"members-only visible to superuser", closed, root, true},
		{"parent-visible hidden from anonymous", shared, nil, false},
		{"parent-visible hidden from outsider", shared, outsider, false},
		{"parent-visible to parent member", shared, parentMember, true},
		{"parent-visible to own member", shared, creator, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, errCheck := s.IsVisible(ctx, tc.group, tc.viewer)
			if errCheck != nil {
				t.Fatalf("IsVisible: %v", errCheck)
			}
			if got != tc.want {
				t.Fatalf("IsVisible=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestVisibleChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	creator := newTestUser(t, s, "josh", "hash")
	viewer := newTestUser(t, s, "viewer", "hash")
	insider := newTestUser(t, s, "insider", "hash")
	root := newTestUser(t, s, "root", "hash")
	root.Superuser = true
	if errSave := s.db.Save(root).Error; errSave != nil {
		t.Fatalf("mark superuser: %v", errSave)
	}

	parent := mustCreateGroup(t, s, NewGroupParams{
		Name: "Ontario", Kind: models.KindNetwork, CreatorID: creator.ID,
	})
	open := mustCreateGroup(t, s, NewGroupParams{
		Name: "Open", Kind: models.KindCommunity, CreatorID: creator.ID,
		Visibility: models.VisibilityEveryone, ParentID: &parent.ID,
	})
	closed := mustCreateGroup(t, s, NewGroupParams{
		Name: "Closed", Kind: models.KindCommunity, CreatorID: creator.ID,
		Visibility: models.VisibilityMembers, ParentID: &parent.ID,
	})
	shared := mustCreateGroup(t, s, NewGroupParams{
		Name: "Shared", Kind: models.KindCommunity, CreatorID: creator.ID,
		Visibility: models.VisibilityParent, ParentID: &parent.ID,
	})

	// viewer belongs to the closed child (any status counts) but not to the
	// parent; insider is an accepted member of the parent only.
	if _, errAdd := s.AddMember(ctx, closed.ID, viewer.ID); errAdd != nil {
		t.Fatalf("AddMember closed: %v", errAdd)
	}
	if _, errStatus := s.SetStatus(ctx, closed.ID, viewer.ID, models.StatusInvited); errStatus != nil {
		t.Fatalf("SetStatus: %v", errStatus)
	}
	if _, errAdd := s.AddMember(ctx, parent.ID, insider.ID); errAdd != nil {
		t.Fatalf("AddMember parent: %v", errAdd)
	}

	slugsOf := func(gs []models.Group) map[string]bool {
		out := make(map[string]bool, len(gs))
		for _, g := range gs {
			out[g.Slug] = true
		}
		return out
	}

	anon, errAnon := s.VisibleChildren(ctx, parent, nil)
	if errAnon != nil {
		t.Fatalf("VisibleChildren anon: %v", errAnon)
	}
	if got := slugsOf(anon); len(got) != 1 || !got[open.Slug] {
		t.Fatalf("anon: expected only %q, got %v", open.Slug, got)
	}

	all, errRoot := s.VisibleChildren(ctx, parent, root)
	if errRoot != nil {
		t.Fatalf("VisibleChildren superuser: %v", errRoot)
	}
	if got := slugsOf(all); len(got) != 3 {
		t.Fatalf("superuser: expected 3 children, got %v", got)
	}

	mine, errViewer := s.VisibleChildren(ctx, parent, viewer)
	if errViewer != nil {
		t.Fatalf("VisibleChildren viewer: %v", errViewer)
	}
	if got := slugsOf(mine); len(got) != 2 || !got[open.Slug] || !got[closed.Slug] {
		t.Fatalf("viewer: expected open+closed, got %v", got)
	}

	parents, errInsider := s.VisibleChildren(ctx, parent, insider)
	if errInsider != nil {
		t.Fatalf("VisibleChildren insider: %v", errInsider)
	}
	if got := slugsOf(parents); len(got) != 2 || !got[open.Slug] || !got[shared.Slug] {
		t.Fatalf("insider: expected open+shared, got %v", got)
	}
}
