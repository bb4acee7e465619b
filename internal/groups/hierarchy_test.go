package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/memberd/memberd/internal/models"
)

func TestSetParentAndChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := newTestUser(t, s, "josh", "hash")

	network := mustCreateGroup(t, s, NewGroupParams{
		Name: "Ontario", Kind: models.KindNetwork, CreatorID: creator.ID,
	})
	community := mustCreateGroup(t, s, NewGroupParams{
		Name: "Bikes", Kind: models.KindCommunity, CreatorID: creator.ID,
	})

	if errSet := s.SetParent(ctx, community.ID, &network.ID); errSet != nil {
		t.Fatalf("SetParent: %v", errSet)
	}

	children, errList := s.ChildrenOf(ctx, network.ID)
	if errList != nil {
		t.Fatalf("ChildrenOf: %v", errList)
	}
	if len(children) != 1 || children[0].ID != community.ID {
		t.Fatalf("expected one child %d, got %+v", community.ID, children)
	}

	reloaded, errFind := s.GroupByID(ctx, community.ID)
	if errFind != nil {
		t.Fatalf("GroupByID: %v", errFind)
	}
	parent, errParent := s.ParentOf(ctx, reloaded)
	if errParent != nil {
		t.Fatalf("ParentOf: %v", errParent)
	}
	if parent == nil || parent.ID != network.ID {
		t.Fatalf("expected parent %d, got %+v", network.ID, parent)
	}

	if errClear := s.SetParent(ctx, community.ID, nil); errClear != nil {
		t.Fatalf("SetParent clear: %v", errClear)
	}
	reloaded, errFind = s.GroupByID(ctx, community.ID)
	if errFind != nil {
		t.Fatalf("GroupByID after clear: %v", errFind)
	}
	if reloaded.ParentID != nil {
		t.Fatalf("expected parent cleared")
	}
}

func TestSetParentRejectsCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := newTestUser(t, s, "josh", "hash")

	a := mustCreateGroup(t, s, NewGroupParams{
		Name: "Alpha", Kind: models.KindCommunity, CreatorID: creator.ID,
	})
	b := mustCreateGroup(t, s, NewGroupParams{
		Name: "Beta", Kind: models.KindCommunity, CreatorID: creator.ID, ParentID: &a.ID,
	})
	c := mustCreateGroup(t, s, NewGroupParams{
		Name: "Gamma", Kind: models.KindCommunity, CreatorID: creator.ID, ParentID: &b.ID,
	})

	if errSelf := s.SetParent(ctx, a.ID, &a.ID); !errors.Is(errSelf, ErrCyclicHierarchy) {
		t.Fatalf("self-parent: expected ErrCyclicHierarchy, got %v", errSelf)
	}
	if errLoop := s.SetParent(ctx, a.ID, &c.ID); !errors.Is(errLoop, ErrCyclicHierarchy) {
		t.Fatalf("ancestor loop: expected ErrCyclicHierarchy, got %v", errLoop)
	}
	// Reparenting within the forest stays legal.
	if errMove := s.SetParent(ctx, c.ID, &a.ID); errMove != nil {
		t.Fatalf("legal reparent: %v", errMove)
	}
	if errMissing := s.SetParent(ctx, a.ID, ptr(uint64(999999))); !errors.Is(errMissing, ErrGroupNotFound) {
		t.Fatalf("missing parent: expected ErrGroupNotFound, got %v", errMissing)
	}
}

func ptr[T any](v T) *T { return &v }
