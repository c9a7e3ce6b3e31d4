package guardrails

import (
	"context"
	"testing"
	"time"
)

func TestWithChildTimeout_ZeroInheritsParent(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	child, cc := ForRead(parent, Timeouts{})
	defer cc()

	pd, _ := parent.Deadline()
	cd, ok := child.Deadline()
	if !ok || !cd.Equal(pd) {
		t.Fatalf("zero budget must inherit the parent deadline: parent=%v child=%v", pd, cd)
	}
}

func TestWithChildTimeout_NeverExtendsParent(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	child, cc := ForPartition(parent, Timeouts{Partition: time.Hour})
	defer cc()

	cd, ok := child.Deadline()
	if !ok {
		t.Fatal("child must carry a deadline")
	}
	if time.Until(cd) > time.Second {
		t.Fatalf("child deadline %v extends past the parent budget", cd)
	}
}

func TestWithChildTimeout_TightensParent(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	child, cc := ForRead(parent, Timeouts{Read: 10 * time.Millisecond})
	defer cc()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child did not expire under its own budget")
	}
	if parent.Err() != nil {
		t.Fatal("expiring the child must not cancel the parent")
	}
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	if got := Remaining(context.Background()); got != 0 {
		t.Fatalf("no deadline must report zero, got %v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	if got := Remaining(ctx); got <= 0 || got > time.Hour {
		t.Fatalf("remaining out of range: %v", got)
	}
}
