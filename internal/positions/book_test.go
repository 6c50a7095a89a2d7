package positions

import (
	"testing"
	"time"
)

func TestBookOpenCloseLifecycle(t *testing.T) {
	b := NewBook()
	if b.Len() != 0 {
		t.Fatalf("new book should be empty, got %d", b.Len())
	}

	b.Open(Position{QueueID: "q1", Mint: "mint-a", SizeSOL: 0.5, EntryPrice: 0.0004, OpenedAt: time.Now()})
	b.Open(Position{QueueID: "q2", Mint: "mint-b", SizeSOL: 0.3, EntryPrice: 0.0002, OpenedAt: time.Now()})
	if b.Len() != 2 {
		t.Fatalf("expected 2 open positions, got %d", b.Len())
	}

	p, ok := b.Close("q1")
	if !ok {
		t.Fatal("expected q1 to close")
	}
	if p.Mint != "mint-a" {
		t.Errorf("closed wrong position: %s", p.Mint)
	}
	if _, ok := b.Close("q1"); ok {
		t.Error("second close of q1 should miss")
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 open position, got %d", b.Len())
	}
}

func TestBookSnapshotIsACopy(t *testing.T) {
	b := NewBook()
	b.Open(Position{QueueID: "q1", Mint: "mint-a"})

	snap := b.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 position in snapshot, got %d", len(snap))
	}
	snap[0].Mint = "mutated"

	again := b.Snapshot()
	if again[0].Mint != "mint-a" {
		t.Error("snapshot mutation leaked into the book")
	}
}

func TestBookReopenReplaces(t *testing.T) {
	b := NewBook()
	b.Open(Position{QueueID: "q1", SizeSOL: 0.5})
	b.Open(Position{QueueID: "q1", SizeSOL: 0.7})

	if b.Len() != 1 {
		t.Fatalf("expected 1 open position, got %d", b.Len())
	}
	p, _ := b.Close("q1")
	if p.SizeSOL != 0.7 {
		t.Errorf("expected the later open to win, got size %f", p.SizeSOL)
	}
}
