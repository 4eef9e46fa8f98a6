package chat

import (
	"fmt"
	"testing"
	"time"
)

func TestLedgerMarkAndHas(t *testing.T) {
	l := newLedger(8)
	key := idKey("c1", "m1")
	if l.has(key) {
		t.Error("fresh ledger should not know the key")
	}
	l.mark(key)
	if !l.has(key) {
		t.Error("marked key should be found")
	}
}

func TestLedgerIgnoresEmptyKeys(t *testing.T) {
	l := newLedger(8)
	l.mark("")
	l.mark(idKey("c1", ""))
	l.mark(clientKeyKey("c1", ""))
	if len(l.order) != 0 {
		t.Errorf("empty keys must not occupy slots, got %d", len(l.order))
	}
	if l.has("") {
		t.Error("empty key must never match")
	}
}

func TestLedgerEvictsOldestFirst(t *testing.T) {
	l := newLedger(4)
	for i := 0; i < 6; i++ {
		l.mark(idKey("c1", fmt.Sprintf("m%d", i)))
	}
	if l.has(idKey("c1", "m0")) || l.has(idKey("c1", "m1")) {
		t.Error("oldest keys should have been evicted")
	}
	for i := 2; i < 6; i++ {
		if !l.has(idKey("c1", fmt.Sprintf("m%d", i))) {
			t.Errorf("key m%d should still be present", i)
		}
	}
	if len(l.order) != 4 {
		t.Errorf("ledger exceeded its cap: %d", len(l.order))
	}
}

func TestLedgerRemarkDoesNotDuplicate(t *testing.T) {
	l := newLedger(4)
	key := idKey("c1", "m1")
	l.mark(key)
	l.mark(key)
	if len(l.order) != 1 {
		t.Errorf("re-marking must not grow the order list, got %d", len(l.order))
	}
}

func TestLedgerKeyShapesAreDisjoint(t *testing.T) {
	l := newLedger(8)
	l.mark(idKey("c1", "x"))
	if l.has(clientKeyKey("c1", "x")) {
		t.Error("id and client-key namespaces must not collide")
	}
	at := time.Unix(1700000000, 0)
	l.mark(contentKey("c1", "u1", "x", at))
	if l.has(contentKey("c1", "u1", "x", at.Add(time.Second))) {
		t.Error("content keys are second-granular")
	}
}
