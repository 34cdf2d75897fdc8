package rt

import "testing"

// TestRefCountInit tests the fresh-handle state
func TestRefCountInit(t *testing.T) {
	var rc RefCount
	rc.Init()

	if rc.External() != 1 {
		t.Errorf("Expected external count 1, got %d", rc.External())
	}
	if rc.Internal() != 1 {
		t.Errorf("Expected internal count 1, got %d", rc.Internal())
	}
}

// TestRefCountRetainRelease tests that a retain/release pair is neutral
func TestRefCountRetainRelease(t *testing.T) {
	var rc RefCount
	rc.Init()

	rc.Retain()
	if rc.External() != 2 || rc.Internal() != 2 {
		t.Fatalf("After retain: external=%d internal=%d, expected 2/2",
			rc.External(), rc.Internal())
	}

	rc.DecExternal()
	rc.DecInternal()
	if rc.External() != 1 || rc.Internal() != 1 {
		t.Fatalf("After release: external=%d internal=%d, expected 1/1",
			rc.External(), rc.Internal())
	}
}

// TestRefCountStructuralHold tests that internal references outlive the
// external count reaching zero
func TestRefCountStructuralHold(t *testing.T) {
	var rc RefCount
	rc.Init()
	rc.IncInternal() // structural reference, e.g. a child object

	if got := rc.DecExternal(); got != 0 {
		t.Fatalf("Expected external to drain to 0, got %d", got)
	}
	if got := rc.DecInternal(); got != 1 {
		t.Fatalf("Expected internal 1 after owner release, got %d", got)
	}
	// The structural holder releases last; only now is destruction due.
	if got := rc.DecInternal(); got != 0 {
		t.Fatalf("Expected internal to drain to 0, got %d", got)
	}
}
