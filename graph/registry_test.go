package graph

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeEngine struct{ name string }

func (f *fakeEngine) Name() string               { return f.name }
func (f *fakeEngine) Device(int) (Device, error) { return nil, errors.New("no devices") }
func (f *fakeEngine) NewGraph() (Graph, error)   { return nil, errors.New("no graphs") }

// TestRegistryGet tests registration and lookup
func TestRegistryGet(t *testing.T) {
	Register("fake", func() (Engine, error) {
		return &fakeEngine{name: "fake"}, nil
	})
	defer Unregister("fake")

	eng, err := Get("fake")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if eng.Name() != "fake" {
		t.Errorf("Engine name = %q, expected %q", eng.Name(), "fake")
	}

	_, err = Get("nonexistent")
	if !errors.Is(err, ErrEngineNotAvailable) {
		t.Errorf("Expected ErrEngineNotAvailable, got %v", err)
	}
}

// TestRegistryAvailable tests the name listing
func TestRegistryAvailable(t *testing.T) {
	Register("fake-a", func() (Engine, error) { return &fakeEngine{name: "fake-a"}, nil })
	Register("fake-b", func() (Engine, error) { return &fakeEngine{name: "fake-b"}, nil })
	defer Unregister("fake-a")
	defer Unregister("fake-b")

	names := Available()
	sort.Strings(names)

	var got []string
	for _, n := range names {
		if n == "fake-a" || n == "fake-b" {
			got = append(got, n)
		}
	}
	if diff := cmp.Diff([]string{"fake-a", "fake-b"}, got); diff != "" {
		t.Errorf("Available() mismatch (-want +got):\n%s", diff)
	}
}

// TestRegistryDefaultFallback tests that Default skips factories that fail
func TestRegistryDefaultFallback(t *testing.T) {
	// The OCCA engine sits ahead of host in priority; a failing factory
	// under its name must not mask the host engine.
	prevOCCA, hadOCCA := engineFactory(EngineOCCA)
	Register(EngineOCCA, func() (Engine, error) {
		return nil, errors.New("no occa device")
	})
	defer func() {
		if hadOCCA {
			Register(EngineOCCA, prevOCCA)
		} else {
			Unregister(EngineOCCA)
		}
	}()

	prevHost, hadHost := engineFactory(EngineHost)
	Register(EngineHost, func() (Engine, error) {
		return &fakeEngine{name: EngineHost}, nil
	})
	defer func() {
		if hadHost {
			Register(EngineHost, prevHost)
		} else {
			Unregister(EngineHost)
		}
	}()

	eng, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if eng.Name() != EngineHost {
		t.Errorf("Default engine = %q, expected fallback to %q", eng.Name(), EngineHost)
	}
}

func engineFactory(name string) (EngineFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := engines[name]
	return f, ok
}
