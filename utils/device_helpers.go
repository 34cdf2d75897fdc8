package utils

import (
	"fmt"
	"os"

	"github.com/notargets/cmdgraph/graph"
	"github.com/notargets/cmdgraph/rt"

	_ "github.com/notargets/cmdgraph/graph/hostgraph"
	_ "github.com/notargets/cmdgraph/graph/occagraph"
)

// CreateTestEngine creates the host engine. Tests that exercise graph
// structure and command buffer semantics use it for deterministic,
// device-free runs.
func CreateTestEngine() graph.Engine {
	eng, err := graph.Get(graph.EngineHost)
	if err != nil {
		panic(fmt.Sprintf("host engine unavailable: %v", err))
	}
	return eng
}

// CreateTestContext creates a context and device on the host engine.
func CreateTestContext() (*rt.Context, *rt.Device) {
	ctx := rt.NewContext(CreateTestEngine())
	dev, err := ctx.Device(0)
	if err != nil {
		panic(fmt.Sprintf("host device unavailable: %v", err))
	}
	return ctx, dev
}

// CreateDeviceEngine returns the OCCA engine, preferring parallel backends.
// Returns an error when no OCCA backend can create a device; callers skip
// in that case.
func CreateDeviceEngine() (graph.Engine, error) {
	return graph.Get(graph.EngineOCCA)
}

// SkipWithoutDevice skips the test unless an OCCA backend is available or
// the test explicitly opts in via CMDGRAPH_REQUIRE_DEVICE=1, in which case
// a missing device fails the test instead.
func SkipWithoutDevice(t interface {
	Skipf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}) graph.Engine {
	eng, err := CreateDeviceEngine()
	if err != nil {
		if os.Getenv("CMDGRAPH_REQUIRE_DEVICE") == "1" {
			t.Fatalf("OCCA device required but unavailable: %v", err)
		}
		t.Skipf("no OCCA device available: %v", err)
		return nil
	}
	return eng
}
