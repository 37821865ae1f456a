package planner

import (
	"errors"
	"testing"

	"github.com/BeatGlow/hwc"
)

func testLayers(n int) []Layer {
	layers := make([]Layer, n)
	for i := range layers {
		layers[i].Index = i
		layers[i].Buffer.FbID = uint32(i + 1)
		layers[i].Buffer.GemHandles[0] = uint32(i + 1)
	}
	return layers
}

var testPlanes = []Plane{
	{ID: 31, Type: PlaneOverlay},
	{ID: 30, Type: PlanePrimary},
	{ID: 32, Type: PlaneCursor},
}

func TestNew(t *testing.T) {
	if v := New().Stages(); v != 1 {
		t.Errorf("expected 1 stage, got %d", v)
	}
}

func TestProvision(t *testing.T) {
	p := New()

	t.Run("fits", func(it *testing.T) {
		comp, err := p.Provision(testLayers(2), testPlanes)
		if err != nil {
			it.Fatal(err)
		}
		if len(comp.Assignments) != 2 {
			it.Fatalf("expected 2 assignments, got %d", len(comp.Assignments))
		}
		if v := comp.Assignments[0].Plane; v.Type != PlanePrimary {
			it.Errorf("expected bottom layer on the primary plane, got %s", v)
		}
		if v := comp.Assignments[1].Plane.ID; v != 31 {
			it.Errorf("expected second layer on plane 31, got %d", v)
		}
		if comp.PrecompPlane != nil || len(comp.Precomp) != 0 {
			it.Errorf("expected no precomposition, got %+v", comp)
		}
	})

	t.Run("precomp", func(it *testing.T) {
		comp, err := p.Provision(testLayers(5), testPlanes)
		if err != nil {
			it.Fatal(err)
		}
		if len(comp.Assignments) != 2 {
			it.Errorf("expected 2 assignments, got %d", len(comp.Assignments))
		}
		if comp.PrecompPlane == nil || comp.PrecompPlane.ID != 32 {
			it.Fatalf("expected plane 32 reserved for precomposition, got %v", comp.PrecompPlane)
		}
		if len(comp.Precomp) != 3 || comp.Precomp[0].Index != 2 {
			it.Errorf("expected layers 2-4 to be precomposited, got %+v", comp.Precomp)
		}
	})

	t.Run("empty", func(it *testing.T) {
		comp, err := p.Provision(nil, nil)
		if err != nil || len(comp.Assignments) != 0 {
			it.Errorf("expected empty composition, got %+v (%v)", comp, err)
		}
	})

	t.Run("no planes", func(it *testing.T) {
		if _, err := p.Provision(testLayers(1), nil); !errors.Is(err, ErrNoPlanes) {
			it.Errorf("expected ErrNoPlanes, got %v", err)
		}
	})

	t.Run("invalid layer", func(it *testing.T) {
		layers := append(testLayers(1), Layer{Index: 1, Buffer: hwc.BufferObject{}})
		if _, err := p.Provision(layers, testPlanes); !errors.Is(err, ErrInvalidLayer) {
			it.Errorf("expected ErrInvalidLayer, got %v", err)
		}
	})
}

type skipStage struct{}

func (skipStage) Provision(_ *Composition, layers []Layer, planes []Plane) ([]Layer, []Plane, error) {
	return layers, planes, nil
}

func TestProvisionLeftover(t *testing.T) {
	p := new(Planner)
	p.AddStage(skipStage{})

	comp, err := p.Provision(testLayers(2), testPlanes)
	if err != nil {
		t.Fatal(err)
	}
	if comp.PrecompPlane == nil || comp.PrecompPlane.Type != PlanePrimary {
		t.Fatalf("expected leftover layers on the primary plane, got %v", comp.PrecompPlane)
	}
	if len(comp.Precomp) != 2 {
		t.Errorf("expected 2 precomposited layers, got %d", len(comp.Precomp))
	}
}
