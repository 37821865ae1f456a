// Package planner assigns layers to display planes.
package planner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BeatGlow/hwc"
)

// Errors
var (
	ErrNoPlanes     = errors.New("planner: no planes available")
	ErrInvalidLayer = errors.New("planner: layer has no framebuffer")
)

// PlaneType is the kind of a display plane.
type PlaneType uint8

// Plane types.
const (
	PlaneOverlay PlaneType = iota
	PlanePrimary
	PlaneCursor
)

func (t PlaneType) String() string {
	switch t {
	case PlaneOverlay:
		return "overlay"
	case PlanePrimary:
		return "primary"
	case PlaneCursor:
		return "cursor"
	default:
		return fmt.Sprintf("PlaneType(%d)", uint8(t))
	}
}

// Plane is a display plane.
type Plane struct {
	ID   uint32
	Type PlaneType
}

func (p Plane) String() string {
	return fmt.Sprintf("%s plane %d", p.Type, p.ID)
}

// Layer is an imported buffer at z-order Index.
type Layer struct {
	Index  int
	Buffer hwc.BufferObject
}

// Assignment places a layer on a plane.
type Assignment struct {
	Layer Layer
	Plane Plane
}

// Composition is the outcome of Planner.Provision.
type Composition struct {
	// Assignments of layers scanned out directly.
	Assignments []Assignment

	// Precomp are the layers that have to be composited into a single buffer
	// before scan out on PrecompPlane.
	Precomp      []Layer
	PrecompPlane *Plane
}

// Stage is a provisioning step. A stage assigns some of the layers to some of
// the planes, and returns the layers and planes it did not use.
type Stage interface {
	Provision(comp *Composition, layers []Layer, planes []Plane) ([]Layer, []Plane, error)
}

// Planner runs layers through its stages.
type Planner struct {
	stages []Stage
}

// New returns a planner with the Greedy stage.
func New() *Planner {
	p := new(Planner)
	p.AddStage(Greedy{})
	return p
}

// AddStage appends a stage.
func (p *Planner) AddStage(stage Stage) {
	p.stages = append(p.stages, stage)
}

// Stages is the number of stages.
func (p *Planner) Stages() int {
	return len(p.stages)
}

// Provision assigns layers, in z-order, to planes. The primary plane is used
// first. If there are more layers than planes, the last plane is reserved for
// precomposition and the layers no stage assigned end up in Precomp.
func (p *Planner) Provision(layers []Layer, planes []Plane) (Composition, error) {
	var comp Composition
	if len(layers) == 0 {
		return comp, nil
	}
	if len(planes) == 0 {
		return comp, ErrNoPlanes
	}
	for _, layer := range layers {
		if !layer.Buffer.Valid() {
			return comp, fmt.Errorf("%w: layer %d", ErrInvalidLayer, layer.Index)
		}
	}

	layers = append([]Layer(nil), layers...)
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].Index < layers[j].Index })

	planes = append([]Plane(nil), planes...)
	sort.SliceStable(planes, func(i, j int) bool {
		return planes[i].Type == PlanePrimary && planes[j].Type != PlanePrimary
	})

	if len(layers) > len(planes) {
		precomp := planes[len(planes)-1]
		comp.PrecompPlane = &precomp
		planes = planes[:len(planes)-1]
	}

	var err error
	for _, stage := range p.stages {
		if layers, planes, err = stage.Provision(&comp, layers, planes); err != nil {
			return comp, err
		}
	}

	if len(layers) > 0 {
		if comp.PrecompPlane == nil {
			if len(planes) == 0 {
				return comp, fmt.Errorf("%w for %d layers", ErrNoPlanes, len(layers))
			}
			comp.PrecompPlane = &planes[0]
		}
		comp.Precomp = layers
	}
	return comp, nil
}

// Greedy assigns every layer to the next free plane.
type Greedy struct{}

func (Greedy) Provision(comp *Composition, layers []Layer, planes []Plane) ([]Layer, []Plane, error) {
	for len(layers) > 0 && len(planes) > 0 {
		comp.Assignments = append(comp.Assignments, Assignment{Layer: layers[0], Plane: planes[0]})
		layers, planes = layers[1:], planes[1:]
	}
	return layers, planes, nil
}
