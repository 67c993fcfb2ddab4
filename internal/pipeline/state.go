//-------------------------------------------------------------------------
//
// dwctl - Data Warehouse Pipeline Provisioner
//
// Copyright (c) 2025 - 2026, George D. Pal
// This software is released under the MIT License
//
//-------------------------------------------------------------------------

// Package pipeline tracks run identity across the asynchronous trigger
// chain. Each pipeline run holds a lease object in the bucket; handlers
// advance the lease through the run states and drop events that carry
// a stale or unknown run token.
package pipeline

import "fmt"

// State is a pipeline run state.
type State string

// Run states, in order.
const (
	StateRawUploaded      State = "raw-uploaded"
	StateStage1Running    State = "stage1-running"
	StateTransformedReady State = "transformed-ready"
	StateStage2Running    State = "stage2-running"
	StateCuratedReady     State = "curated-ready"
	StateLoadRunning      State = "load-running"
	StateLoaded           State = "loaded"
)

var stateOrder = map[State]int{
	StateRawUploaded:      0,
	StateStage1Running:    1,
	StateTransformedReady: 2,
	StateStage2Running:    3,
	StateCuratedReady:     4,
	StateLoadRunning:      5,
	StateLoaded:           6,
}

// Valid reports whether s is a known run state.
func (s State) Valid() bool {
	_, ok := stateOrder[s]
	return ok
}

// Terminal reports whether a run in state s is finished.
func (s State) Terminal() bool {
	return s == StateLoaded
}

// CanAdvanceTo reports whether next is a legal transition from s.
// Only forward transitions are legal; duplicated event deliveries
// therefore fail the check instead of re-running a stage.
func (s State) CanAdvanceTo(next State) bool {
	from, ok := stateOrder[s]
	if !ok {
		return false
	}
	to, ok := stateOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// ParseState validates a raw state string.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown run state %q", raw)
	}
	return s, nil
}
