// Package codec implements the delta-compressed history codec over the
// internal/wire schema: the Encoder samples grid and organism state into
// snapshot/delta chunks, the Decoder replays them back into mutable cell
// state (spec.md §4.8/§4.9).
package codec

import (
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/wire"
)

func toWireRegister(r organism.RegisterValue) wire.RegisterValue {
	return wire.RegisterValue{IsVector: r.IsVector, Scalar: r.Scalar, Vector: append([]int32(nil), r.Vector...)}
}

func fromWireRegister(r wire.RegisterValue) organism.RegisterValue {
	return organism.RegisterValue{IsVector: r.IsVector, Scalar: r.Scalar, Vector: append([]int32(nil), r.Vector...)}
}

func toWireRegisters(rs []organism.RegisterValue) []wire.RegisterValue {
	out := make([]wire.RegisterValue, len(rs))
	for i, r := range rs {
		out[i] = toWireRegister(r)
	}
	return out
}

func fromWireRegisters(rs []wire.RegisterValue) []organism.RegisterValue {
	out := make([]organism.RegisterValue, len(rs))
	for i, r := range rs {
		out[i] = fromWireRegister(r)
	}
	return out
}

func toWireCallFrame(f organism.CallFrame) wire.CallFrame {
	keys := make([]int32, 0, len(f.FPRBindings))
	vals := make([]int32, 0, len(f.FPRBindings))
	for k, v := range f.FPRBindings {
		keys = append(keys, int32(k))
		vals = append(vals, int32(v))
	}
	return wire.CallFrame{
		ReturnIP:    append([]int32(nil), f.ReturnIP...),
		SavedPRs:    toWireRegisters(f.SavedPRs),
		SavedFPRs:   toWireRegisters(f.SavedFPRs),
		FPRBindKeys: keys,
		FPRBindVals: vals,
	}
}

func fromWireCallFrame(f wire.CallFrame) organism.CallFrame {
	bindings := make(map[int]int, len(f.FPRBindKeys))
	for i, k := range f.FPRBindKeys {
		if i < len(f.FPRBindVals) {
			bindings[int(k)] = int(f.FPRBindVals[i])
		}
	}
	return organism.CallFrame{
		ReturnIP:    append([]int32(nil), f.ReturnIP...),
		SavedPRs:    fromWireRegisters(f.SavedPRs),
		SavedFPRs:   fromWireRegisters(f.SavedFPRs),
		FPRBindings: bindings,
	}
}

// ToWireOrganism converts an in-memory organism into its wire
// representation for serialization into a TickData/TickDelta.
func ToWireOrganism(o *organism.Organism) wire.OrganismState {
	frames := make([]wire.CallFrame, len(o.CallStack))
	for i, f := range o.CallStack {
		frames[i] = toWireCallFrame(f)
	}
	dps := make([][]int32, len(o.DPs))
	for i, dp := range o.DPs {
		dps[i] = append([]int32(nil), dp...)
	}
	locStack := make([][]int32, len(o.LocationStack))
	for i, ls := range o.LocationStack {
		locStack[i] = append([]int32(nil), ls...)
	}
	return wire.OrganismState{
		ID:                o.ID,
		ProgramID:         o.ProgramID,
		BirthTick:         o.BirthTick,
		IP:                append([]int32(nil), o.IP...),
		DV:                append([]int32(nil), o.DV...),
		DPs:               dps,
		ActiveDPIndex:     int32(o.ActiveDPIndex),
		DataRegisters:     toWireRegisters(o.DataRegisters),
		ProcRegisters:     toWireRegisters(o.ProcRegisters),
		FormalParamRegs:   toWireRegisters(o.FormalParamRegisters),
		LocationRegisters: toWireRegisters(o.LocationRegisters),
		DataStack:         toWireRegisters(o.DataStack),
		LocationStack:     locStack,
		CallStack:         frames,
		Energy:            o.Energy,
		Entropy:           o.Entropy,
		Marker:            o.Marker,
		GenomeHash:        o.GenomeHash,
		InitialPosition:   append([]int32(nil), o.InitialPosition...),
		IsDead:            o.IsDead,
		InstructionFailed: o.InstructionFailed,
		HasParent:         o.HasParent,
		ParentID:          o.ParentID,
		HasDeathTick:      o.HasDeathTick,
		DeathTick:         o.DeathTick,
		FailureReason:     o.LastFailureReason,
	}
}

// FromWireOrganism rebuilds an in-memory organism from its wire
// representation, as used by the checkpoint restorer.
func FromWireOrganism(s wire.OrganismState) *organism.Organism {
	frames := make([]organism.CallFrame, len(s.CallStack))
	for i, f := range s.CallStack {
		frames[i] = fromWireCallFrame(f)
	}
	dps := make([][]int32, len(s.DPs))
	for i, dp := range s.DPs {
		dps[i] = append([]int32(nil), dp...)
	}
	locStack := make([][]int32, len(s.LocationStack))
	for i, ls := range s.LocationStack {
		locStack[i] = append([]int32(nil), ls...)
	}
	return &organism.Organism{
		ID:                   s.ID,
		ProgramID:            s.ProgramID,
		BirthTick:            s.BirthTick,
		IP:                   append([]int32(nil), s.IP...),
		DV:                   append([]int32(nil), s.DV...),
		DPs:                  dps,
		ActiveDPIndex:        int(s.ActiveDPIndex),
		DataRegisters:        fromWireRegisters(s.DataRegisters),
		ProcRegisters:        fromWireRegisters(s.ProcRegisters),
		FormalParamRegisters: fromWireRegisters(s.FormalParamRegs),
		LocationRegisters:    fromWireRegisters(s.LocationRegisters),
		DataStack:            fromWireRegisters(s.DataStack),
		LocationStack:        locStack,
		CallStack:            frames,
		Energy:               s.Energy,
		Entropy:              s.Entropy,
		Marker:               s.Marker,
		GenomeHash:           s.GenomeHash,
		InitialPosition:      append([]int32(nil), s.InitialPosition...),
		IsDead:               s.IsDead,
		InstructionFailed:    s.InstructionFailed,
		HasParent:            s.HasParent,
		ParentID:             s.ParentID,
		HasDeathTick:         s.HasDeathTick,
		DeathTick:            s.DeathTick,
		LastFailureReason:    s.FailureReason,
	}
}
