package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

func appendVarint(b []byte, field int32, v uint64) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSignedVarint(b []byte, field int32, v int64) []byte {
	return appendVarint(b, field, uint64(v))
}

func appendBool(b []byte, field int32, v bool) []byte {
	n := uint64(0)
	if v {
		n = 1
	}
	return appendVarint(b, field, n)
}

func appendBytes(b []byte, field int32, v []byte) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, field int32, v string) []byte {
	return appendBytes(b, field, []byte(v))
}

func appendSubmessage(b []byte, field int32, msg []byte) []byte {
	return appendBytes(b, field, msg)
}

// appendInt32Vec encodes vals as a submessage body of unpacked repeated
// varint fields, each tagged fnVecItems, so it can be embedded for nested
// []int32 values (DPs, LocationStack, register vectors, call-frame IPs and
// bindings).
func appendInt32Vec(vals []int32) []byte {
	var inner []byte
	for _, v := range vals {
		inner = protowire.AppendTag(inner, protowire.Number(fnVecItems), protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(uint32(v)))
	}
	return inner
}

func appendPackedInt32(b []byte, field int32, vals []int32) []byte {
	var inner []byte
	for _, v := range vals {
		inner = protowire.AppendVarint(inner, uint64(uint32(v)))
	}
	return appendBytes(b, field, inner)
}

func appendPackedUint64(b []byte, field int32, vals []uint64) []byte {
	var inner []byte
	for _, v := range vals {
		inner = protowire.AppendVarint(inner, v)
	}
	return appendBytes(b, field, inner)
}

func encodeCellColumns(c CellDataColumns) []byte {
	var b []byte
	b = appendPackedInt32(b, fnCellFlatIndices, c.FlatIndices)
	b = appendPackedInt32(b, fnCellMoleculeData, c.MoleculeData)
	b = appendPackedInt32(b, fnCellOwnerIds, c.OwnerIDs)
	return b
}

func encodeRegisterValue(r RegisterValue) []byte {
	var b []byte
	b = appendBool(b, fnRegIsVector, r.IsVector)
	b = appendSignedVarint(b, fnRegScalar, r.Scalar)
	if len(r.Vector) > 0 {
		b = appendBytes(b, fnRegVector, appendInt32Vec(r.Vector))
	}
	return b
}

func encodeRegisterValues(field int32, vals []RegisterValue) []byte {
	var b []byte
	for _, r := range vals {
		b = appendSubmessage(b, field, encodeRegisterValue(r))
	}
	return b
}

func encodeCallFrame(f CallFrame) []byte {
	var b []byte
	if len(f.ReturnIP) > 0 {
		b = appendBytes(b, fnFrameReturnIP, appendInt32Vec(f.ReturnIP))
	}
	for _, r := range f.SavedPRs {
		b = appendSubmessage(b, fnFrameSavedPRs, encodeRegisterValue(r))
	}
	for _, r := range f.SavedFPRs {
		b = appendSubmessage(b, fnFrameSavedFPRs, encodeRegisterValue(r))
	}
	if len(f.FPRBindKeys) > 0 {
		b = appendBytes(b, fnFrameFPRBindKeys, appendInt32Vec(f.FPRBindKeys))
	}
	if len(f.FPRBindVals) > 0 {
		b = appendBytes(b, fnFrameFPRBindVals, appendInt32Vec(f.FPRBindVals))
	}
	return b
}

func encodeOrganismState(o OrganismState) []byte {
	var b []byte
	b = appendSignedVarint(b, fnOrgID, int64(o.ID))
	b = appendString(b, fnOrgProgramID, o.ProgramID)
	b = appendVarint(b, fnOrgBirthTick, o.BirthTick)
	b = appendPackedInt32(b, fnOrgIP, o.IP)
	b = appendPackedInt32(b, fnOrgDV, o.DV)
	for _, dp := range o.DPs {
		b = appendSubmessage(b, fnOrgDPs, appendInt32Vec(dp))
	}
	b = appendSignedVarint(b, fnOrgActiveDPIndex, int64(o.ActiveDPIndex))
	b = append(b, encodeRegisterValues(fnOrgDataRegisters, o.DataRegisters)...)
	b = append(b, encodeRegisterValues(fnOrgProcRegisters, o.ProcRegisters)...)
	b = append(b, encodeRegisterValues(fnOrgFormalParamRegs, o.FormalParamRegs)...)
	b = append(b, encodeRegisterValues(fnOrgLocationRegisters, o.LocationRegisters)...)
	b = append(b, encodeRegisterValues(fnOrgDataStack, o.DataStack)...)
	for _, ls := range o.LocationStack {
		b = appendSubmessage(b, fnOrgLocationStack, appendInt32Vec(ls))
	}
	for _, f := range o.CallStack {
		b = appendSubmessage(b, fnOrgCallStack, encodeCallFrame(f))
	}
	b = appendSignedVarint(b, fnOrgEnergy, o.Energy)
	b = appendSignedVarint(b, fnOrgEntropy, o.Entropy)
	b = appendSignedVarint(b, fnOrgMarker, o.Marker)
	b = appendVarint(b, fnOrgGenomeHash, o.GenomeHash)
	b = appendPackedInt32(b, fnOrgInitialPosition, o.InitialPosition)
	b = appendBool(b, fnOrgIsDead, o.IsDead)
	b = appendBool(b, fnOrgInstructionFailed, o.InstructionFailed)
	b = appendBool(b, fnOrgHasParent, o.HasParent)
	if o.HasParent {
		b = appendSignedVarint(b, fnOrgParentID, int64(o.ParentID))
	}
	b = appendBool(b, fnOrgHasDeathTick, o.HasDeathTick)
	if o.HasDeathTick {
		b = appendVarint(b, fnOrgDeathTick, o.DeathTick)
	}
	if o.FailureReason != "" {
		b = appendString(b, fnOrgFailureReason, o.FailureReason)
	}
	return b
}

func encodePluginState(p PluginState) []byte {
	var b []byte
	b = appendString(b, fnPluginClass, p.PluginClass)
	b = appendBytes(b, fnPluginStateBlob, p.StateBlob)
	return b
}

// EncodeTickData serializes a full TickData snapshot.
func EncodeTickData(t TickData) []byte {
	var b []byte
	b = appendString(b, fnTickRunID, t.RunID)
	b = appendVarint(b, fnTickNumber, t.TickNumber)
	b = appendVarint(b, fnTickCaptureTimeMs, t.CaptureTimeMs)
	b = appendSubmessage(b, fnTickCellColumns, encodeCellColumns(t.CellColumns))
	for _, o := range t.Organisms {
		b = appendSubmessage(b, fnTickOrganisms, encodeOrganismState(o))
	}
	b = appendVarint(b, fnTickTotalCreated, t.TotalOrganismsCreated)
	b = appendBytes(b, fnTickRNGState, t.RNGState)
	for _, p := range t.PluginStates {
		b = appendSubmessage(b, fnTickPluginStates, encodePluginState(p))
	}
	b = appendPackedUint64(b, fnTickAllGenomeHashes, t.AllGenomeHashesEverSeen)
	return b
}

// EncodeTickDelta serializes a TickDelta.
func EncodeTickDelta(d TickDelta) []byte {
	var b []byte
	b = appendVarint(b, fnDeltaTickNumber, d.TickNumber)
	b = appendVarint(b, fnDeltaCaptureTimeMs, d.CaptureTimeMs)
	b = appendVarint(b, fnDeltaType, uint64(d.DeltaType))
	b = appendSubmessage(b, fnDeltaChangedCells, encodeCellColumns(d.ChangedCells))
	b = appendString(b, fnDeltaRunID, d.RunID)
	b = appendVarint(b, fnDeltaTotalCreated, d.TotalOrganismsCreated)
	b = appendBytes(b, fnDeltaRNGState, d.RNGState)
	for _, p := range d.PluginStates {
		b = appendSubmessage(b, fnDeltaPluginStates, encodePluginState(p))
	}
	b = appendPackedUint64(b, fnDeltaAllGenomeHashes, d.AllGenomeHashesEverSeen)
	return b
}

// EncodeChunk serializes a complete TickDataChunk.
func EncodeChunk(c TickDataChunk) []byte {
	var b []byte
	b = appendString(b, fnChunkRunID, c.RunID)
	b = appendVarint(b, fnChunkFirstTick, c.FirstTick)
	b = appendVarint(b, fnChunkLastTick, c.LastTick)
	b = appendVarint(b, fnChunkTickCount, uint64(c.TickCount))
	b = appendSubmessage(b, fnChunkSnapshot, EncodeTickData(c.Snapshot))
	for _, d := range c.Deltas {
		b = appendSubmessage(b, fnChunkDeltas, EncodeTickDelta(d))
	}
	return b
}

// EncodeMetadata serializes a SimulationMetadata blob.
func EncodeMetadata(m SimulationMetadata) []byte {
	var b []byte
	b = appendString(b, fnMetaRunID, m.RunID)
	b = appendSignedVarint(b, fnMetaInitialSeed, m.InitialSeed)
	b = appendSignedVarint(b, fnMetaStartTimeMs, m.StartTimeMs)
	b = appendString(b, fnMetaResolvedConfigJSON, m.ResolvedConfigJSON)
	b = appendString(b, fnMetaProgramsJSON, m.ProgramsJSON)
	b = appendPackedInt32(b, fnMetaShape, m.Shape)
	b = appendBool(b, fnMetaToroidal, m.Toroidal)
	return b
}
