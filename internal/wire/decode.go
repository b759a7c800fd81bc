package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// fieldVisitor is called once per top-level field encountered while
// decoding b. It must consume exactly the value bytes for (num,typ) and
// return the number of bytes consumed, or an error. Unknown field numbers
// are the caller's responsibility to skip via protowire.ConsumeFieldValue.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("wire: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		consumed, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if consumed < 0 {
			return fmt.Errorf("wire: field %d: negative consume", num)
		}
		b = b[consumed:]
	}
	return nil
}

func skipField(typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, fmt.Errorf("wire: skip field: %w", protowire.ParseError(n))
	}
	return n, nil
}

func consumeVarintField(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("wire: varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytesField(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("wire: bytes: %w", protowire.ParseError(n))
	}
	return append([]byte(nil), v...), n, nil
}

func decodePackedInt32(buf []byte) ([]int32, error) {
	var out []int32
	for len(buf) > 0 {
		v, n := protowire.ConsumeVarint(buf)
		if n < 0 {
			return nil, fmt.Errorf("wire: packed int32: %w", protowire.ParseError(n))
		}
		out = append(out, int32(uint32(v)))
		buf = buf[n:]
	}
	return out, nil
}

func decodePackedUint64(buf []byte) ([]uint64, error) {
	var out []uint64
	for len(buf) > 0 {
		v, n := protowire.ConsumeVarint(buf)
		if n < 0 {
			return nil, fmt.Errorf("wire: packed uint64: %w", protowire.ParseError(n))
		}
		out = append(out, v)
		buf = buf[n:]
	}
	return out, nil
}

func decodeInt32Vec(buf []byte) ([]int32, error) {
	var out []int32
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if int32(num) != fnVecItems || typ != protowire.VarintType {
			return skipField(typ, b)
		}
		v, n, err := consumeVarintField(b)
		if err != nil {
			return 0, err
		}
		out = append(out, int32(uint32(v)))
		return n, nil
	})
	return out, err
}

func decodeCellColumns(buf []byte) (CellDataColumns, error) {
	var c CellDataColumns
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnCellFlatIndices:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedInt32(v)
			if err != nil {
				return 0, err
			}
			c.FlatIndices = vals
			return n, nil
		case fnCellMoleculeData:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedInt32(v)
			if err != nil {
				return 0, err
			}
			c.MoleculeData = vals
			return n, nil
		case fnCellOwnerIds:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedInt32(v)
			if err != nil {
				return 0, err
			}
			c.OwnerIDs = vals
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return c, err
}

func decodeRegisterValue(buf []byte) (RegisterValue, error) {
	var r RegisterValue
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnRegIsVector:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			r.IsVector = v != 0
			return n, nil
		case fnRegScalar:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			r.Scalar = int64(v)
			return n, nil
		case fnRegVector:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodeInt32Vec(v)
			if err != nil {
				return 0, err
			}
			r.Vector = vals
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return r, err
}

func decodeCallFrame(buf []byte) (CallFrame, error) {
	var f CallFrame
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnFrameReturnIP:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodeInt32Vec(v)
			if err != nil {
				return 0, err
			}
			f.ReturnIP = vals
			return n, nil
		case fnFrameSavedPRs:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			rv, err := decodeRegisterValue(v)
			if err != nil {
				return 0, err
			}
			f.SavedPRs = append(f.SavedPRs, rv)
			return n, nil
		case fnFrameSavedFPRs:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			rv, err := decodeRegisterValue(v)
			if err != nil {
				return 0, err
			}
			f.SavedFPRs = append(f.SavedFPRs, rv)
			return n, nil
		case fnFrameFPRBindKeys:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodeInt32Vec(v)
			if err != nil {
				return 0, err
			}
			f.FPRBindKeys = vals
			return n, nil
		case fnFrameFPRBindVals:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodeInt32Vec(v)
			if err != nil {
				return 0, err
			}
			f.FPRBindVals = vals
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return f, err
}

func decodeOrganismState(buf []byte) (OrganismState, error) {
	var o OrganismState
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnOrgID:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.ID = int32(v)
			return n, nil
		case fnOrgProgramID:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			o.ProgramID = string(v)
			return n, nil
		case fnOrgBirthTick:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.BirthTick = v
			return n, nil
		case fnOrgIP:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedInt32(v)
			if err != nil {
				return 0, err
			}
			o.IP = vals
			return n, nil
		case fnOrgDV:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedInt32(v)
			if err != nil {
				return 0, err
			}
			o.DV = vals
			return n, nil
		case fnOrgDPs:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodeInt32Vec(v)
			if err != nil {
				return 0, err
			}
			o.DPs = append(o.DPs, vals)
			return n, nil
		case fnOrgActiveDPIndex:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.ActiveDPIndex = int32(v)
			return n, nil
		case fnOrgDataRegisters:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			rv, err := decodeRegisterValue(v)
			if err != nil {
				return 0, err
			}
			o.DataRegisters = append(o.DataRegisters, rv)
			return n, nil
		case fnOrgProcRegisters:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			rv, err := decodeRegisterValue(v)
			if err != nil {
				return 0, err
			}
			o.ProcRegisters = append(o.ProcRegisters, rv)
			return n, nil
		case fnOrgFormalParamRegs:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			rv, err := decodeRegisterValue(v)
			if err != nil {
				return 0, err
			}
			o.FormalParamRegs = append(o.FormalParamRegs, rv)
			return n, nil
		case fnOrgLocationRegisters:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			rv, err := decodeRegisterValue(v)
			if err != nil {
				return 0, err
			}
			o.LocationRegisters = append(o.LocationRegisters, rv)
			return n, nil
		case fnOrgDataStack:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			rv, err := decodeRegisterValue(v)
			if err != nil {
				return 0, err
			}
			o.DataStack = append(o.DataStack, rv)
			return n, nil
		case fnOrgLocationStack:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodeInt32Vec(v)
			if err != nil {
				return 0, err
			}
			o.LocationStack = append(o.LocationStack, vals)
			return n, nil
		case fnOrgCallStack:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			cf, err := decodeCallFrame(v)
			if err != nil {
				return 0, err
			}
			o.CallStack = append(o.CallStack, cf)
			return n, nil
		case fnOrgEnergy:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.Energy = int64(v)
			return n, nil
		case fnOrgEntropy:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.Entropy = int64(v)
			return n, nil
		case fnOrgMarker:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.Marker = int64(v)
			return n, nil
		case fnOrgGenomeHash:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.GenomeHash = v
			return n, nil
		case fnOrgInitialPosition:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedInt32(v)
			if err != nil {
				return 0, err
			}
			o.InitialPosition = vals
			return n, nil
		case fnOrgIsDead:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.IsDead = v != 0
			return n, nil
		case fnOrgInstructionFailed:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.InstructionFailed = v != 0
			return n, nil
		case fnOrgHasParent:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.HasParent = v != 0
			return n, nil
		case fnOrgParentID:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.ParentID = int32(v)
			return n, nil
		case fnOrgHasDeathTick:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.HasDeathTick = v != 0
			return n, nil
		case fnOrgDeathTick:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			o.DeathTick = v
			return n, nil
		case fnOrgFailureReason:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			o.FailureReason = string(v)
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return o, err
}

func decodePluginState(buf []byte) (PluginState, error) {
	var p PluginState
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnPluginClass:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			p.PluginClass = string(v)
			return n, nil
		case fnPluginStateBlob:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			p.StateBlob = v
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return p, err
}

// DecodeTickData parses a full TickData snapshot.
func DecodeTickData(buf []byte) (TickData, error) {
	var t TickData
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnTickRunID:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			t.RunID = string(v)
			return n, nil
		case fnTickNumber:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			t.TickNumber = v
			return n, nil
		case fnTickCaptureTimeMs:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			t.CaptureTimeMs = v
			return n, nil
		case fnTickCellColumns:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			cc, err := decodeCellColumns(v)
			if err != nil {
				return 0, err
			}
			t.CellColumns = cc
			return n, nil
		case fnTickOrganisms:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			os, err := decodeOrganismState(v)
			if err != nil {
				return 0, err
			}
			t.Organisms = append(t.Organisms, os)
			return n, nil
		case fnTickTotalCreated:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			t.TotalOrganismsCreated = v
			return n, nil
		case fnTickRNGState:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			t.RNGState = v
			return n, nil
		case fnTickPluginStates:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			ps, err := decodePluginState(v)
			if err != nil {
				return 0, err
			}
			t.PluginStates = append(t.PluginStates, ps)
			return n, nil
		case fnTickAllGenomeHashes:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedUint64(v)
			if err != nil {
				return 0, err
			}
			t.AllGenomeHashesEverSeen = vals
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return t, err
}

// DecodeTickDelta parses a TickDelta.
func DecodeTickDelta(buf []byte) (TickDelta, error) {
	var d TickDelta
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnDeltaTickNumber:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			d.TickNumber = v
			return n, nil
		case fnDeltaCaptureTimeMs:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			d.CaptureTimeMs = v
			return n, nil
		case fnDeltaType:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			d.DeltaType = DeltaType(v)
			return n, nil
		case fnDeltaChangedCells:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			cc, err := decodeCellColumns(v)
			if err != nil {
				return 0, err
			}
			d.ChangedCells = cc
			return n, nil
		case fnDeltaRunID:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			d.RunID = string(v)
			return n, nil
		case fnDeltaTotalCreated:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			d.TotalOrganismsCreated = v
			return n, nil
		case fnDeltaRNGState:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			d.RNGState = v
			return n, nil
		case fnDeltaPluginStates:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			ps, err := decodePluginState(v)
			if err != nil {
				return 0, err
			}
			d.PluginStates = append(d.PluginStates, ps)
			return n, nil
		case fnDeltaAllGenomeHashes:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedUint64(v)
			if err != nil {
				return 0, err
			}
			d.AllGenomeHashesEverSeen = vals
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return d, err
}

// DecodeChunk parses a complete TickDataChunk.
func DecodeChunk(buf []byte) (TickDataChunk, error) {
	var c TickDataChunk
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnChunkRunID:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			c.RunID = string(v)
			return n, nil
		case fnChunkFirstTick:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			c.FirstTick = v
			return n, nil
		case fnChunkLastTick:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			c.LastTick = v
			return n, nil
		case fnChunkTickCount:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			c.TickCount = uint32(v)
			return n, nil
		case fnChunkSnapshot:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			td, err := DecodeTickData(v)
			if err != nil {
				return 0, err
			}
			c.Snapshot = td
			return n, nil
		case fnChunkDeltas:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			td, err := DecodeTickDelta(v)
			if err != nil {
				return 0, err
			}
			c.Deltas = append(c.Deltas, td)
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return c, err
}

// DecodeMetadata parses a SimulationMetadata blob.
func DecodeMetadata(buf []byte) (SimulationMetadata, error) {
	var m SimulationMetadata
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch int32(num) {
		case fnMetaRunID:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			m.RunID = string(v)
			return n, nil
		case fnMetaInitialSeed:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			m.InitialSeed = int64(v)
			return n, nil
		case fnMetaStartTimeMs:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			m.StartTimeMs = int64(v)
			return n, nil
		case fnMetaResolvedConfigJSON:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			m.ResolvedConfigJSON = string(v)
			return n, nil
		case fnMetaProgramsJSON:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			m.ProgramsJSON = string(v)
			return n, nil
		case fnMetaShape:
			v, n, err := consumeBytesField(b)
			if err != nil {
				return 0, err
			}
			vals, err := decodePackedInt32(v)
			if err != nil {
				return 0, err
			}
			m.Shape = vals
			return n, nil
		case fnMetaToroidal:
			v, n, err := consumeVarintField(b)
			if err != nil {
				return 0, err
			}
			m.Toroidal = v != 0
			return n, nil
		default:
			return skipField(typ, b)
		}
	})
	return m, err
}
