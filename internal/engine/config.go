package engine

import (
	"fmt"
	"log/slog"

	"github.com/evochora/evochora-sub009/internal/engineerr"
	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/thermo"
)

// OrganismConfig fixes the register/stack/pointer shape new organisms are
// built with: how many data pointers, and how many slots in each register
// file. AddNewOrganism uses these defaults for every newborn it allocates
// directly (FORK-spawned newborns instead inherit their parent's shape via
// the vm package).
type OrganismConfig struct {
	DPCount    int
	DataRegs   int
	ProcRegs   int
	FPRegs     int
	LocRegs    int
}

func (c OrganismConfig) validate() error {
	if c.DPCount < 1 {
		return engineerr.New(engineerr.KindConfiguration, "organism config", fmt.Errorf("dpCount must be >= 1, got %d", c.DPCount))
	}
	return nil
}

// Config is the full construction configuration for a fresh Engine.
type Config struct {
	RunID            string
	Grid             *grid.Grid
	Policy           thermo.Policy
	ErrorPenaltyCost int64
	MaxInstantSkip   int32
	PoolSize         int
	Scaling          ParallelismScaling
	Organism         OrganismConfig
	Seed             uint64

	// EncoderA, EncoderS, EncoderC are the codec's config triple: the
	// accumulated-delta interval, the snapshot interval (in A-periods),
	// and the chunk interval (in snapshot periods, so A·S·C samples).
	EncoderA, EncoderS, EncoderC int

	Log *slog.Logger
}

func (c Config) validate() error {
	if c.Grid == nil {
		return engineerr.New(engineerr.KindConfiguration, "engine config", fmt.Errorf("grid must not be nil"))
	}
	if c.PoolSize < 1 {
		return engineerr.New(engineerr.KindConfiguration, "engine config", fmt.Errorf("poolSize must be >= 1, got %d", c.PoolSize))
	}
	if c.EncoderA < 1 || c.EncoderS < 1 || c.EncoderC < 1 {
		return engineerr.New(engineerr.KindConfiguration, "engine config",
			fmt.Errorf("encoder intervals must all be positive, got A=%d S=%d C=%d", c.EncoderA, c.EncoderS, c.EncoderC))
	}
	if err := c.Scaling.validate(); err != nil {
		return err
	}
	return c.Organism.validate()
}
