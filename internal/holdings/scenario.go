package holdings

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/seenimoa/bondrisk/pkg/models"
	"github.com/seenimoa/bondrisk/pkg/utils"
)

// Scenario file keys.
const (
	keyParallel      = "parallel_shift_bps"
	keyPerInstrument = "per_instrument_shift_bps"
)

// ErrInvalidScenario is returned when a scenario file sets neither or both
// shock kinds.
var ErrInvalidScenario = errors.New("invalid scenario")

// LoadScenario reads a shock scenario from a YAML or JSON file:
//
//	parallel_shift_bps: 25
//
// or
//
//	per_instrument_shift_bps:
//	  IN0020200011: -10
//	  IN0020210027: 35
func LoadScenario(path string) (models.ShockScenario, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return models.ShockScenario{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return models.ShockScenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	sc, err := ReadScenario(f, format)
	if err != nil {
		return models.ShockScenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ReadScenario parses a shock scenario from r.
func ReadScenario(r io.Reader, format Format) (models.ShockScenario, error) {
	if format == FormatCSV {
		return models.ShockScenario{}, fmt.Errorf("%w: scenarios must be yaml or json", ErrUnsupportedFormat)
	}
	v := viper.New()
	v.SetConfigType(string(format))
	if err := v.ReadConfig(r); err != nil {
		return models.ShockScenario{}, fmt.Errorf("parse %s: %w", format, err)
	}

	hasParallel, hasPer := v.IsSet(keyParallel), v.IsSet(keyPerInstrument)
	switch {
	case hasParallel && hasPer:
		return models.ShockScenario{}, fmt.Errorf("%w: both %s and %s are set", ErrInvalidScenario, keyParallel, keyPerInstrument)
	case hasParallel:
		var bps int
		if err := v.UnmarshalKey(keyParallel, &bps); err != nil {
			return models.ShockScenario{}, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, keyParallel, err)
		}
		return models.ParallelShift(bps), nil
	case hasPer:
		var raw map[string]int
		if err := v.UnmarshalKey(keyPerInstrument, &raw); err != nil {
			return models.ShockScenario{}, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, keyPerInstrument, err)
		}
		shifts, err := NormalizeShifts(raw)
		if err != nil {
			return models.ShockScenario{}, err
		}
		return models.PerInstrumentShift(shifts), nil
	}
	return models.ShockScenario{}, fmt.Errorf("%w: set %s or %s", ErrInvalidScenario, keyParallel, keyPerInstrument)
}

// NormalizeShifts normalises the ISIN keys of a per-instrument shift map.
// Keys that collide after normalisation are rejected.
func NormalizeShifts(raw map[string]int) (map[string]int, error) {
	out := make(map[string]int, len(raw))
	for k, bps := range raw {
		id := utils.NormalizeISIN(k)
		if id == "" {
			return nil, fmt.Errorf("%w: empty isin in %s", ErrInvalidScenario, keyPerInstrument)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("%w: isin %s listed twice", ErrInvalidScenario, id)
		}
		out[id] = bps
	}
	return out, nil
}
