package kll

import "fmt"

// sketchStructure identifies one of the serialized layouts of the
// cross-language KLL format by its (preamble ints, serial version) pair.
type sketchStructure struct {
	preInts int
	serVer  int
}

var (
	_COMPACT_EMPTY  = sketchStructure{_PREAMBLE_INTS_EMPTY_SINGLE, _SERIAL_VERSION_EMPTY_FULL}
	_COMPACT_SINGLE = sketchStructure{_PREAMBLE_INTS_EMPTY_SINGLE, _SERIAL_VERSION_SINGLE}
	_COMPACT_FULL   = sketchStructure{_PREAMBLE_INTS_FULL, _SERIAL_VERSION_EMPTY_FULL}
	_UPDATABLE      = sketchStructure{_PREAMBLE_INTS_FULL, _SERIAL_VERSION_UPDATABLE}
)

func (s sketchStructure) getPreInts() int { return s.preInts }

func (s sketchStructure) getSerVer() int { return s.serVer }

func getSketchStructure(preInts, serVer int) (sketchStructure, error) {
	if preInts == _PREAMBLE_INTS_EMPTY_SINGLE {
		if serVer == _SERIAL_VERSION_EMPTY_FULL {
			return _COMPACT_EMPTY, nil
		} else if serVer == _SERIAL_VERSION_SINGLE {
			return _COMPACT_SINGLE, nil
		}
	} else if preInts == _PREAMBLE_INTS_FULL {
		if serVer == _SERIAL_VERSION_EMPTY_FULL {
			return _COMPACT_FULL, nil
		} else if serVer == _SERIAL_VERSION_UPDATABLE {
			return _UPDATABLE, nil
		}
	}
	return sketchStructure{}, fmt.Errorf("%w: invalid preamble ints and serial version combo: %d, %d",
		ErrMalformedInput, preInts, serVer)
}
