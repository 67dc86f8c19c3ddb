package biology

import (
	"fmt"
	"math"

	"pelagos/internal/coords"
	"pelagos/internal/kernel"
	"pelagos/internal/state"
	"pelagos/internal/template"
)

// GlobalMaskTransform derives the ocean/land mask from the temperature
// forcing at the first timestep: a cell is ocean where temperature is
// defined.
func GlobalMaskTransform(st *state.State) (*state.State, error) {
	temperature, err := getField(st, Temperature)
	if err != nil {
		return nil, err
	}
	yc, _ := temperature.Coord(coords.Y)
	xc, _ := temperature.Coord(coords.X)
	zc, _ := temperature.Coord(coords.Z)

	mask, data, err := newGrid(GlobalMask, []coords.Coordinate{yc, xc, zc}, globalMaskAttrs())
	if err != nil {
		return nil, err
	}
	for y := 0; y < yc.Size(); y++ {
		for x := 0; x < xc.Size(); x++ {
			for z := 0; z < zc.Size(); z++ {
				v, err := temperature.At(0, y, x, z)
				if err != nil {
					return nil, err
				}
				if !math.IsNaN(v) {
					data.Set(1, y, x, z)
				}
			}
		}
	}
	return singleFieldState(mask)
}

// MaskByFGroupTransform marks, per functional group, the cells that are
// ocean at both the group's day and night layers.
func MaskByFGroupTransform(st *state.State) (*state.State, error) {
	globalMask, err := getField(st, GlobalMask)
	if err != nil {
		return nil, err
	}
	dayLayers, err := groupValues(st, DayLayer)
	if err != nil {
		return nil, err
	}
	nightLayers, err := groupValues(st, NightLayer)
	if err != nil {
		return nil, err
	}

	fg, ok := st.Coord(coords.FunctionalGroup)
	if !ok {
		return nil, fmt.Errorf("axis %s is not defined in the state", coords.FunctionalGroup)
	}
	yc, _ := globalMask.Coord(coords.Y)
	xc, _ := globalMask.Coord(coords.X)
	zc, _ := globalMask.Coord(coords.Z)

	mask, data, err := newGrid(MaskByFGroup, []coords.Coordinate{fg, yc, xc}, maskByFGroupAttrs())
	if err != nil {
		return nil, err
	}
	for g := 0; g < fg.Size(); g++ {
		zDay, err := layerIndex(zc, dayLayers[g], DayLayer)
		if err != nil {
			return nil, err
		}
		zNight, err := layerIndex(zc, nightLayers[g], NightLayer)
		if err != nil {
			return nil, err
		}
		for y := 0; y < yc.Size(); y++ {
			for x := 0; x < xc.Size(); x++ {
				day, err := globalMask.At(y, x, zDay)
				if err != nil {
					return nil, err
				}
				night, err := globalMask.At(y, x, zNight)
				if err != nil {
					return nil, err
				}
				if day != 0 && night != 0 {
					data.Set(1, g, y, x)
				}
			}
		}
	}
	return singleFieldState(mask)
}

// GlobalMaskUnit declares the global mask computation. The mask spans the
// whole grid, so it never runs chunked.
func GlobalMaskUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"global_mask", GlobalMask, globalMaskAttrs(),
		[]template.Dim{template.AxisDim(coords.Y), template.AxisDim(coords.X), template.AxisDim(coords.Z)},
		template.Bool, GlobalMaskTransform, nil, false, scheduler,
	)
}

// MaskByFGroupUnit declares the per-functional-group mask. Frees the global
// mask afterwards: nothing downstream reads it.
func MaskByFGroupUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"mask_by_fgroup", MaskByFGroup, maskByFGroupAttrs(),
		[]template.Dim{template.AxisDim(coords.FunctionalGroup), template.AxisDim(coords.Y), template.AxisDim(coords.X)},
		template.Bool, MaskByFGroupTransform, chunks, parallel, scheduler,
		GlobalMask,
	)
}
