package state

import (
	"fmt"

	"github.com/ctessum/sparse"

	"pelagos/internal/coords"
)

// Region selects a half-open [lo, hi) index range per axis. Axes absent from
// the region are taken whole.
type Region map[coords.Axis][2]int

func (r Region) bounds(ax coords.Axis, size int) (int, int, error) {
	span, ok := r[ax]
	if !ok {
		return 0, size, nil
	}
	lo, hi := span[0], span[1]
	if lo < 0 || hi > size || lo >= hi {
		return 0, 0, fmt.Errorf("region [%d,%d) out of range for axis %s of size %d", lo, hi, ax, size)
	}
	return lo, hi, nil
}

// Slice forces the array and copies out the sub-block selected by the
// region. Coordinates are narrowed accordingly.
func (a *Array) Slice(r Region) (*Array, error) {
	data, err := a.Data()
	if err != nil {
		return nil, err
	}
	if len(a.dims) == 0 {
		return a.Clone()
	}

	shape := a.Shape()
	los := make([]int, len(shape))
	outShape := make([]int, len(shape))
	subCoords := make([]coords.Coordinate, len(shape))
	for i, ax := range a.dims {
		lo, hi, err := r.bounds(ax, shape[i])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", a.name, err)
		}
		los[i] = lo
		outShape[i] = hi - lo
		c := a.coord[ax]
		sub := coords.Coordinate{Axis: ax, Values: c.Values[lo:hi], Attrs: c.Attrs}
		subCoords[i] = sub.Clone()
	}

	out := sparse.ZerosDense(outShape...)
	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	copyBlock(data, out, los, outShape, idx, src, 0)
	return NewArray(a.name, subCoords, out, a.attrs)
}

func copyBlock(src, dst *sparse.DenseArray, los, outShape, outIdx, srcIdx []int, depth int) {
	if depth == len(outShape) {
		dst.Set(src.Get(srcIdx...), outIdx...)
		return
	}
	for i := 0; i < outShape[depth]; i++ {
		outIdx[depth] = i
		srcIdx[depth] = los[depth] + i
		copyBlock(src, dst, los, outShape, outIdx, srcIdx, depth+1)
	}
}

// SetRegion writes a block produced for a region back into the array at the
// region's offsets. The block's shape must match the region extent on every
// axis; broadcasting is not supported.
func (a *Array) SetRegion(r Region, block *Array) error {
	dst, err := a.Data()
	if err != nil {
		return err
	}
	src, err := block.Data()
	if err != nil {
		return err
	}
	if len(a.dims) == 0 {
		dst.Elements[0] = src.Elements[0]
		return nil
	}
	shape := a.Shape()
	los := make([]int, len(shape))
	extent := make([]int, len(shape))
	blockShape := block.Shape()
	if len(blockShape) != len(shape) {
		return fmt.Errorf("field %s: block rank %d does not match array rank %d", a.name, len(blockShape), len(shape))
	}
	for i, ax := range a.dims {
		lo, hi, err := r.bounds(ax, shape[i])
		if err != nil {
			return fmt.Errorf("field %s: %w", a.name, err)
		}
		if blockShape[i] != hi-lo {
			return fmt.Errorf("field %s: block axis %s size %d does not match region extent %d",
				a.name, ax, blockShape[i], hi-lo)
		}
		los[i] = lo
		extent[i] = hi - lo
	}
	idx := make([]int, len(shape))
	dstIdx := make([]int, len(shape))
	writeBlock(src, dst, los, extent, idx, dstIdx, 0)
	return nil
}

func writeBlock(src, dst *sparse.DenseArray, los, extent, srcIdx, dstIdx []int, depth int) {
	if depth == len(extent) {
		dst.Set(src.Get(srcIdx...), dstIdx...)
		return
	}
	for i := 0; i < extent[depth]; i++ {
		srcIdx[depth] = i
		dstIdx[depth] = los[depth] + i
		writeBlock(src, dst, los, extent, srcIdx, dstIdx, depth+1)
	}
}

// Partition splits the sizes of the chunked axes into regions of at most the
// requested chunk length, producing the cartesian product of per-axis spans.
// Axes without a chunk entry stay whole. A nil or empty chunk map yields one
// full region.
func Partition(sizes map[coords.Axis]int, chunks map[coords.Axis]int) []Region {
	axes := make([]coords.Axis, 0, len(chunks))
	for _, ax := range coords.Ordered() {
		if n, ok := chunks[ax]; ok && n > 0 {
			if _, present := sizes[ax]; present {
				axes = append(axes, ax)
			}
		}
	}
	if len(axes) == 0 {
		return []Region{{}}
	}

	spansPerAxis := make([][][2]int, len(axes))
	for i, ax := range axes {
		size := sizes[ax]
		step := chunks[ax]
		var spans [][2]int
		for lo := 0; lo < size; lo += step {
			hi := lo + step
			if hi > size {
				hi = size
			}
			spans = append(spans, [2]int{lo, hi})
		}
		spansPerAxis[i] = spans
	}

	regions := []Region{{}}
	for i, ax := range axes {
		next := make([]Region, 0, len(regions)*len(spansPerAxis[i]))
		for _, base := range regions {
			for _, span := range spansPerAxis[i] {
				r := Region{}
				for k, v := range base {
					r[k] = v
				}
				r[ax] = span
				next = append(next, r)
			}
		}
		regions = next
	}
	return regions
}
