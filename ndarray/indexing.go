package ndarray

import "github.com/tensorforge/core/errs"

// GetItem performs 2-D fancy indexing: rowIDs/colIDs select rows/columns
// in the given order; a nil slice means "all indices on that axis, in
// order".
func (a *NdArray) GetItem(rowIDs, colIDs []int) (*NdArray, error) {
	if a.shape.Rank() != 2 {
		return nil, errs.New(errs.KindNotSupported, "GetItem requires rank 2, got rank %d", a.shape.Rank())
	}
	rows, cols := a.shape.Dim(0), a.shape.Dim(1)
	rIdx := rowIDs
	if rIdx == nil {
		rIdx = rangeInts(rows)
	}
	cIdx := colIDs
	if cIdx == nil {
		cIdx = rangeInts(cols)
	}
	out := make([]float32, len(rIdx)*len(cIdx))
	k := 0
	for _, r := range rIdx {
		if r < 0 || r >= rows {
			return nil, errs.New(errs.KindIndexOutOfBounds, "row index %d out of range (rows=%d)", r, rows)
		}
		for _, c := range cIdx {
			if c < 0 || c >= cols {
				return nil, errs.New(errs.KindIndexOutOfBounds, "col index %d out of range (cols=%d)", c, cols)
			}
			out[k] = a.buf[r*cols+c]
			k++
		}
	}
	return newRaw(NewShape(len(rIdx), len(cIdx)), out), nil
}

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Sub extracts the 2-D half-open block [rowLo:rowHi, colLo:colHi].
func (a *NdArray) Sub(rowLo, rowHi, colLo, colHi int) (*NdArray, error) {
	if a.shape.Rank() != 2 {
		return nil, errs.New(errs.KindNotSupported, "Sub requires rank 2, got rank %d", a.shape.Rank())
	}
	rows, cols := a.shape.Dim(0), a.shape.Dim(1)
	if rowLo < 0 || rowHi > rows || rowLo > rowHi || colLo < 0 || colHi > cols || colLo > colHi {
		return nil, errs.New(errs.KindIndexOutOfBounds, "invalid block [%d:%d, %d:%d] for shape %s", rowLo, rowHi, colLo, colHi, a.shape)
	}
	outRows, outCols := rowHi-rowLo, colHi-colLo
	out := make([]float32, outRows*outCols)
	for i := 0; i < outRows; i++ {
		srcOff := (rowLo+i)*cols + colLo
		copy(out[i*outCols:(i+1)*outCols], a.buf[srcOff:srcOff+outCols])
	}
	return newRaw(NewShape(outRows, outCols), out), nil
}

// AddAt scatters delta's rows into a fresh copy of a at the given rowIDs
// (and, if colIDs is non-nil, restricted to those columns), accumulating
// via addition. Used for gradient scatter (e.g. embedding backward).
func (a *NdArray) AddAt(rowIDs, colIDs []int, delta *NdArray) (*NdArray, error) {
	if a.shape.Rank() != 2 {
		return nil, errs.New(errs.KindNotSupported, "AddAt requires rank 2, got rank %d", a.shape.Rank())
	}
	rows, cols := a.shape.Dim(0), a.shape.Dim(1)
	cIdx := colIDs
	if cIdx == nil {
		cIdx = rangeInts(cols)
	}
	if delta.shape.Rank() != 2 || delta.shape.Dim(0) != len(rowIDs) || delta.shape.Dim(1) != len(cIdx) {
		return nil, errs.New(errs.KindShapeMismatch, "delta shape %s does not match (%d, %d)", delta.shape, len(rowIDs), len(cIdx))
	}
	out := a.Clone()
	for ri, r := range rowIDs {
		if r < 0 || r >= rows {
			return nil, errs.New(errs.KindIndexOutOfBounds, "row index %d out of range (rows=%d)", r, rows)
		}
		for ci, c := range cIdx {
			out.buf[r*cols+c] += delta.buf[ri*len(cIdx)+ci]
		}
	}
	return out, nil
}

// AddTo adds other into a fresh copy of a at the given row/col offset
// (an in-place-semantics block add, returned as a new array per the
// module's value-typed read API).
func (a *NdArray) AddTo(rowOff, colOff int, other *NdArray) (*NdArray, error) {
	if a.shape.Rank() != 2 || other.shape.Rank() != 2 {
		return nil, errs.New(errs.KindNotSupported, "AddTo requires rank 2 operands")
	}
	rows, cols := a.shape.Dim(0), a.shape.Dim(1)
	oRows, oCols := other.shape.Dim(0), other.shape.Dim(1)
	if rowOff < 0 || colOff < 0 || rowOff+oRows > rows || colOff+oCols > cols {
		return nil, errs.New(errs.KindIndexOutOfBounds, "block at offset (%d,%d) of size (%d,%d) does not fit in %s", rowOff, colOff, oRows, oCols, a.shape)
	}
	out := a.Clone()
	for i := 0; i < oRows; i++ {
		for j := 0; j < oCols; j++ {
			out.buf[(rowOff+i)*cols+(colOff+j)] += other.buf[i*oCols+j]
		}
	}
	return out, nil
}
