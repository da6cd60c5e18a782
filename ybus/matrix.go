// Package ybus: dense complex matrix storage. Row-major flat slice for
// cache friendliness; every accessor is bounds-checked and returns the
// package sentinel on violation.
package ybus

import (
	"errors"
	"fmt"
)

// ErrInvalidDimension indicates a requested matrix dimension below 1.
var ErrInvalidDimension = errors.New("ybus: dimension must be > 0")

// ErrIndexOutOfBounds indicates a row or column index outside [0, n).
var ErrIndexOutOfBounds = errors.New("ybus: index out of bounds")

// matrixErrorf wraps a sentinel with method and index context.
func matrixErrorf(method string, row, col int, err error) error {
	return fmt.Errorf("Matrix.%s(%d,%d): %w", method, row, col, err)
}

// Matrix is a square, dense, row-major complex admittance matrix.
// The zero value is unusable; construct via NewMatrix or Build.
type Matrix struct {
	n    int          // dimension (bus count)
	data []complex128 // flat backing storage, length n*n
}

// NewMatrix allocates an n×n zero matrix.
// Complexity: O(n²) time and memory.
func NewMatrix(n int) (*Matrix, error) {
	if n <= 0 {
		return nil, ErrInvalidDimension
	}

	return &Matrix{n: n, data: make([]complex128, n*n)}, nil
}

// Dim returns the matrix dimension n. Complexity: O(1).
func (m *Matrix) Dim() int { return m.n }

// indexOf computes the flat index for (row, col) or reports a bounds error.
func (m *Matrix) indexOf(method string, row, col int) (int, error) {
	if row < 0 || row >= m.n {
		return 0, matrixErrorf(method, row, col, ErrIndexOutOfBounds)
	}
	if col < 0 || col >= m.n {
		return 0, matrixErrorf(method, row, col, ErrIndexOutOfBounds)
	}

	return row*m.n + col, nil
}

// At returns the element at (row, col). Complexity: O(1).
func (m *Matrix) At(row, col int) (complex128, error) {
	idx, err := m.indexOf("At", row, col)
	if err != nil {
		return 0, err
	}

	return m.data[idx], nil
}

// Set assigns v at (row, col). Complexity: O(1).
func (m *Matrix) Set(row, col int, v complex128) error {
	idx, err := m.indexOf("Set", row, col)
	if err != nil {
		return err
	}
	m.data[idx] = v

	return nil
}

// AddAt accumulates v into (row, col); this is the stamping primitive.
// Complexity: O(1).
func (m *Matrix) AddAt(row, col int, v complex128) error {
	idx, err := m.indexOf("AddAt", row, col)
	if err != nil {
		return err
	}
	m.data[idx] += v

	return nil
}

// Clone returns an independent deep copy. Complexity: O(n²).
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{n: m.n, data: make([]complex128, len(m.data))}
	copy(out.data, m.data)

	return out
}

// at is the unchecked fast path used by in-package kernels after the
// dimension has already been validated against the network.
func (m *Matrix) at(row, col int) complex128 { return m.data[row*m.n+col] }

// MulVec computes Y·v into a freshly allocated slice. The solver and the
// result assembler both need the implied current injections I = Y·V.
// Returns ErrInvalidDimension when len(v) != n.
// Complexity: O(n²).
func (m *Matrix) MulVec(v []complex128) ([]complex128, error) {
	if len(v) != m.n {
		return nil, fmt.Errorf("Matrix.MulVec: length %d vs dimension %d: %w", len(v), m.n, ErrInvalidDimension)
	}

	out := make([]complex128, m.n)
	var (
		row, col int
		sum      complex128
	)
	for row = 0; row < m.n; row++ {
		sum = 0
		for col = 0; col < m.n; col++ {
			sum += m.data[row*m.n+col] * v[col]
		}
		out[row] = sum
	}

	return out, nil
}

// RowDot computes the dot product of row i with v, excluding column skip
// (pass -1 to include every column). The Gauss-Seidel update uses it to
// form Σ_{j≠i} Y_ij·V_j without allocating. Complexity: O(n).
func (m *Matrix) RowDot(i int, v []complex128, skip int) (complex128, error) {
	if i < 0 || i >= m.n {
		return 0, matrixErrorf("RowDot", i, 0, ErrIndexOutOfBounds)
	}
	if len(v) != m.n {
		return 0, fmt.Errorf("Matrix.RowDot: length %d vs dimension %d: %w", len(v), m.n, ErrInvalidDimension)
	}

	var (
		col int
		sum complex128
	)
	for col = 0; col < m.n; col++ {
		if col == skip {
			continue
		}
		sum += m.data[i*m.n+col] * v[col]
	}

	return sum, nil
}
