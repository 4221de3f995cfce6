// Package sparse contains a block-sparse square matrix and the factorizations used to solve the
// symmetric linear systems produced by pose-graph linearization.
package sparse

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// BlockMatrix is a square matrix split into n×n blocks of size bs×bs where only the blocks that
// have been written are stored. It implements mat.Matrix so it can be handed to gonum directly.
type BlockMatrix struct {
	n, bs int
	// rows[i][j] is block (i, j) in row-major order.
	rows []map[int][]float64
}

var _ mat.Matrix = (*BlockMatrix)(nil)

// NewBlockMatrix returns an all-zero matrix of blocks×blocks blocks, each blockSize×blockSize.
func NewBlockMatrix(blocks, blockSize int) *BlockMatrix {
	if blocks <= 0 || blockSize <= 0 {
		panic(mat.ErrZeroLength)
	}
	rows := make([]map[int][]float64, blocks)
	for i := range rows {
		rows[i] = make(map[int][]float64)
	}
	return &BlockMatrix{n: blocks, bs: blockSize, rows: rows}
}

// Dims returns the scalar dimensions of the matrix.
func (m *BlockMatrix) Dims() (r, c int) {
	return m.n * m.bs, m.n * m.bs
}

// At returns the scalar element at (i, j).
func (m *BlockMatrix) At(i, j int) float64 {
	r, c := m.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		panic(mat.ErrIndexOutOfRange)
	}
	blk, ok := m.rows[i/m.bs][j/m.bs]
	if !ok {
		return 0
	}
	return blk[(i%m.bs)*m.bs+j%m.bs]
}

// T returns the implicit transpose.
func (m *BlockMatrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// Blocks returns the number of block rows.
func (m *BlockMatrix) Blocks() int {
	return m.n
}

// BlockSize returns the size of each square block.
func (m *BlockMatrix) BlockSize() int {
	return m.bs
}

func (m *BlockMatrix) checkBlock(i, j int) {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		panic(fmt.Sprintf("sparse: block (%d, %d) out of range for %d blocks", i, j, m.n))
	}
}

// AddBlock adds a to block (i, j). a must be bs×bs.
func (m *BlockMatrix) AddBlock(i, j int, a mat.Matrix) {
	m.checkBlock(i, j)
	if r, c := a.Dims(); r != m.bs || c != m.bs {
		panic(mat.ErrShape)
	}
	blk := m.block(i, j)
	for r := 0; r < m.bs; r++ {
		for c := 0; c < m.bs; c++ {
			blk[r*m.bs+c] += a.At(r, c)
		}
	}
}

// AddIdentity adds scale·I to diagonal block i.
func (m *BlockMatrix) AddIdentity(i int, scale float64) {
	m.checkBlock(i, i)
	blk := m.block(i, i)
	for r := 0; r < m.bs; r++ {
		blk[r*m.bs+r] += scale
	}
}

func (m *BlockMatrix) block(i, j int) []float64 {
	blk, ok := m.rows[i][j]
	if !ok {
		blk = make([]float64, m.bs*m.bs)
		m.rows[i][j] = blk
	}
	return blk
}

// HasBlock reports whether block (i, j) is stored.
func (m *BlockMatrix) HasBlock(i, j int) bool {
	m.checkBlock(i, j)
	_, ok := m.rows[i][j]
	return ok
}

// Block returns a copy of block (i, j). Missing blocks come back as zero.
func (m *BlockMatrix) Block(i, j int) *mat.Dense {
	m.checkBlock(i, j)
	out := mat.NewDense(m.bs, m.bs, nil)
	if blk, ok := m.rows[i][j]; ok {
		for r := 0; r < m.bs; r++ {
			for c := 0; c < m.bs; c++ {
				out.Set(r, c, blk[r*m.bs+c])
			}
		}
	}
	return out
}

// AddMatrix adds every stored block of o into m. Both must have the same block layout.
func (m *BlockMatrix) AddMatrix(o *BlockMatrix) {
	if o.n != m.n || o.bs != m.bs {
		panic(mat.ErrShape)
	}
	for i, row := range o.rows {
		for j, src := range row {
			dst := m.block(i, j)
			for k, v := range src {
				dst[k] += v
			}
		}
	}
}

// NNZBlocks returns the number of stored blocks.
func (m *BlockMatrix) NNZBlocks() int {
	var nnz int
	for _, row := range m.rows {
		nnz += len(row)
	}
	return nnz
}

// Neighbors returns, in ascending order, the block columns other than i stored in block row i.
func (m *BlockMatrix) Neighbors(i int) []int {
	m.checkBlock(i, i)
	out := make([]int, 0, len(m.rows[i]))
	for j := range m.rows[i] {
		if j != i {
			out = append(out, j)
		}
	}
	sort.Ints(out)
	return out
}

// ZeroDiagonalBlock returns the first block row whose diagonal block is missing or all zero, or -1.
func (m *BlockMatrix) ZeroDiagonalBlock() int {
	for i := range m.rows {
		blk, ok := m.rows[i][i]
		if !ok {
			return i
		}
		allZero := true
		for _, v := range blk {
			if v != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return i
		}
	}
	return -1
}

// IsSymmetric reports whether m equals its transpose within tol.
func (m *BlockMatrix) IsSymmetric(tol float64) bool {
	for i, row := range m.rows {
		for j, blk := range row {
			other, ok := m.rows[j][i]
			for r := 0; r < m.bs; r++ {
				for c := 0; c < m.bs; c++ {
					var v float64
					if ok {
						v = other[c*m.bs+r]
					}
					if math.Abs(blk[r*m.bs+c]-v) > tol {
						return false
					}
				}
			}
		}
	}
	return true
}

// MulVec returns m·x.
func (m *BlockMatrix) MulVec(x mat.Vector) *mat.VecDense {
	r, _ := m.Dims()
	if x.Len() != r {
		panic(mat.ErrShape)
	}
	out := mat.NewVecDense(r, nil)
	for i, row := range m.rows {
		for j, blk := range row {
			for rr := 0; rr < m.bs; rr++ {
				var sum float64
				for cc := 0; cc < m.bs; cc++ {
					sum += blk[rr*m.bs+cc] * x.AtVec(j*m.bs+cc)
				}
				out.SetVec(i*m.bs+rr, out.AtVec(i*m.bs+rr)+sum)
			}
		}
	}
	return out
}

// SymDense copies m into a dense symmetric matrix using its upper triangle.
func (m *BlockMatrix) SymDense() *mat.SymDense {
	r, _ := m.Dims()
	out := mat.NewSymDense(r, nil)
	for i, row := range m.rows {
		for j, blk := range row {
			if j < i {
				continue
			}
			for rr := 0; rr < m.bs; rr++ {
				for cc := 0; cc < m.bs; cc++ {
					gi, gj := i*m.bs+rr, j*m.bs+cc
					if gj >= gi {
						out.SetSym(gi, gj, blk[rr*m.bs+cc])
					}
				}
			}
		}
	}
	return out
}

// compressedColumns returns the scalar matrix in compressed sparse column form with row indices
// ascending within each column.
func (m *BlockMatrix) compressedColumns() (colPtr, rowIdx []int, values []float64) {
	colBlocks := make([][]int, m.n)
	for i, row := range m.rows {
		for j := range row {
			colBlocks[j] = append(colBlocks[j], i)
		}
	}
	for _, blocks := range colBlocks {
		sort.Ints(blocks)
	}
	r, _ := m.Dims()
	colPtr = make([]int, r+1)
	nnz := m.NNZBlocks() * m.bs * m.bs
	rowIdx = make([]int, 0, nnz)
	values = make([]float64, 0, nnz)
	for j := 0; j < m.n; j++ {
		for cc := 0; cc < m.bs; cc++ {
			col := j*m.bs + cc
			for _, i := range colBlocks[j] {
				blk := m.rows[i][j]
				for rr := 0; rr < m.bs; rr++ {
					rowIdx = append(rowIdx, i*m.bs+rr)
					values = append(values, blk[rr*m.bs+cc])
				}
			}
			colPtr[col+1] = len(rowIdx)
		}
	}
	return colPtr, rowIdx, values
}
