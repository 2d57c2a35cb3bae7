// Package qubo encodes the show's combinatorial planning problems as dense
// quadratic binary cost models and decodes candidate bit-assignments drawn
// from an optimization oracle.
//
// A model spans rows × cols binary variables, one per (entity, category)
// cell: vehicle × target slot for assignment problems, vehicle × delay step
// for timing problems. Coefficients live in one contiguous row-major buffer
// so construction stays cache-friendly and bounds-checkable.
package qubo

// Bits is one candidate 0/1 assignment of every model variable.
type Bits []uint8

// Assignment maps a vehicle id to the slot index it flies to.
type Assignment map[int]int

// Valid reports whether a holds exactly the vehicles 0..n-1 with no slot
// used twice.
func (a Assignment) Valid(n int) bool {
	if len(a) != n {
		return false
	}
	used := make(map[int]bool, n)
	for v, slot := range a {
		if v < 0 || v >= n || used[slot] {
			return false
		}
		used[slot] = true
	}
	return true
}

// Model is a dense symmetric quadratic cost model. The energy of a candidate
// x is the full quadratic form sum over coeff[a][b]·x[a]·x[b]; off-diagonal
// weights are split across mirror cells so a pair's total contribution equals
// the weight passed to AddQuadratic.
type Model struct {
	rows  int
	cols  int
	n     int
	coeff []float64
}

// New returns a zeroed model over rows × cols variables.
func New(rows, cols int) *Model {
	n := rows * cols
	return &Model{rows: rows, cols: cols, n: n, coeff: make([]float64, n*n)}
}

// Rows returns the entity count (vehicles).
func (m *Model) Rows() int { return m.rows }

// Cols returns the category count (slots or delay steps).
func (m *Model) Cols() int { return m.cols }

// NumVariables returns rows × cols.
func (m *Model) NumVariables() int { return m.n }

// Index linearizes an (entity, category) cell to its variable index.
func (m *Model) Index(entity, category int) int {
	return entity*m.cols + category
}

// At returns the coefficient between variables a and b.
func (m *Model) At(a, b int) float64 {
	return m.coeff[a*m.n+b]
}

// AddLinear adds w to variable v's diagonal coefficient.
func (m *Model) AddLinear(v int, w float64) {
	m.coeff[v*m.n+v] += w
}

// AddQuadratic adds a pair weight between distinct variables a and b, split
// evenly across the two mirror cells.
func (m *Model) AddQuadratic(a, b int, w float64) {
	if a == b {
		m.AddLinear(a, w)
		return
	}
	m.coeff[a*m.n+b] += w / 2
	m.coeff[b*m.n+a] += w / 2
}

// Energy evaluates the quadratic form for one candidate. Candidates shorter
// than NumVariables are treated as zero-padded.
func (m *Model) Energy(bits Bits) float64 {
	var e float64
	for a := 0; a < m.n && a < len(bits); a++ {
		if bits[a] == 0 {
			continue
		}
		for b := 0; b < m.n && b < len(bits); b++ {
			if bits[b] != 0 {
				e += m.coeff[a*m.n+b]
			}
		}
	}
	return e
}

// DecodeOneHot interprets bits as one category choice per entity. ok is
// false unless every entity row has exactly one set bit.
func (m *Model) DecodeOneHot(bits Bits) (choices []int, ok bool) {
	if len(bits) < m.n {
		return nil, false
	}
	choices = make([]int, m.rows)
	for row := 0; row < m.rows; row++ {
		count := 0
		for col := 0; col < m.cols; col++ {
			if bits[m.Index(row, col)] != 0 {
				choices[row] = col
				count++
			}
		}
		if count != 1 {
			return nil, false
		}
	}
	return choices, true
}
