package mat33

import (
	"weekend/vmath/vec3"
)

// T is a row-major 3x3 matrix.
type T struct {
	Elts [9]float64
}

// FromColumns builds the matrix whose columns are a, b, and c.  Used for
// frame-to-world transforms, where each column is one basis vector.
func FromColumns(a, b, c vec3.T) T {
	return T{Elts: [9]float64{
		a[0], b[0], c[0],
		a[1], b[1], c[1],
		a[2], b[2], c[2],
	}}
}

func (m T) Column(i int) vec3.T {
	return vec3.T{m.Elts[i], m.Elts[3+i], m.Elts[6+i]}
}

// MulMV maps frame coordinates b to world coordinates when a was built by
// FromColumns.
func MulMV(a T, b vec3.T) vec3.T {
	return vec3.T{
		a.Elts[0]*b[0] + a.Elts[1]*b[1] + a.Elts[2]*b[2],
		a.Elts[3]*b[0] + a.Elts[4]*b[1] + a.Elts[5]*b[2],
		a.Elts[6]*b[0] + a.Elts[7]*b[1] + a.Elts[8]*b[2],
	}
}
