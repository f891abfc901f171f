package frobenius

import "github.com/fine-structures/go-khoca/libkh/ring"

// element is a vector over the basis 1, X, ..., X^(k-1) with R[u] coefficients.
type element []ring.Poly

func (A *Algebra) basis(i int) element {
	e := make(element, A.k)
	e[i] = ring.Const(A.ring, 1)
	return e
}

// powers returns X^n reduced mod F_u for n = 0 .. 2k-2.
func (A *Algebra) powers() []element {
	R, k := A.ring, A.k
	out := make([]element, 2*k-1)
	out[0] = A.basis(0)
	for n := 1; n < len(out); n++ {
		prev := out[n-1]
		next := make(element, k)
		copy(next[1:], prev[:k-1])
		if top := prev[k-1]; !top.IsZero() {
			// X^k = -(F_0 + F_1 X + ... + F_(k-1) X^(k-1))
			for i := 0; i < k; i++ {
				next[i] = next[i].Sub(R, top.Mul(R, A.lift[i]))
			}
		}
		out[n] = next
	}
	return out
}

// horner returns h_j = X^j + F_(k-1) X^(j-1) + ... + F_(k-j), the basis dual to X^(k-1-j) under the trace.
func (A *Algebra) horner(j int) element {
	h := make(element, A.k)
	for t := 0; t <= j; t++ {
		h[j-t] = A.lift[A.k-t]
	}
	return h
}

func (A *Algebra) buildTable() *Table {
	R, k := A.ring, A.k
	pow := A.powers()

	T := &Table{
		Rank:        k,
		Mul:         make([][][]ring.Poly, k),
		Comul:       make([][][]ring.Poly, k),
		MarkedMul:   make([]ring.Poly, k),
		MarkedComul: make([]ring.Poly, k),
	}

	for i := 0; i < k; i++ {
		T.Mul[i] = make([][]ring.Poly, k)
		for j := 0; j < k; j++ {
			T.Mul[i][j] = append([]ring.Poly(nil), pow[i+j]...)
		}
	}

	// comultiplication of X^i is (X^i (x) 1) * sum_s X^s (x) h_(k-1-s)
	for i := 0; i < k; i++ {
		T.Comul[i] = make([][]ring.Poly, k)
		for l1 := range T.Comul[i] {
			T.Comul[i][l1] = make([]ring.Poly, k)
		}
		for s := 0; s < k; s++ {
			left, right := pow[i+s], A.horner(k-1-s)
			for l1, a := range left {
				if a.IsZero() {
					continue
				}
				for l2, b := range right {
					T.Comul[i][l1][l2] = T.Comul[i][l1][l2].Add(R, a.Mul(R, b))
				}
			}
		}
	}

	// (X - u) g = F_u = 0 in A, so X^i g = u^i g and the comultiplication of g has g in the first factor.
	for i := 0; i < k; i++ {
		T.MarkedMul[i] = ring.Monomial(R, 1, i)
	}
	for s := 0; s < k; s++ {
		us := ring.Monomial(R, 1, s)
		for l, b := range A.horner(k - 1 - s) {
			T.MarkedComul[l] = T.MarkedComul[l].Add(R, us.Mul(R, b))
		}
	}
	return T
}

// specialize substitutes u = a in every structure constant.
func (T *Table) specialize(R ring.Ring, a int64) *Table {
	sub := func(p ring.Poly) ring.Poly {
		return ring.Const(R, p.Eval(R, a))
	}
	out := &Table{
		Rank:        T.Rank,
		Mul:         make([][][]ring.Poly, T.Rank),
		Comul:       make([][][]ring.Poly, T.Rank),
		MarkedMul:   make([]ring.Poly, T.Rank),
		MarkedComul: make([]ring.Poly, T.Rank),
	}
	for i := 0; i < T.Rank; i++ {
		out.Mul[i] = make([][]ring.Poly, T.Rank)
		out.Comul[i] = make([][]ring.Poly, T.Rank)
		for j := 0; j < T.Rank; j++ {
			out.Mul[i][j] = make([]ring.Poly, T.Rank)
			out.Comul[i][j] = make([]ring.Poly, T.Rank)
			for l := 0; l < T.Rank; l++ {
				out.Mul[i][j][l] = sub(T.Mul[i][j][l])
				out.Comul[i][j][l] = sub(T.Comul[i][j][l])
			}
		}
		out.MarkedMul[i] = sub(T.MarkedMul[i])
		out.MarkedComul[i] = sub(T.MarkedComul[i])
	}
	return out
}

// Trace returns the coefficient of X^(k-1) in x.
func (A *Algebra) Trace(x []ring.Poly) ring.Poly {
	return x[A.k-1]
}

// Multiply returns x * y in A over R[u].
func (A *Algebra) Multiply(x, y []ring.Poly) []ring.Poly {
	R := A.ring
	out := make([]ring.Poly, A.k)
	for i, xi := range x {
		if xi.IsZero() {
			continue
		}
		for j, yj := range y {
			if yj.IsZero() {
				continue
			}
			c := xi.Mul(R, yj)
			for l, m := range A.general.Mul[i][j] {
				out[l] = out[l].Add(R, c.Mul(R, m))
			}
		}
	}
	return out
}

// Basis returns X^i as an element of A.
func (A *Algebra) Basis(i int) []ring.Poly {
	return A.basis(i)
}

// Horner returns the dual basis element h_j.
func (A *Algebra) Horner(j int) []ring.Poly {
	return A.horner(j)
}

// MarkedElement returns g = f/(X - a), the generator of the marked circle's module.
func (A *Algebra) MarkedElement() []ring.Poly {
	out := make([]ring.Poly, A.k)
	for i, c := range A.g {
		out[i] = ring.Const(A.ring, c)
	}
	return out
}
