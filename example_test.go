package optkit_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit"
	"github.com/optkit/optkit/function"
)

// ExampleGet demonstrates the registry round-trip: pick a solver by
// identifier, tune a parameter and minimize a quadratic.
func ExampleGet() {
	s, err := optkit.Get("lbfgs")
	if err != nil {
		panic(err)
	}
	if err := s.Params().SetInt("solver::lbfgs::history", 10); err != nil {
		panic(err)
	}

	fn := function.NewSphere([]float64{1, 2, 3})
	st, err := s.Minimize(fn, mat.NewVecDense(3, nil))
	if err != nil {
		panic(err)
	}

	fmt.Println(st.Status)
	fmt.Printf("%.0f %.0f %.0f\n", st.BestX.AtVec(0), st.BestX.AtVec(1), st.BestX.AtVec(2))
	// Output:
	// converged
	// 1 2 3
}
