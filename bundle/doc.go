// Package bundle implements proximal bundle methods for non-smooth convex
// minimization: the cutting-plane bundle with its simplex dual QP, the
// curve search deciding between descent, cutting-plane and null steps, the
// PBM-1/PBM-2 proximity parameter schedules, the SR1/scaled-identity
// quasi-Newton metric, and the solvers registered as "pba", "fpba1",
// "fpba2" and "rqb".
//
// The bundle keeps a stability center (x_c, f_c, g_c) and affine pieces
// ℓ_i(y) = f_i + g_iᵀ(y − x_i), stored through their gradients and
// linearization errors e_i = f_c − ℓ_i(x_c) >= 0. The model is
// m(y) = f_c + max_i (g_iᵀ(y−x_c) − e_i); the proximal trial step solves
// the dual QP over the simplex of cut weights through the interior-point
// package. The reliable non-smooth stopping criterion uses the QP duals:
// both the smeared error Σw_i·e_i and the smeared gradient ‖Σw_i·g_i‖ must
// drop below ε·√n.
//
// FPBA-1/FPBA-2 layer a Nesterov acceleration sequence on the proximal
// iterate; RQB replaces the scalar proximity parameter by the SR1
// quasi-Newton matrix.
package bundle
