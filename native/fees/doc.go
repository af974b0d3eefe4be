// Package fees computes the layered fee split applied to every fill: a
// protocol fee and an integrator fee charged on the settled destination
// amount, plus a protocol share of any surplus above the order's estimate.
package fees
