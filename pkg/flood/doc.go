// Package flood computes which cells of an elevation grid are under water
// for a given sea level.
//
// The model is a plain "bathtub": a cell is flooded when its elevation is
// valid and not above the level. Hydrological connectivity to the open sea
// is deliberately not modelled, so inland depressions below the level are
// flooded as well. Missing cells are never flooded.
//
// Every function here is pure: the same grid and level always produce the
// same mask, and masks for increasing levels are nested.
package flood
