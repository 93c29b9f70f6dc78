// Package diag implements the four diagnostic applications: potential
// intensity (Bister and Emanuel 2002), multi-scale intensity (Vukicevic et
// al. 2014), steering flow (Velden and Leslie 1991), and ocean heat content
// (Leipper and Volgenau 1972).
//
// Each application validates its parameter block against a declared schema,
// pulls its inputs from the resolved-variable mapping by well-known name,
// and returns an immutable result record. Applications are pure given their
// inputs; a ConfigError aborts only the application that raised it.
//
// # Well-Known Variable Names
//
// Applications look up resolved variables under these names:
//
//	latitude, longitude        — 2-D coordinate meshes, degrees
//	temperature                — 3-D air temperature, K
//	pressure                   — 3-D pressure profile, Pa
//	height                     — 3-D geometric height, m
//	uwind, vwind               — 3-D wind components, m/s
//	mixing_ratio               — 3-D water vapor mixing ratio, kg/kg
//	sea_level_pressure         — 2-D, Pa
//	surface_height             — 2-D terrain height, m
//	ocean_temperature          — 3-D ocean temperature, K
//	depth                      — 3-D ocean depth coordinate, m
package diag
