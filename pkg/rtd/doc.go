// Package rtd converts platinum RTD resistance readings into temperatures
// using the Callendar-Van Dusen equation. It contains:
//
//   - Branch: which piece of the characteristic equation applies to a reading
//   - FindTemperature: Newton-Raphson inversion of the equation
//   - Resistance: the forward model, temperature to resistance
//
// Everything here is a pure function and safe for concurrent use.
package rtd
