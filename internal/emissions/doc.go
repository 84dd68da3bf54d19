// Package emissions holds the emission-factor reference data used by the
// footprint calculator.
//
// A Table maps (category, key) pairs to coefficients in kg CO2e per activity
// unit:
//   - transport: kg per km travelled
//   - diet: kg per day (already a daily-equivalent value)
//   - heating: kg per hour of heating
//   - electricity: regional grid intensity in kg per kWh
//   - consumption: kg per unit of the tracked item
//
// Tables are built once at startup (Default, optionally overlaid by LoadFile)
// and are read-only afterwards.
package emissions
