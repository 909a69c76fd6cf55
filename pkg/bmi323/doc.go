// Package bmi323 controls a Bosch BMI323 6-axis IMU (accelerometer and
// gyroscope) over SPI or I²C.
//
// # Datasheet
//
// https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bmi323-ds000.pdf
//
// # Notes
//
// Every register is 16 bits wide and transferred little endian. Reads are
// preceded by dummy bytes: one on SPI, two on I²C. The default serial
// interface after power-on is I²C/I3C; a single dummy read switches it to
// SPI (datasheet §4), which Init always performs.
//
// Registers with reserved content must be read, updated and written back
// (datasheet §6), so configuration writes go through UpdateRegister.
package bmi323
