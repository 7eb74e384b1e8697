//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	NUM_SAMPLES        = 16 // Number of ADC reads averaged per reply
	SAMPLE_INTERVAL_US = 50 // Delay between the averaged reads in microseconds

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // Hardware resolution in bits
	OUTPUT_BITS      = 10   // Reported resolution in bits (0-1023)

	// Sensor pin
	PIN_SENSOR = machine.A0

	// Serial configuration
	// Replies are at most 5 digits plus newline; even rapid 100 Hz polling
	// stays far below the line rate at 115200 baud.
	UART_BAUD_RATE = 115200
)
