//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcSensor machine.ADC
	uart      = machine.UART0

	// Serial buffer for reading request lines
	serialBuffer [16]byte
	serialPos    int
)

func main() {
	// Configure the sensor pin and set up the ADC
	PIN_SENSOR.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcSensor = machine.ADC{Pin: PIN_SENSOR}
	adcSensor.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	// Configure UART for the request/response protocol
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	// Main loop: answer "R<id>\n" requests with one averaged reading
	for {
		processSerial()

		// Small delay to prevent a tight loop
		time.Sleep(100 * time.Microsecond)
	}
}

func processSerial() {
	// Read available bytes from serial
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		// Check for newline (end of line)
		if data == '\n' || data == '\r' {
			if serialPos > 0 && serialBuffer[0] == 'R' {
				// Valid request; the channel id after 'R' is accepted and
				// ignored, this bridge serves a single sensor
				outputReading()
			}
			// Reset buffer regardless of content
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
		// Overlong lines are truncated until the next newline
	}
}

func outputReading() {
	// Average a burst of reads to knock down conversion noise before the
	// host-side filter sees the value
	var sum uint32
	for i := 0; i < NUM_SAMPLES; i++ {
		sum += uint32(adcSensor.Get())
		time.Sleep(SAMPLE_INTERVAL_US * time.Microsecond)
	}
	avg := uint16(sum / NUM_SAMPLES)

	// Get returns a 16-bit left-aligned value; scale down to the reported
	// resolution
	value := avg >> (16 - OUTPUT_BITS)

	print(value)
	print("\n")
}
