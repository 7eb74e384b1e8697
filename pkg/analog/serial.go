// Package analog provides concrete sampling sources for the smoothing
// filter: a serial ADC bridge and a simulated potentiometer.
package analog

import (
	"bufio"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/itohio/goresponsive/pkg/filter"
)

const (
	// DefaultBaudRate is the standard baud rate for the ADC bridge firmware.
	DefaultBaudRate = 115200
	// readTimeout bounds a single bridge reply.
	readTimeout = 500 * time.Millisecond
)

// Ensure the sources satisfy the filter collaborator interface.
var (
	_ filter.Source = (*Serial)(nil)
	_ filter.Source = (*Mock)(nil)
)

// Serial polls an MCU ADC bridge over a serial port with a line-framed
// request/response protocol: "R<id>\n" out, a decimal reading back. The
// sensor id is opaque here; the bridge decides what it selects.
type Serial struct {
	port string
	baud int
	id   int

	mu        sync.Mutex
	conn      serial.Port
	reader    *bufio.Reader
	connected bool
	last      int
}

// NewSerial creates a bridge source on the given port for the given sensor
// id. A zero baud rate uses DefaultBaudRate.
func NewSerial(port string, baud, id int) *Serial {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return &Serial{port: port, baud: baud, id: id}
}

// Connect opens the serial port.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	conn, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}
	if err := conn.SetReadTimeout(readTimeout); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.connected = true
	return nil
}

// Close closes the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	s.connected = false
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// IsConnected returns whether the port is currently open.
func (s *Serial) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Sample requests one reading from the bridge. Transport and parse errors
// are logged and the last good reading is returned, so the steady-state
// filtering path never fails.
func (s *Serial) Sample() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return s.last
	}

	if _, err := fmt.Fprintf(s.conn, "R%d\n", s.id); err != nil {
		log.Printf("bridge request failed: %v", err)
		return s.last
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		log.Printf("bridge read failed: %v", err)
		return s.last
	}

	v, err := parseReading(line)
	if err != nil {
		log.Printf("%v", err)
		return s.last
	}

	s.last = v
	return v
}

// parseReading parses a bridge reply line, e.g. "1023\r\n".
func parseReading(line string) (int, error) {
	line = strings.TrimSpace(line)
	v, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("malformed bridge reply %q: %w", line, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("bridge reply out of range: %d", v)
	}
	return v, nil
}
