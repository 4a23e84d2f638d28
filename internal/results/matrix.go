package results

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
	"sync"

	"threephase/internal/services"
)

// Luminous efficacy weights for RGB irradiance.
const (
	redWeight   = 47.4
	greenWeight = 119.9
	blueWeight  = 11.6
)

// Header is the Radiance matrix header.
type Header struct {
	Rows       int
	Columns    int
	Components int
	Format     string
}

// Matrix is an indexed result file.
type Matrix struct {
	path    string
	header  Header
	offsets []int64
	steps   int

	mu  sync.Mutex
	err error
}

// Open parses the header of path, validates every row, and records where each
// row starts. Files without a header are read as single-component rows.
func Open(path string) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "results", "open", path, err)
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 256*1024)
	header, offset, err := readHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m := &Matrix{path: path, header: header, steps: -1}

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			start := offset
			offset += int64(len(line))
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				steps, verr := m.validateRow(trimmed, len(m.offsets))
				if verr != nil {
					return nil, fmt.Errorf("%s: %w", path, verr)
				}
				if m.steps < 0 {
					m.steps = steps
				}
				m.offsets = append(m.offsets, start)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "results", "read", path, err)
		}
	}
	if m.steps < 0 {
		m.steps = 0
	}
	if header.Rows > 0 && header.Rows != len(m.offsets) {
		return nil, services.Wrap(services.ErrValidation, "results", "open",
			fmt.Sprintf("%s: header declares %d rows, found %d", path, header.Rows, len(m.offsets)), nil)
	}
	return m, nil
}

func readHeader(r *bufio.Reader) (Header, int64, error) {
	header := Header{Components: 1, Format: "ascii"}
	peek, err := r.Peek(len("#?RADIANCE"))
	if err != nil || string(peek) != "#?RADIANCE" {
		return header, 0, nil
	}
	header.Components = 3
	var offset int64
	for {
		line, err := r.ReadString('\n')
		offset += int64(len(line))
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if key, value, ok := strings.Cut(trimmed, "="); ok {
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(key) {
			case "NROWS":
				header.Rows, _ = strconv.Atoi(value)
			case "NCOLS":
				header.Columns, _ = strconv.Atoi(value)
			case "NCOMP":
				header.Components, _ = strconv.Atoi(value)
			case "FORMAT":
				header.Format = value
			}
		}
		if err != nil {
			return header, offset, services.Wrap(services.ErrValidation, "results", "header", "unterminated header", nil)
		}
	}
	if header.Format != "ascii" {
		return header, offset, services.Wrap(services.ErrValidation, "results", "header", fmt.Sprintf("unsupported format %q", header.Format), nil)
	}
	if header.Components != 1 && header.Components != 3 {
		return header, offset, services.Wrap(services.ErrValidation, "results", "header", fmt.Sprintf("unsupported component count %d", header.Components), nil)
	}
	return header, offset, nil
}

func (m *Matrix) validateRow(line string, row int) (int, error) {
	fields := strings.Fields(line)
	ncomp := m.header.Components
	if len(fields)%ncomp != 0 {
		return 0, services.Wrap(services.ErrValidation, "results", "row",
			fmt.Sprintf("row %d: %d values is not a multiple of %d components", row, len(fields), ncomp), nil)
	}
	steps := len(fields) / ncomp
	if m.header.Columns > 0 && steps != m.header.Columns {
		return 0, services.Wrap(services.ErrValidation, "results", "row",
			fmt.Sprintf("row %d: expected %d columns, found %d", row, m.header.Columns, steps), nil)
	}
	if m.steps >= 0 && steps != m.steps {
		return 0, services.Wrap(services.ErrValidation, "results", "row",
			fmt.Sprintf("row %d: expected %d columns, found %d", row, m.steps, steps), nil)
	}
	for _, f := range fields {
		if _, err := strconv.ParseFloat(f, 64); err != nil {
			return 0, services.Wrap(services.ErrValidation, "results", "row", fmt.Sprintf("row %d: invalid value %q", row, f), nil)
		}
	}
	return steps, nil
}

// Path returns the result file path.
func (m *Matrix) Path() string { return m.path }

// Header returns the parsed header.
func (m *Matrix) Header() Header { return m.header }

// Sensors returns the number of rows.
func (m *Matrix) Sensors() int { return len(m.offsets) }

// Steps returns the number of time steps per sensor.
func (m *Matrix) Steps() int { return m.steps }

// Series returns the illuminance values of sensor i by time step. Each
// iteration reopens the file. If the file can no longer be read, or a row no
// longer matches the shape recorded by Open, iteration stops early and Err
// reports why.
func (m *Matrix) Series(i int) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if i < 0 || i >= len(m.offsets) {
			return
		}
		file, err := os.Open(m.path)
		if err != nil {
			m.fail(i, err)
			return
		}
		defer file.Close()
		if _, err := file.Seek(m.offsets[i], io.SeekStart); err != nil {
			m.fail(i, err)
			return
		}
		line, err := bufio.NewReaderSize(file, 64*1024).ReadString('\n')
		if err != nil && err != io.EOF {
			m.fail(i, err)
			return
		}
		fields := strings.Fields(line)
		ncomp := m.header.Components
		steps := 0
		for j := 0; j+ncomp <= len(fields); j += ncomp {
			value, ok := illuminance(fields[j : j+ncomp])
			if !ok {
				m.fail(i, fmt.Errorf("invalid value at step %d", steps))
				return
			}
			if !yield(value) {
				return
			}
			steps++
		}
		if steps != m.steps {
			m.fail(i, fmt.Errorf("read %d of %d steps", steps, m.steps))
		}
	}
}

// Err returns the first error that cut a Series iteration short, or nil.
func (m *Matrix) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Matrix) fail(row int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = services.Wrap(services.ErrValidation, "results", "series", fmt.Sprintf("%s row %d", m.path, row), err)
	}
}

// All returns one series per sensor in grid order.
func (m *Matrix) All() []iter.Seq[float64] {
	out := make([]iter.Seq[float64], len(m.offsets))
	for i := range m.offsets {
		out[i] = m.Series(i)
	}
	return out
}

func illuminance(fields []string) (float64, bool) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, false
		}
		values[i] = v
	}
	if len(values) == 3 {
		return redWeight*values[0] + greenWeight*values[1] + blueWeight*values[2], true
	}
	return values[0], true
}
