package grid

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"threephase/internal/fileutil"
	"threephase/internal/services"
)

// Point is a position in scene coordinates.
type Point struct {
	X, Y, Z float64
}

// Vector is a direction in scene coordinates.
type Vector struct {
	X, Y, Z float64
}

// Up is the default sensor direction.
var Up = Vector{Z: 1}

// String renders the vector the way Radiance tools accept it on the command line.
func (v Vector) String() string {
	return fmt.Sprintf("%s %s %s", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
}

// Sensor pairs a position with the direction it faces.
type Sensor struct {
	Position  Point
	Direction Vector
}

// Grid is an ordered, immutable collection of sensors.
type Grid struct {
	name    string
	sensors []Sensor
}

// New builds a grid from points and optional vectors. A nil or empty vectors
// slice assigns Up to every point; otherwise the lengths must match.
func New(name string, points []Point, vectors []Vector) (*Grid, error) {
	if len(points) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "grid", "new", "grid has no points", nil)
	}
	if len(vectors) > 0 && len(vectors) != len(points) {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"grid",
			"new",
			fmt.Sprintf("%d points but %d vectors", len(points), len(vectors)),
			nil,
		)
	}
	sensors := make([]Sensor, len(points))
	for i, p := range points {
		dir := Up
		if len(vectors) > 0 {
			dir = vectors[i]
		}
		sensors[i] = Sensor{Position: p, Direction: dir}
	}
	return &Grid{name: strings.TrimSpace(name), sensors: sensors}, nil
}

// Name returns the grid name.
func (g *Grid) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

// Len returns the number of sensors.
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.sensors)
}

// Sensors returns a copy of the sensors in insertion order.
func (g *Grid) Sensors() []Sensor {
	if g == nil {
		return nil
	}
	out := make([]Sensor, len(g.sensors))
	copy(out, g.sensors)
	return out
}

// Sensor returns sensor i.
func (g *Grid) Sensor(i int) (Sensor, bool) {
	if g == nil || i < 0 || i >= len(g.sensors) {
		return Sensor{}, false
	}
	return g.sensors[i], true
}

// WriteTo writes the grid in points-file format.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for _, s := range g.sensors {
		n, err := fmt.Fprintf(bw, "%s %s %s %s\n",
			formatFloat(s.Position.X), formatFloat(s.Position.Y), formatFloat(s.Position.Z),
			s.Direction.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// WriteFile writes the points file to path.
func (g *Grid) WriteFile(path string) error {
	var buf bytes.Buffer
	if _, err := g.WriteTo(&buf); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return services.Wrap(services.ErrDirectory, "grid", "write points", path, err)
	}
	return nil
}

// Parse reads a points file. Each row holds three position values optionally
// followed by three direction values; rows without a direction face Up.
func Parse(name string, r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	var (
		points  []Point
		vectors []Vector
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 && len(fields) != 6 {
			return nil, malformed(name, lineNo, fmt.Sprintf("expected 3 or 6 values, got %d", len(fields)))
		}
		values := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, malformed(name, lineNo, fmt.Sprintf("invalid number %q", field))
			}
			values[i] = v
		}
		points = append(points, Point{X: values[0], Y: values[1], Z: values[2]})
		if len(values) == 6 {
			vectors = append(vectors, Vector{X: values[3], Y: values[4], Z: values[5]})
		} else {
			vectors = append(vectors, Up)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "grid", "parse", name, err)
	}
	return New(name, points, vectors)
}

// ParseFile reads a points file from disk. The grid is named after the file.
func ParseFile(path string) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "grid", "open points", path, err)
	}
	defer file.Close()
	return Parse(path, file)
}

func malformed(name string, line int, detail string) error {
	return services.Wrap(
		services.ErrConfiguration,
		"grid",
		"parse",
		fmt.Sprintf("%s line %d: %s", name, line, detail),
		nil,
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
