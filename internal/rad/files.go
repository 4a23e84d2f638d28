package rad

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"threephase/internal/fileutil"
	"threephase/internal/services"
)

// primitive is one Radiance scene primitive, or a comment or command line
// kept verbatim when raw is set.
type primitive struct {
	raw      string
	modifier string
	kind     string
	id       string
	strs     []string
	ints     []string
	reals    []string
}

func (p primitive) String() string {
	if p.raw != "" {
		return p.raw + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", p.modifier, p.kind, p.id)
	for _, args := range [][]string{p.strs, p.ints, p.reals} {
		b.WriteString(strconv.Itoa(len(args)))
		for _, a := range args {
			b.WriteString(" ")
			b.WriteString(a)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parsePrimitives splits a Radiance scene description into primitives.
// Comment and command lines between primitives are preserved.
func parsePrimitives(r io.Reader) ([]primitive, error) {
	var (
		out     []primitive
		cur     primitive
		pending []string
		// field: 0..2 header words, 3..5 argument counts.
		field     int
		remaining int
		lineNo    int
	)
	flush := func() {
		out = append(out, cur)
		cur = primitive{}
		field = 0
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			if field == 0 {
				out = append(out, primitive{raw: line})
			}
			continue
		}
		pending = append(pending[:0], strings.Fields(line)...)
		for _, tok := range pending {
			switch {
			case field == 0:
				cur.modifier = tok
				field++
			case field == 1:
				cur.kind = tok
				field++
			case field == 2:
				cur.id = tok
				field++
				remaining = -1
			default:
				if remaining < 0 {
					n, err := strconv.Atoi(tok)
					if err != nil || n < 0 {
						return nil, services.Wrap(services.ErrConfiguration, "rad", "parse scene",
							fmt.Sprintf("line %d: invalid argument count %q for %s", lineNo, tok, cur.id), nil)
					}
					remaining = n
				} else {
					switch field {
					case 3:
						cur.strs = append(cur.strs, tok)
					case 4:
						cur.ints = append(cur.ints, tok)
					default:
						cur.reals = append(cur.reals, tok)
					}
					remaining--
				}
				for remaining == 0 {
					field++
					remaining = -1
					if field == 6 {
						flush()
						break
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if field != 0 {
		return nil, services.Wrap(services.ErrConfiguration, "rad", "parse scene", fmt.Sprintf("truncated primitive %q", cur.id), nil)
	}
	return out, nil
}

// AddControlParameters copies the scene file src to dst, inserting the
// control block for every primitive whose modifier has an entry in controls.
// Each modifier must appear at least once.
func AddControlParameters(src, dst string, controls map[string]ControlParameters) error {
	if len(controls) == 0 {
		return services.Wrap(services.ErrConfiguration, "rad", "control parameters", "no modifiers given", nil)
	}
	for modifier, ctrl := range controls {
		if err := ctrl.Validate(); err != nil {
			return fmt.Errorf("modifier %s: %w", modifier, err)
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "rad", "control parameters", "open "+src, err)
	}
	defer in.Close()
	prims, err := parsePrimitives(in)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	matched := make(map[string]bool, len(controls))
	var b strings.Builder
	for _, p := range prims {
		if ctrl, ok := controls[p.modifier]; ok && p.raw == "" {
			b.WriteString(ctrl.String())
			b.WriteString("\n")
			matched[p.modifier] = true
		}
		b.WriteString(p.String())
		if p.raw == "" {
			b.WriteString("\n")
		}
	}

	var missing []string
	for modifier := range controls {
		if !matched[modifier] {
			missing = append(missing, modifier)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return services.Wrap(services.ErrConfiguration, "rad", "control parameters",
			fmt.Sprintf("%s: no primitive uses modifier %s", src, strings.Join(missing, ", ")), nil)
	}
	return writeScene(dst, b.String())
}

// WriteSender writes a sender file whose surfaces come from include, read at
// run time with an inline command. include is resolved relative to the
// directory rfluxmtx runs in.
func WriteSender(dst string, control ControlParameters, include string) error {
	if err := control.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(include) == "" {
		return services.Wrap(services.ErrConfiguration, "rad", "sender", "include file required", nil)
	}
	content := control.String() + "\n!cat " + include + "\n"
	return writeScene(dst, content)
}

// SkyHemisphere renders the ground and sky glow receivers for rfluxmtx. The
// ground uses a uniform basis; the sky uses skyType.
func SkyHemisphere(skyType HemisphereType) (string, error) {
	ground := ControlParameters{Hemisphere: Uniform, Up: "+Y"}
	sky := ControlParameters{Hemisphere: skyType, Up: "+Y"}
	if err := sky.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(ground.String() + "\n")
	b.WriteString(primitive{modifier: "void", kind: "glow", id: "ground_glow", reals: []string{"1", "1", "1", "0"}}.String())
	b.WriteString("\n")
	b.WriteString(primitive{modifier: "ground_glow", kind: "source", id: "ground", reals: []string{"0", "0", "-1", "180"}}.String())
	b.WriteString("\n")
	b.WriteString(sky.String() + "\n")
	b.WriteString(primitive{modifier: "void", kind: "glow", id: "sky_glow", reals: []string{"1", "1", "1", "0"}}.String())
	b.WriteString("\n")
	b.WriteString(primitive{modifier: "sky_glow", kind: "source", id: "sky", reals: []string{"0", "0", "1", "180"}}.String())
	return b.String(), nil
}

// WriteSkyHemisphere writes the sky receiver file for skyType to dst.
func WriteSkyHemisphere(dst string, skyType HemisphereType) error {
	content, err := SkyHemisphere(skyType)
	if err != nil {
		return err
	}
	return writeScene(dst, content)
}

func writeScene(path, content string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return services.Wrap(services.ErrDirectory, "rad", "write", path, err)
	}
	return nil
}
