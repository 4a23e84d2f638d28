package rad

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"threephase/internal/services"
)

// HemisphereType is an rfluxmtx hemisphere sampling basis.
type HemisphereType string

const (
	KlemsFull    HemisphereType = "kf"
	KlemsHalf    HemisphereType = "kh"
	KlemsQuarter HemisphereType = "kq"
	Uniform      HemisphereType = "u"
)

// Reinhart returns the Reinhart/Tregenza basis with n subdivisions.
func Reinhart(n int) HemisphereType {
	return HemisphereType("r" + strconv.Itoa(n))
}

var (
	hemispherePattern = regexp.MustCompile(`^(kf|kh|kq|u|r[0-9]*|sc[0-9]+)$`)
	axisPattern       = regexp.MustCompile(`^[+-]?[XYZ]$`)
)

// ParseHemisphereType validates value as a hemisphere basis.
func ParseHemisphereType(value string) (HemisphereType, error) {
	h := HemisphereType(strings.ToLower(strings.TrimSpace(value)))
	if err := h.Validate(); err != nil {
		return "", err
	}
	return h, nil
}

// Validate reports whether h names a basis rfluxmtx understands.
func (h HemisphereType) Validate() error {
	if !hemispherePattern.MatchString(string(h)) {
		return services.Wrap(services.ErrConfiguration, "rad", "hemisphere", fmt.Sprintf("unsupported basis %q", string(h)), nil)
	}
	return nil
}

// IsKlems reports whether h is one of the Klems bases used by BSDF data.
func (h HemisphereType) IsKlems() bool {
	return h == KlemsFull || h == KlemsHalf || h == KlemsQuarter
}

// ControlParameters is the rfluxmtx control block attached to a sender or
// receiver surface.
type ControlParameters struct {
	Hemisphere HemisphereType
	// Up is an axis such as +Z or -Y, or a vector written dx,dy,dz.
	Up string
}

// Validate checks the basis and the up direction.
func (c ControlParameters) Validate() error {
	if err := c.Hemisphere.Validate(); err != nil {
		return err
	}
	up := strings.TrimSpace(c.Up)
	if axisPattern.MatchString(strings.ToUpper(up)) {
		return nil
	}
	parts := strings.Split(up, ",")
	if len(parts) == 3 {
		var nonZero bool
		for _, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "rad", "up direction", fmt.Sprintf("invalid component %q", part), nil)
			}
			nonZero = nonZero || v != 0
		}
		if nonZero {
			return nil
		}
	}
	return services.Wrap(services.ErrConfiguration, "rad", "up direction", fmt.Sprintf("expected an axis like +Z or a vector x,y,z, got %q", c.Up), nil)
}

// String renders the control comment, e.g. "#@rfluxmtx h=kf u=+Z".
func (c ControlParameters) String() string {
	up := strings.ReplaceAll(strings.TrimSpace(c.Up), " ", "")
	if axisPattern.MatchString(strings.ToUpper(up)) {
		up = strings.ToUpper(up)
		if !strings.HasPrefix(up, "-") && !strings.HasPrefix(up, "+") {
			up = "+" + up
		}
	}
	return fmt.Sprintf("#@rfluxmtx h=%s u=%s", c.Hemisphere, up)
}
