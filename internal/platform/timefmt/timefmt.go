package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// PHOffset es el corrimiento fijo de hora de Filipinas (sin DST).
const PHOffset = 8 * time.Hour

// PHZone es la zona fija UTC+8 que usan los recordatorios.
var PHZone = time.FixedZone("PHT", int(PHOffset/time.Second))

// ToPH aplica el corrimiento fijo de +8h.
func ToPH(t time.Time) time.Time {
	return t.In(PHZone)
}

// AgeLabel arma la etiqueta relativa que muestran las cards: "42s", "5m", "3h", "2d", "1w".
// Fechas futuras cuentan como "0s".
func AgeLabel(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	default:
		return fmt.Sprintf("%dw", int(d/(7*24*time.Hour)))
	}
}

const DateLayout = "2006-01-02"

// ParseClock parsea "HH:MM" o "HH:MM:SS" (24h). Devuelve el offset desde medianoche.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
}

// ParseDate parsea YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// OptionalDate parsea una fecha opcional; vacío => nil.
func OptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
