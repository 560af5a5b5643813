package protocol

import (
	"fmt"
	"strings"
)

// Device limits for pressure profile steps. Nothing in the codec enforces
// these; callers that want semantic checks use PressureProfile.Validate.
const (
	MinPressure = 0   // decibars
	MaxPressure = 140 // decibars
	MinDuration = 0   // deciseconds
	MaxDuration = 600 // deciseconds
)

// StepsPerProfile is the number of steps stored for each pressure profile.
const StepsPerProfile = 5

// Step is one stage of a pressure profile.
type Step struct {
	Duration uint16 `json:"duration"` // deciseconds (180 = 18.0 s)
	Pressure byte   `json:"pressure"` // decibars (90 = 9.0 bar)
}

func (s Step) String() string {
	return fmt.Sprintf("[%gs@%gb]", float64(s.Duration)/10, float64(s.Pressure)/10)
}

// PressureProfile is a fixed list of steps. On the wire the five durations
// are packed first (2 bytes each) followed by the five pressures (1 byte each).
type PressureProfile struct {
	Steps [StepsPerProfile]Step `json:"steps"`
}

func (p PressureProfile) String() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Validate checks every step against the device limits.
func (p PressureProfile) Validate() error {
	for i, s := range p.Steps {
		if s.Pressure > MaxPressure {
			return fmt.Errorf("step %d: pressure %d exceeds maximum %d", i+1, s.Pressure, MaxPressure)
		}
		if s.Duration > MaxDuration {
			return fmt.Errorf("step %d: duration %d exceeds maximum %d", i+1, s.Duration, MaxDuration)
		}
	}
	return nil
}

// DefaultProfileA is the factory setting for profile A.
func DefaultProfileA() PressureProfile {
	return PressureProfile{Steps: [StepsPerProfile]Step{{60, 40}, {180, 90}, {60, 50}, {0, 0}, {0, 0}}}
}

// DefaultProfileB is the factory setting for profile B.
func DefaultProfileB() PressureProfile {
	return PressureProfile{Steps: [StepsPerProfile]Step{{80, 40}, {220, 90}, {0, 0}, {0, 0}, {0, 0}}}
}

// DefaultProfileC is the factory setting for profile C.
func DefaultProfileC() PressureProfile {
	return PressureProfile{Steps: [StepsPerProfile]Step{{200, 90}, {100, 50}, {0, 0}, {0, 0}, {0, 0}}}
}

// PIDConstants are the tuning constants for one heater loop. The three values
// are stored 6 bytes apart so that the three loops interleave.
type PIDConstants struct {
	Proportional uint16 `json:"proportional"`
	Integral     uint16 `json:"integral"`
	Derivative   uint16 `json:"derivative"`
}

// pidStride is the distance between consecutive terms of one PID triple.
const pidStride = 6

// TimeOfDay is an hour/minute pair stored as two consecutive bytes.
type TimeOfDay struct {
	Hour   byte `json:"hour"`
	Minute byte `json:"minute"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TemperatureUnit selects how the machine displays temperatures.
type TemperatureUnit byte

const (
	Celsius    TemperatureUnit = 0
	Fahrenheit TemperatureUnit = 1
)

func (u TemperatureUnit) String() string {
	switch u {
	case Celsius:
		return "Celsius"
	case Fahrenheit:
		return "Fahrenheit"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(u))
	}
}

// Language is the display language. Only the first few codes are known.
type Language byte

const (
	LanguageEnglish Language = 0
	LanguageGerman  Language = 1
	LanguageFrench  Language = 2
	LanguageItalian Language = 3
)

func (l Language) String() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguageGerman:
		return "German"
	case LanguageFrench:
		return "French"
	case LanguageItalian:
		return "Italian"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(l))
	}
}

// WaterSource says where the machine draws water from.
type WaterSource byte

const (
	WaterReservoir WaterSource = 0
	WaterPlumbedIn WaterSource = 1
)

func (w WaterSource) String() string {
	switch w {
	case WaterReservoir:
		return "Reservoir"
	case WaterPlumbedIn:
		return "PlumbedIn"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(w))
	}
}

// DayOfWeek as the controller counts it, Sunday first.
type DayOfWeek byte

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (d DayOfWeek) String() string {
	if int(d) < len(dayNames) {
		return dayNames[d]
	}
	return fmt.Sprintf("Unknown(0x%02x)", byte(d))
}

// fieldReader reads fixed-offset fields from a Memory and keeps the first
// error, so a decoder can read every field and check once at the end.
type fieldReader struct {
	m   *Memory
	err error
}

func (r *fieldReader) u8(addr int) byte {
	if r.err != nil {
		return 0
	}
	v, err := r.m.Byte(addr)
	r.err = err
	return v
}

func (r *fieldReader) boolean(addr int) bool {
	if r.err != nil {
		return false
	}
	v, err := r.m.Bool(addr)
	r.err = err
	return v
}

func (r *fieldReader) u16(addr int) uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.m.Uint16(addr)
	r.err = err
	return v
}

func (r *fieldReader) u32(addr int) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.m.Uint32(addr)
	r.err = err
	return v
}

func (r *fieldReader) text(start, end int) string {
	if r.err != nil {
		return ""
	}
	v, err := r.m.Substring(start, end)
	r.err = err
	return v
}

func (r *fieldReader) timeOfDay(addr int) TimeOfDay {
	return TimeOfDay{Hour: r.u8(addr), Minute: r.u8(addr + 1)}
}

func (r *fieldReader) pid(base int) PIDConstants {
	return PIDConstants{
		Proportional: r.u16(base),
		Integral:     r.u16(base + pidStride),
		Derivative:   r.u16(base + 2*pidStride),
	}
}

func (r *fieldReader) profile(base int) PressureProfile {
	var p PressureProfile
	for i := range p.Steps {
		p.Steps[i] = Step{
			Duration: r.u16(base + 2*i),
			Pressure: r.u8(base + 2*StepsPerProfile + i),
		}
	}
	return p
}

// fieldWriter is the encoding counterpart of fieldReader. Encoders size their
// buffer from the layout, so a write error means the layout itself is wrong.
type fieldWriter struct {
	m *Memory
}

func (w fieldWriter) must(err error) {
	if err != nil {
		panic(fmt.Sprintf("protocol: record layout does not fit its buffer: %v", err))
	}
}

func (w fieldWriter) u8(addr int, v byte) { w.must(w.m.SetByte(addr, v)) }
func (w fieldWriter) boolean(addr int, v bool) { w.must(w.m.SetBool(addr, v)) }
func (w fieldWriter) u16(addr int, v uint16) { w.must(w.m.SetUint16(addr, v)) }
func (w fieldWriter) u32(addr int, v uint32) { w.must(w.m.SetUint32(addr, v)) }

// text writes s into a fixed-width field, truncating or padding with spaces.
func (w fieldWriter) text(start, width int, s string) {
	if len(s) > width {
		s = s[:width]
	}
	w.must(w.m.SetSubstring(start, s+strings.Repeat(" ", width-len(s))))
}

func (w fieldWriter) timeOfDay(addr int, t TimeOfDay) {
	w.u8(addr, t.Hour)
	w.u8(addr+1, t.Minute)
}

func (w fieldWriter) pid(base int, p PIDConstants) {
	w.u16(base, p.Proportional)
	w.u16(base+pidStride, p.Integral)
	w.u16(base+2*pidStride, p.Derivative)
}

func (w fieldWriter) profile(base int, p PressureProfile) {
	for i, s := range p.Steps {
		w.u16(base+2*i, s.Duration)
		w.u8(base+2*StepsPerProfile+i, s.Pressure)
	}
}
