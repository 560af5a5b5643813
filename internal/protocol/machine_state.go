package protocol

import (
	"strings"
)

// MachineStateLength is the size of the machine configuration record.
const MachineStateLength = 100

// MachineStateReadLength is how many bytes a configuration read asks for.
// The device answers with the record followed by bytes nobody has mapped yet.
const MachineStateReadLength = 0x73

// MachineStateResponsePrefix starts the device's answer to a read of the
// configuration window (r00000073).
const MachineStateResponsePrefix = "r00000073"

// MachineStateRequest is the read that fetches the configuration record.
func MachineStateRequest() ReadRequest {
	return ReadRequest{Range: MemoryRange{offset: ConfigWindowStart, length: MachineStateReadLength}}
}

// Machine configuration record layout, as absolute device addresses.
// The record starts at address 0x0000.
const (
	addrTemperatureUnit   = 0
	addrLanguage          = 1
	addrCoffeeTemperature = 2
	addrSteamTemperature  = 3
	addrCoffeePID         = 4  // P at 4, I at 10, D at 16
	addrGroupPID          = 6  // P at 6, I at 12, D at 18
	addrSteamPID          = 8  // P at 8, I at 14, D at 20
	addrProfileA          = 22 // durations 22-31, pressures 32-36
	addrProfileB          = 38
	addrProfileC          = 54
	addrWaterSource       = 69
	addrActiveProfile     = 70
	addrSteamCleanTime    = 71
	addrServiceBoilerOn   = 72
	addrMachineInStandby  = 73
	addrCyclesSubtotal    = 75 // 16-bit
	addrCyclesTotal       = 77 // 32-bit
	addrAutoOnTime        = 81
	addrAutoStandbyTime   = 83
	addrAutoSkipDay       = 85
)

// MachineState is the machine configuration record. Field identity is the
// byte offset; the record carries no tags.
type MachineState struct {
	TemperatureUnit   TemperatureUnit `json:"temperature_unit"`
	Language          Language        `json:"language"`
	CoffeeTemperature byte            `json:"coffee_temperature"`
	SteamTemperature  byte            `json:"steam_temperature"`

	CoffeePID PIDConstants `json:"coffee_pid"`
	GroupPID  PIDConstants `json:"group_pid"`
	SteamPID  PIDConstants `json:"steam_pid"`

	ProfileA PressureProfile `json:"profile_a"`
	ProfileB PressureProfile `json:"profile_b"`
	ProfileC PressureProfile `json:"profile_c"`

	WaterSource        WaterSource `json:"water_source"`
	ActiveProfile      byte        `json:"active_profile"`
	SteamCleanTime     byte        `json:"steam_clean_time"`
	IsServiceBoilerOn  bool        `json:"is_service_boiler_on"`
	IsMachineInStandby bool        `json:"is_machine_in_standby"`

	CoffeeCyclesSubtotal uint16 `json:"coffee_cycles_subtotal"`
	CoffeeCyclesTotal    uint32 `json:"coffee_cycles_total"`

	AutoOnTime      TimeOfDay `json:"auto_on_time"`
	AutoStandbyTime TimeOfDay `json:"auto_standby_time"`
	AutoSkipDay     DayOfWeek `json:"auto_skip_day"`
}

// DecodeMachineState reads a MachineState from m, which must cover the record's
// addresses. Field values are not validated. A short buffer yields a
// *BoundsError and no record.
func DecodeMachineState(m *Memory) (*MachineState, error) {
	r := &fieldReader{m: m}
	s := &MachineState{
		TemperatureUnit:   TemperatureUnit(r.u8(addrTemperatureUnit)),
		Language:          Language(r.u8(addrLanguage)),
		CoffeeTemperature: r.u8(addrCoffeeTemperature),
		SteamTemperature:  r.u8(addrSteamTemperature),

		CoffeePID: r.pid(addrCoffeePID),
		GroupPID:  r.pid(addrGroupPID),
		SteamPID:  r.pid(addrSteamPID),

		ProfileA: r.profile(addrProfileA),
		ProfileB: r.profile(addrProfileB),
		ProfileC: r.profile(addrProfileC),

		WaterSource:        WaterSource(r.u8(addrWaterSource)),
		ActiveProfile:      r.u8(addrActiveProfile),
		SteamCleanTime:     r.u8(addrSteamCleanTime),
		IsServiceBoilerOn:  r.boolean(addrServiceBoilerOn),
		IsMachineInStandby: r.boolean(addrMachineInStandby),

		CoffeeCyclesSubtotal: r.u16(addrCyclesSubtotal),
		CoffeeCyclesTotal:    r.u32(addrCyclesTotal),

		AutoOnTime:      r.timeOfDay(addrAutoOnTime),
		AutoStandbyTime: r.timeOfDay(addrAutoStandbyTime),
		AutoSkipDay:     DayOfWeek(r.u8(addrAutoSkipDay)),
	}
	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}

// EncodeMachineState renders s as a zero-filled MachineStateLength record
// based at address 0x0000. Values are written as-is; see
// PressureProfile.Validate for the device limits.
func EncodeMachineState(s *MachineState) *Memory {
	m := MemoryOfLength(MachineStateLength, 0)
	writeMachineState(m, s)
	return m
}

// OverlayMachineState renders s over a copy of the record bytes in current,
// which must cover addresses 0x0000 up to MachineStateLength. Padding and
// unmapped bytes keep the values they have in current, so writing the result
// back leaves memory the record does not describe untouched. A short buffer
// yields a *BoundsError.
func OverlayMachineState(current *Memory, s *MachineState) (*Memory, error) {
	m, err := current.Slice(ConfigWindowStart, ConfigWindowStart+MachineStateLength)
	if err != nil {
		return nil, err
	}
	writeMachineState(m, s)
	return m, nil
}

func writeMachineState(m *Memory, s *MachineState) {
	w := fieldWriter{m: m}

	w.u8(addrTemperatureUnit, byte(s.TemperatureUnit))
	w.u8(addrLanguage, byte(s.Language))
	w.u8(addrCoffeeTemperature, s.CoffeeTemperature)
	w.u8(addrSteamTemperature, s.SteamTemperature)

	w.pid(addrCoffeePID, s.CoffeePID)
	w.pid(addrGroupPID, s.GroupPID)
	w.pid(addrSteamPID, s.SteamPID)

	w.profile(addrProfileA, s.ProfileA)
	w.profile(addrProfileB, s.ProfileB)
	w.profile(addrProfileC, s.ProfileC)

	w.u8(addrWaterSource, byte(s.WaterSource))
	w.u8(addrActiveProfile, s.ActiveProfile)
	w.u8(addrSteamCleanTime, s.SteamCleanTime)
	w.boolean(addrServiceBoilerOn, s.IsServiceBoilerOn)
	w.boolean(addrMachineInStandby, s.IsMachineInStandby)

	w.u16(addrCyclesSubtotal, s.CoffeeCyclesSubtotal)
	w.u32(addrCyclesTotal, s.CoffeeCyclesTotal)

	w.timeOfDay(addrAutoOnTime, s.AutoOnTime)
	w.timeOfDay(addrAutoStandbyTime, s.AutoStandbyTime)
	w.u8(addrAutoSkipDay, byte(s.AutoSkipDay))
}

// LooksLikeMachineState reports whether wire has a valid checksum and starts
// with the configuration read echo.
func LooksLikeMachineState(wire string) bool {
	return VerifyChecksum(wire) && strings.HasPrefix(wire, MachineStateResponsePrefix)
}

// DecodeMachineStateResponse decodes the device's reply to a configuration
// read. Anything that does not pass LooksLikeMachineState is rejected with a
// *ShapeError rather than decoded into wrong field values.
func DecodeMachineStateResponse(wire string) (*MachineState, error) {
	if !LooksLikeMachineState(wire) {
		return nil, &ShapeError{Record: "machine state", Reason: shapeReason(wire, MachineStateResponsePrefix), Preview: preview(wire)}
	}
	resp, err := decodeReadResponse(wire)
	if err != nil {
		return nil, err
	}
	return DecodeMachineState(resp.Data)
}

// shapeReason explains why a pre-check failed.
func shapeReason(wire, prefix string) string {
	if !VerifyChecksum(wire) {
		return "checksum mismatch"
	}
	return "expected prefix " + prefix
}

func decodeReadResponse(wire string) (*ReadResponse, error) {
	msg, err := DecodeMessage(wire)
	if err != nil {
		return nil, err
	}
	return ParseReadResponse(msg)
}
