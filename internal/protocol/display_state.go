package protocol

import "strings"

// DisplayStateAddress is where the live display record lives in device memory.
const DisplayStateAddress = 0xB000

// DisplayStateLength is the size of the display record (0xB000-0xB046).
const DisplayStateLength = 0x47

// DisplayStateReadLength is how many bytes a display read asks for.
const DisplayStateReadLength = 0x50

// DisplayStateResponsePrefix starts the device's answer to a read of the
// display window (rB0000050).
const DisplayStateResponsePrefix = "rB0000050"

// DisplayStateRequest is the read that fetches the display record.
func DisplayStateRequest() ReadRequest {
	return ReadRequest{Range: MemoryRange{offset: DisplayStateAddress, length: DisplayStateReadLength}}
}

// DisplayLines is the number of text lines on the machine's display.
const DisplayLines = 4

// DisplayLineWidth is the fixed width of one display line.
const DisplayLineWidth = 16

// Display record layout, as absolute device addresses.
const (
	addrDisplayCoffeeTemperature = 0xB000
	addrDisplaySteamTemperature  = 0xB001
	addrDisplayPumpPressure      = 0xB002
	addrDisplayTime              = 0xB003
	addrDisplayDay               = 0xB005
	addrDisplayStatus            = 0xB006
	addrDisplayText              = 0xB007 // four 16-byte lines
)

// DisplayState is what the machine is currently showing.
type DisplayState struct {
	CoffeeTemperature byte                 `json:"coffee_temperature"`
	SteamTemperature  byte                 `json:"steam_temperature"`
	PumpPressure      byte                 `json:"pump_pressure"`
	Time              TimeOfDay            `json:"time"`
	Day               DayOfWeek            `json:"day"`
	Status            byte                 `json:"status"`
	DisplayText       [DisplayLines]string `json:"display_text"`
}

// DecodeDisplayState reads a DisplayState from m, which must cover
// 0xB000-0xB046 at their absolute addresses.
func DecodeDisplayState(m *Memory) (*DisplayState, error) {
	r := &fieldReader{m: m}
	s := &DisplayState{
		CoffeeTemperature: r.u8(addrDisplayCoffeeTemperature),
		SteamTemperature:  r.u8(addrDisplaySteamTemperature),
		PumpPressure:      r.u8(addrDisplayPumpPressure),
		Time:              r.timeOfDay(addrDisplayTime),
		Day:               DayOfWeek(r.u8(addrDisplayDay)),
		Status:            r.u8(addrDisplayStatus),
	}
	for i := range s.DisplayText {
		start := addrDisplayText + i*DisplayLineWidth
		s.DisplayText[i] = r.text(start, start+DisplayLineWidth)
	}
	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}

// EncodeDisplayState renders s as a DisplayStateLength record based at
// DisplayStateAddress. Display lines are cut or space-padded to 16 bytes, so
// only full-width lines survive a round trip unchanged.
func EncodeDisplayState(s *DisplayState) *Memory {
	m := NewMemory(make([]byte, DisplayStateLength), DisplayStateAddress)
	w := fieldWriter{m: m}

	w.u8(addrDisplayCoffeeTemperature, s.CoffeeTemperature)
	w.u8(addrDisplaySteamTemperature, s.SteamTemperature)
	w.u8(addrDisplayPumpPressure, s.PumpPressure)
	w.timeOfDay(addrDisplayTime, s.Time)
	w.u8(addrDisplayDay, byte(s.Day))
	w.u8(addrDisplayStatus, s.Status)
	for i, line := range s.DisplayText {
		w.text(addrDisplayText+i*DisplayLineWidth, DisplayLineWidth, line)
	}

	return m
}

// LooksLikeDisplayState reports whether wire has a valid checksum and starts
// with the display read echo.
func LooksLikeDisplayState(wire string) bool {
	return VerifyChecksum(wire) && strings.HasPrefix(wire, DisplayStateResponsePrefix)
}

// DecodeDisplayStateResponse decodes the device's reply to a display read.
func DecodeDisplayStateResponse(wire string) (*DisplayState, error) {
	if !LooksLikeDisplayState(wire) {
		return nil, &ShapeError{Record: "display state", Reason: shapeReason(wire, DisplayStateResponsePrefix), Preview: preview(wire)}
	}
	resp, err := decodeReadResponse(wire)
	if err != nil {
		return nil, err
	}
	return DecodeDisplayState(resp.Data)
}
