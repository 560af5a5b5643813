package capture

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	rec := Record{
		Timestamp:  time.Date(2026, 3, 1, 7, 30, 0, 123456789, time.UTC),
		SessionID:  "abc",
		Direction:  FromDevice,
		Wire:       []byte("rB000005009"),
		ChecksumOK: true,
	}

	data, err := EncodeRecord(rec)
	require.NoError(t, err)
	got, err := DecodeRecord(data)
	require.NoError(t, err)

	assert.True(t, got.Timestamp.Equal(rec.Timestamp), "Timestamp = %v, want %v", got.Timestamp, rec.Timestamp)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.Direction, got.Direction)
	assert.Equal(t, rec.ChecksumOK, got.ChecksumOK)
	assert.Equal(t, rec.Wire, got.Wire)
}

func TestRecord_UsesIntegerKeys(t *testing.T) {
	data, err := EncodeRecord(Record{SessionID: "session-id-marker"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "SessionID", "encoded record should not contain field names")
	assert.Contains(t, string(data), "session-id-marker")
}

func TestNewRecord(t *testing.T) {
	wire := []byte("r00000073FC")
	rec := NewRecord("s1", ToDevice, wire)
	wire[0] = 'x'

	assert.Equal(t, "r00000073FC", string(rec.Wire), "record should copy the chunk")
	assert.True(t, rec.ChecksumOK)
	assert.False(t, NewRecord("s1", ToDevice, []byte("r00000073FF")).ChecksumOK)
}

func TestRecordString(t *testing.T) {
	rec := Record{SessionID: "s1", Direction: FromDevice, Wire: []byte("*HELLO*\r")}
	got := rec.String()
	for _, want := range []string{"s1", "from_device", `*HELLO*\r`, "[bad]"} {
		assert.Contains(t, got, want)
	}
}

func TestDirectionString(t *testing.T) {
	tests := []struct {
		dir  Direction
		want string
	}{
		{ToDevice, "to_device"},
		{FromDevice, "from_device"},
		{Direction(9), "Direction(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dir.String())
	}
}

func TestWriterAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "capture.cbor")

	w, err := Create(path)
	require.NoError(t, err)
	w.Write(NewRecord("s1", ToDevice, []byte("r00000073FC")))
	w.Write(NewRecord("s1", FromDevice, []byte("*HELLO*")))
	require.NoError(t, w.Close())
	w.Write(NewRecord("s1", ToDevice, []byte("ignored")))
	assert.NoError(t, w.Close(), "second Close")
	assert.Equal(t, 2, w.Count())

	// Appending keeps earlier records
	w, err = Create(path)
	require.NoError(t, err)
	w.Write(NewRecord("s2", ToDevice, []byte("rB000005009")))
	_ = w.Close()

	r, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var sessions []string
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sessions = append(sessions, rec.SessionID)
	}
	assert.Equal(t, []string{"s1", "s1", "s2"}, sessions)
}

func TestWriter_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	w, err := Create(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				w.Write(NewRecord("s", ToDevice, []byte("r00000073FC")))
			}
		}()
	}
	wg.Wait()
	_ = w.Close()

	r, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	n := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err, "record %d", n)
		n++
	}
	assert.Equal(t, 200, n)
}

func TestReadAll(t *testing.T) {
	var buf bytes.Buffer
	for _, wire := range []string{"a", "b", "c"} {
		data, err := EncodeRecord(Record{SessionID: wire})
		require.NoError(t, err)
		buf.Write(data)
	}

	recs, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[2].SessionID)

	empty, err := ReadAll(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ReadAll(bytes.NewReader([]byte{0xA1}))
	assert.Error(t, err, "truncated input")
}
