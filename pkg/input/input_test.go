package input

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisToAngle(t *testing.T) {
	tests := []struct {
		sample float64
		want   float64
	}{
		{-1, 0},
		{0, 0.55},
		{1, 1.1},
		{0.5, 0.825},
		{2, 1.1}, // clamped
		{-3, 0},  // clamped
		{math.NaN(), 0.55},
	}
	for _, tt := range tests {
		got := AxisToAngle(tt.sample, 1.1)
		assert.InDelta(t, tt.want, got, 1e-9, "sample %v", tt.sample)
	}
}

func TestSpreadVector(t *testing.T) {
	v := SpreadVector(0.7)
	for i, x := range v {
		switch i {
		case 0, 4, 8:
			assert.Zero(t, x, "joint %d", i)
		default:
			assert.Equal(t, 0.7, x, "joint %d", i)
		}
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(map[int]float64{4: 0.25})
	v, ok := s.Axis(4)
	assert.True(t, ok)
	assert.Equal(t, 0.25, v)

	_, ok = s.Axis(0)
	assert.False(t, ok)

	s.Set(0, 5)
	v, ok = s.Axis(0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.NoError(t, s.Close())
}

func encodeEvents(events ...jsEvent) []byte {
	var buf bytes.Buffer
	for _, ev := range events {
		binary.Write(&buf, binary.LittleEndian, ev)
	}
	return buf.Bytes()
}

func TestJoystickEvents(t *testing.T) {
	data := encodeEvents(
		jsEvent{Type: jsEventAxis | jsEventInit, Number: 4, Value: 0},
		jsEvent{Type: jsEventAxis, Number: 4, Value: 32767},
		jsEvent{Type: jsEventAxis, Number: 1, Value: -32767},
		jsEvent{Type: jsEventButton, Number: 2, Value: 1},
	)
	j := NewJoystick("test", io.NopCloser(bytes.NewReader(data)))
	<-j.done

	v, ok := j.Axis(4)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = j.Axis(1)
	require.True(t, ok)
	assert.Equal(t, -1.0, v)

	_, ok = j.Axis(0)
	assert.False(t, ok)
	assert.True(t, j.Button(2))
	assert.Equal(t, 2, j.NumAxes())
	assert.NoError(t, j.Err())
	assert.NoError(t, j.Close())
}

func TestJoystickClose(t *testing.T) {
	pr, pw := io.Pipe()
	j := NewJoystick("pipe", pr)

	pw.Write(encodeEvents(jsEvent{Type: jsEventAxis, Number: 0, Value: 16384}))
	require.Eventually(t, func() bool {
		_, ok := j.Axis(0)
		return ok
	}, time.Second, 5*time.Millisecond)

	v, _ := j.Axis(0)
	assert.InDelta(t, 0.5, v, 1e-3)

	done := make(chan struct{})
	go func() {
		j.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not stop the reader")
	}
}

func TestJoystickTruncatedEvent(t *testing.T) {
	data := encodeEvents(jsEvent{Type: jsEventAxis, Number: 3, Value: 100})
	j := NewJoystick("short", io.NopCloser(bytes.NewReader(append(data, 0x01, 0x02))))
	<-j.done

	_, ok := j.Axis(3)
	assert.True(t, ok)
	assert.ErrorIs(t, j.Err(), io.ErrUnexpectedEOF)
}
