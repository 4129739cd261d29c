package hostref

import (
	"errors"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestResolveDeviceInRange(t *testing.T) {
	want := &portaudio.DeviceInfo{Name: "device-1"}
	devices := []*portaudio.DeviceInfo{{Name: "device-0"}, want}

	got, err := resolveDevice(devices, 1, func() (*portaudio.DeviceInfo, error) {
		t.Fatal("fallback should not be called when idx is in range")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("resolveDevice: %v", err)
	}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveDeviceFallsBackWhenOutOfRange(t *testing.T) {
	devices := []*portaudio.DeviceInfo{{Name: "device-0"}}
	fallbackDev := &portaudio.DeviceInfo{Name: "default"}
	calls := 0

	got, err := resolveDevice(devices, -1, func() (*portaudio.DeviceInfo, error) {
		calls++
		return fallbackDev, nil
	})
	if err != nil {
		t.Fatalf("resolveDevice: %v", err)
	}
	if got != fallbackDev {
		t.Errorf("got %v, want %v", got, fallbackDev)
	}
	if calls != 1 {
		t.Errorf("fallback called %d times, want 1", calls)
	}
}

func TestResolveDevicePropagatesFallbackError(t *testing.T) {
	wantErr := errors.New("no default device")
	_, err := resolveDevice(nil, 5, func() (*portaudio.DeviceInfo, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestNewClockMonotonic(t *testing.T) {
	c := NewClock()
	first := c.Now()
	second := c.Now()
	if second < first {
		t.Errorf("Now() went backward: %v then %v", first, second)
	}
}

func TestNewSizesRingsFromChannelsAndTransfer(t *testing.T) {
	h := New(2, 2, 56, 48000)
	if h.P2OAudio == nil || h.O2PAudio == nil || h.P2OMIDI == nil || h.O2PMIDI == nil {
		t.Fatal("New did not allocate all four rings")
	}
	wantP2OAtLeast := 4 * 2 * 56 * ringPeriods
	if got := h.P2OAudio.WriteSpace(); got < wantP2OAtLeast {
		t.Errorf("P2OAudio capacity = %d, want at least %d", got, wantP2OAtLeast)
	}
}
