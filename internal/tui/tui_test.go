// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"denoiser/internal/analysis"
	"denoiser/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

func TestLevelPercent(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{-90, 0},
		{MeterFloorDB, 0},
		{-30, 0.5},
		{0, 1},
		{6, 1},
	}
	for _, tt := range tests {
		if got := LevelPercent(tt.db); got != tt.want {
			t.Errorf("LevelPercent(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}

func TestMeterUpdate(t *testing.T) {
	var model tea.Model = NewMeterModel("Recording", 30)

	model, _ = model.Update(ElapsedMsg(75))
	model, _ = model.Update(LevelMsg{
		Level:   0.5,
		LevelDB: -6,
		Bands: []analysis.BandLevel{
			{FrequencyBand: analysis.FrequencyBand{Name: "bass"}, LevelDB: -12},
		},
	})
	model, _ = model.Update(LevelMsg{LevelDB: -20})

	m := model.(MeterModel)
	if m.levelDB != -20 {
		t.Errorf("levelDB = %v, want -20", m.levelDB)
	}
	if m.peakDB != -6 {
		t.Errorf("peakDB = %v, want -6", m.peakDB)
	}

	view := m.View()
	for _, want := range []string{"Recording", "01:15 / 00:30", "-20.0 dB", "peak", "q: Stop recording"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestMeterSilenceClampsToFloor(t *testing.T) {
	var model tea.Model = NewMeterModel("Recording", 0)
	model, _ = model.Update(LevelMsg{LevelDB: -400})
	if m := model.(MeterModel); m.levelDB != MeterFloorDB {
		t.Errorf("levelDB = %v, want %v", m.levelDB, MeterFloorDB)
	}
}

func TestMeterQuit(t *testing.T) {
	var model tea.Model = NewMeterModel("Recording", 0)
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q returned %T, want tea.QuitMsg", cmd())
	}
	if !strings.Contains(model.View(), "STOPPED") {
		t.Errorf("View() after quit should show STOPPED")
	}
}

func TestMeterStopped(t *testing.T) {
	stopErr := errors.New("device lost")
	var model tea.Model = NewMeterModel("Recording", 0)
	model, cmd := model.Update(StoppedMsg{Err: stopErr})
	if cmd == nil {
		t.Fatal("StoppedMsg should quit")
	}
	if err := model.(MeterModel).Err(); !errors.Is(err, stopErr) {
		t.Errorf("Err() = %v, want %v", err, stopErr)
	}
}

var testDevices = []audio.Device{
	{ID: 0, Name: "HDMI Out", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "USB Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
	{ID: 2, Name: "Line In", MaxInputChannels: 2, DefaultSampleRate: 44100},
}

func keyPress(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func TestDeviceListSelection(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDevices, nil })

	var model tea.Model = m
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(m.Init()())

	dl := model.(DeviceListModel)
	if dl.selectedIndex != 1 {
		t.Fatalf("selectedIndex = %d, want first input device 1", dl.selectedIndex)
	}
	if !strings.Contains(dl.View(), "USB Mic") {
		t.Errorf("View() should list devices")
	}

	model, _ = model.Update(keyPress(tea.KeyDown))
	model, _ = model.Update(keyPress(tea.KeyEnter))
	if dl = model.(DeviceListModel); dl.activeScreen != ConfigScreen {
		t.Fatalf("Enter should open the config screen")
	}
	if got := CommonSampleRates[dl.sampleRateIndex]; got != 44100 {
		t.Errorf("preselected rate = %d, want the device default 44100", got)
	}

	model, _ = model.Update(keyPress(tea.KeyDown))
	model, cmd := model.Update(keyPress(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("confirming should quit")
	}
	sel := model.(DeviceListModel).Selection()
	if sel == nil || sel.DeviceID != 2 || sel.SampleRate != 48000 {
		t.Errorf("Selection() = %+v, want device 2 at 48000", sel)
	}
}

func TestDeviceListOutputOnlyNotConfigurable(t *testing.T) {
	outputs := []audio.Device{testDevices[0]}
	m := NewDeviceListModel(func() ([]audio.Device, error) { return outputs, nil })

	var model tea.Model = m
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(m.Init()())
	model, _ = model.Update(keyPress(tea.KeyEnter))
	if model.(DeviceListModel).activeScreen != ListScreen {
		t.Errorf("an output-only device should not open the config screen")
	}
}

func TestDeviceListError(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host") })
	model, _ := m.Update(m.Init()())
	if !strings.Contains(model.View(), "no host") {
		t.Errorf("View() should show the fetch error")
	}
	if model.(DeviceListModel).Selection() != nil {
		t.Errorf("Selection() should be nil")
	}
}
