// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	if mt.Last() != nil {
		t.Fatalf("Last() on empty transport = %v, want nil", mt.Last())
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mt.Send(i)
		}()
	}
	wg.Wait()

	if got := len(mt.Messages()); got != 16 {
		t.Errorf("Messages() length = %d, want 16", got)
	}

	_ = mt.Send("last")
	if mt.Last() != "last" {
		t.Errorf("Last() = %v, want %q", mt.Last(), "last")
	}

	snapshot := mt.Messages()
	snapshot[0] = "changed"
	if mt.Messages()[0] == "changed" {
		t.Errorf("Messages() returned internal slice instead of a copy")
	}

	if err := mt.Close(); err != nil || !mt.Closed() {
		t.Errorf("Close() err = %v, Closed() = %v", err, mt.Closed())
	}
}

func TestGenerateSine(t *testing.T) {
	tests := []struct {
		name      string
		frequency float64
		amplitude float64
	}{
		{"Unit", testFrequency, 1},
		{"Half", testFrequency, 0.5},
		{"Low", 50, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSine(tt.frequency, testSampleRate, testSize, tt.amplitude)
			if len(result) != testSize {
				t.Fatalf("GenerateSine() length = %d, want %d", len(result), testSize)
			}
			if result[0] != 0 {
				t.Errorf("GenerateSine()[0] = %v, want 0", result[0])
			}
			for i, v := range result {
				if math.Abs(v) > tt.amplitude+1e-12 {
					t.Fatalf("sample %d = %v exceeds amplitude %v", i, v, tt.amplitude)
				}
			}
		})
	}
}

func TestGenerateComplexWave(t *testing.T) {
	result := GenerateComplexWave(testSampleRate, testSize)
	if len(result) != testSize {
		t.Fatalf("GenerateComplexWave() length = %d, want %d", len(result), testSize)
	}

	hasNonZero := false
	for _, v := range result {
		if math.Abs(v) > 0.9 {
			t.Fatalf("GenerateComplexWave() sample %v outside [-0.9, 0.9]", v)
		}
		if v != 0 {
			hasNonZero = true
		}
	}
	if !hasNonZero {
		t.Errorf("GenerateComplexWave() produced all zeros")
	}
}

func TestGenerateSquare(t *testing.T) {
	result := GenerateSquare(100, 8000, 160, 1)
	for i := 0; i < 40; i++ {
		if result[i] != 1 {
			t.Fatalf("sample %d = %v, want 1", i, result[i])
		}
	}
	for i := 40; i < 80; i++ {
		if result[i] != -1 {
			t.Fatalf("sample %d = %v, want -1", i, result[i])
		}
	}
}

func TestInterleave(t *testing.T) {
	got := Interleave([]float64{1, 2}, []float64{-1, -2})
	want := []float32{1, -1, 2, -2}
	if len(got) != len(want) {
		t.Fatalf("Interleave() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Interleave()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if Interleave() != nil {
		t.Errorf("Interleave() with no channels should be nil")
	}
}

func TestFindPeakBin(t *testing.T) {
	hill := make([]float64, testSize)
	for i := range hill {
		hill[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", hill, 0, testSize - 1, testSize / 4},
		{"Clamped Range", hill, -5, testSize * 2, testSize / 4},
		{"Sub Range", hill, testSize / 2, testSize - 1, testSize / 2},
		{"Empty", nil, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(hill, 0, len(hill)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGenerateSine(b *testing.B) {
	benchmarks := []struct {
		name string
		size int
	}{
		{"Small", 64},
		{"Standard", 1024},
		{"Large", 8192},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for n := 0; n < b.N; n++ {
				GenerateSine(testFrequency, testSampleRate, bm.size, 1)
			}
		})
	}
}
