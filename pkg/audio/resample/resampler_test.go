// ABOUTME: Tests for the linear resampler
// ABOUTME: Checks identity, ratios and continuity across chunks
package resample

import "testing"

func TestResampleIdentity(t *testing.T) {
	r := New(44100, 44100, 1)
	in := []int32{10, 20, 30, 40}
	out := make([]int32, r.OutputSamplesNeeded(len(in)))

	n := r.Resample(in, out)
	// the final frame is held back until the next chunk
	if n != 3 {
		t.Fatalf("expected 3 samples, got %d", n)
	}
	for i := 0; i < n; i++ {
		if out[i] != in[i] {
			t.Errorf("sample %d: expected %d, got %d", i, in[i], out[i])
		}
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	r := New(1, 2, 1)
	in := []int32{0, 100, 200}
	out := make([]int32, r.OutputSamplesNeeded(len(in)))

	n := r.Resample(in, out)
	want := []int32{0, 50, 100, 150}
	if n != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), n)
	}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("sample %d: expected %d, got %d", i, w, out[i])
		}
	}
}

func TestResampleContinuesAcrossChunks(t *testing.T) {
	r := New(1, 2, 1)
	out := make([]int32, 16)

	n := r.Resample([]int32{0, 100}, out)
	if n != 2 {
		t.Fatalf("first chunk: expected 2 samples, got %d", n)
	}

	n = r.Resample([]int32{200}, out)
	want := []int32{100, 150}
	if n != len(want) {
		t.Fatalf("second chunk: expected %d samples, got %d", len(want), n)
	}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("sample %d: expected %d, got %d", i, w, out[i])
		}
	}
}

func TestResampleStereoChannelsStaySeparate(t *testing.T) {
	r := New(2, 1, 2)
	in := []int32{1, -1, 2, -2, 3, -3, 4, -4, 5, -5}
	out := make([]int32, r.OutputSamplesNeeded(len(in)))

	n := r.Resample(in, out)
	if n%2 != 0 {
		t.Fatalf("expected whole frames, got %d samples", n)
	}
	for i := 0; i < n; i += 2 {
		if out[i] != -out[i+1] {
			t.Errorf("frame %d: channels mixed (%d, %d)", i/2, out[i], out[i+1])
		}
	}
	if out[0] != 1 || out[2] != 3 {
		t.Errorf("expected every other frame, got %v", out[:n])
	}
}

func TestResampleEmptyInput(t *testing.T) {
	r := New(32000, 44100, 2)
	if n := r.Resample(nil, make([]int32, 8)); n != 0 {
		t.Errorf("expected 0 samples, got %d", n)
	}
}

func TestReset(t *testing.T) {
	r := New(1, 2, 1)
	out := make([]int32, 8)
	r.Resample([]int32{0, 100}, out)
	r.Reset()

	n := r.Resample([]int32{500, 600}, out)
	if n == 0 || out[0] != 500 {
		t.Errorf("expected fresh start at 500, got %v", out[:n])
	}
}

func TestSamplesNeeded(t *testing.T) {
	r := New(22050, 44100, 2)
	if got := r.OutputSamplesNeeded(200); got < 400 {
		t.Errorf("expected at least 400 output samples, got %d", got)
	}
	if got := r.InputSamplesNeeded(400); got != 200 {
		t.Errorf("expected 200 input samples, got %d", got)
	}
}
