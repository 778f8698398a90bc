// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used when the clock cannot run at a track's native rate
package resample

// Resampler performs linear interpolation to convert between sample rates.
// The last frame of each chunk is kept so consecutive chunks join without a gap.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // read position in frames, 0 is lastFrame when primed
	lastFrame  []int32 // one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int32, channels),
	}
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// frame returns sample ch of frame i, where frame 0 is the carried frame when primed
func (r *Resampler) frame(input []int32, i, ch int) int32 {
	if r.primed {
		if i == 0 {
			return r.lastFrame[ch]
		}
		i--
	}
	return input[i*r.channels+ch]
}

// Resample converts input samples to output sample rate using linear interpolation
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate, sized with OutputSamplesNeeded
func (r *Resampler) Resample(input []int32, output []int32) int {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}

	frames := inputFrames
	if r.primed {
		frames++
	}
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		idx := int(r.position)
		if idx+1 >= frames {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(r.frame(input, idx, ch))
			s2 := float64(r.frame(input, idx+1, ch))
			output[outIdx*r.channels+ch] = int32(s1*(1.0-frac) + s2*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// carry the final frame and rebase position onto it
	last := (inputFrames - 1) * r.channels
	copy(r.lastFrame, input[last:last+r.channels])
	r.position -= float64(frames - 1)
	if r.position < 0 {
		// output was too small, the rest of this chunk is dropped
		r.position = 0
	}
	r.primed = true

	return outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputSamplesNeeded returns an output size large enough for inputSamples of input
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames)/r.ratio) + 2
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
