package resource

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// SampleRate is the engine mixing rate; sounds are buffered at their own rate
const SampleRate = beep.SampleRate(48000)

// Sound is a fully decoded clip
type Sound struct {
	Name   string
	Format beep.Format
	Buffer *beep.Buffer
}

// Streamer returns a fresh playback cursor over the clip
func (s *Sound) Streamer() beep.StreamSeeker {
	return s.Buffer.Streamer(0, s.Buffer.Len())
}

// Duration of the clip
func (s *Sound) Duration() time.Duration {
	return s.Format.SampleRate.D(s.Buffer.Len())
}

// Tone synthesizes a sine clip with a short linear fade out
func Tone(name string, freq float64, d time.Duration, volume float64) *Sound {
	format := beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}
	total := SampleRate.N(d)
	fade := SampleRate.N(20 * time.Millisecond)
	pos := 0
	gen := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			t := float64(pos) / float64(SampleRate)
			env := 1.0
			if left := total - pos; left < fade {
				env = float64(left) / float64(fade)
			}
			v := volume * env * math.Sin(2*math.Pi*freq*t)
			samples[i] = [2]float64{v, v}
			pos++
		}
		return len(samples), true
	})
	buf := beep.NewBuffer(format)
	buf.Append(beep.Take(total, gen))
	return &Sound{Name: name, Format: format, Buffer: buf}
}

func toneSound(_ context.Context, d Descriptor) (any, error) {
	freq := paramFloat(d.Params, "frequency", 440)
	ms := paramInt(d.Params, "duration_ms", 150)
	if freq <= 0 || ms <= 0 {
		return nil, fmt.Errorf("tone needs positive frequency and duration")
	}
	return Tone(d.Name, freq, time.Duration(ms)*time.Millisecond, paramFloat(d.Params, "volume", 0.3)), nil
}

// wavSound decodes params["path"] (default: the name) from fsys
func wavSound(fsys fs.FS) LoaderFunc {
	return func(_ context.Context, d Descriptor) (any, error) {
		f, err := fsys.Open(paramString(d.Params, "path", d.Name))
		if err != nil {
			return nil, err
		}
		defer f.Close()

		stream, format, err := wav.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode wav: %w", err)
		}
		defer stream.Close()

		buf := beep.NewBuffer(format)
		buf.Append(stream)
		return &Sound{Name: d.Name, Format: format, Buffer: buf}, nil
	}
}
