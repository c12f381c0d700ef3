// Package iofmt implements the particle binary file format:
// little-endian IEEE-754 binary64, six fields per particle
// (pos_x, pos_y, mass, vel_x, vel_y, brightness), file length
// 6*8*N bytes. It also implements the movie-frame dump format, a
// concatenation of per-step (pos_x, pos_y, mass) frames.
//
// This package's reader/writer rely on plain encoding/binary for
// fixed-width numeric records rather than a
// general-purpose serialization library, since the record layout is
// fixed and known at compile time.
package iofmt

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernelerr"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
)

const fieldsPerParticle = 6
const bytesPerField = 8

// ReadSystem reads N particles from path in the format described
// above.
func ReadSystem(path string, n int) (*particle.System, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.ArgumentInvalid, err, "opening particle file")
	}
	defer f.Close()

	s := particle.New(n)
	r := bufio.NewReader(f)
	for i := 0; i < n; i++ {
		vals, err := readFields(r, fieldsPerParticle)
		if err != nil {
			return nil, kernelerr.Wrap(kernelerr.ArgumentInvalid, err, "reading particle record")
		}
		s.PosX[i], s.PosY[i], s.Mass[i] = vals[0], vals[1], vals[2]
		s.VelX[i], s.VelY[i], s.Brightness[i] = vals[3], vals[4], vals[5]
	}
	return s, nil
}

func readFields(r io.Reader, count int) ([]float64, error) {
	out := make([]float64, count)
	var buf [bytesPerField]byte
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
	}
	return out, nil
}

// WriteResultOptions controls what WriteResult emits.
type WriteResultOptions struct {
	// OmitBrightness drops the sixth field, producing the 5-field
	// variant of the result file.
	OmitBrightness bool
}

// WriteResult writes s to path in the particle file format, or the
// 5-field variant if opts.OmitBrightness is set.
func WriteResult(path string, s *particle.System, opts WriteResultOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return kernelerr.Wrap(kernelerr.ArgumentInvalid, err, "creating result file")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < s.Len(); i++ {
		fields := []float64{s.PosX[i], s.PosY[i], s.Mass[i], s.VelX[i], s.VelY[i], s.Brightness[i]}
		if opts.OmitBrightness {
			fields = fields[:5]
		}
		if err := writeFields(w, fields); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeFields(w io.Writer, vals []float64) error {
	var buf [bytesPerField]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// MovieWriter appends (pos_x, pos_y, mass) frames to a movie.gal
// file, one frame per call to WriteFrame. The force kernel never
// calls this; it exists for the reference driver's optional
// frame-dumping.
type MovieWriter struct {
	f *os.File
	w *bufio.Writer
}

// OpenMovieWriter creates (or truncates) path for frame-appending.
func OpenMovieWriter(path string) (*MovieWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.ArgumentInvalid, err, "creating movie file")
	}
	return &MovieWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteFrame appends one (pos_x, pos_y, mass) frame for all particles
// in s.
func (mw *MovieWriter) WriteFrame(s *particle.System) error {
	for i := 0; i < s.Len(); i++ {
		if err := writeFields(mw.w, []float64{s.PosX[i], s.PosY[i], s.Mass[i]}); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (mw *MovieWriter) Close() error {
	if err := mw.w.Flush(); err != nil {
		return err
	}
	return mw.f.Close()
}
