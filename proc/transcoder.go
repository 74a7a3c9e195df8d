package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/asticode/go-astiav"
	"github.com/leeineian/jukebox/sys"
)

const (
	opusSampleRate = 48000
	opusFrameSize  = 960 // samples per channel in 20ms
	opusBitRate    = 128000
	analyzeLimit     = "10000000"
	customIOBuffer = 16 * 1024
)

var (
	errNoAudioStream = errors.New("input has no audio stream")
	errNoDecoder     = errors.New("no decoder for input codec")
	errNoOpus        = errors.New("opus encoder unavailable")
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelFatal)
}

// Transcoder decodes any audio input and re-encodes it as 20ms Opus frames.
type Transcoder struct {
	src    demuxer
	enc    opusEncoder
	volume *atomic.Int32
}

// demuxer reads packets of a single audio stream and decodes them.
type demuxer struct {
	format  *astiav.FormatContext
	decoder *astiav.CodecContext
	stream  int
	packet  *astiav.Packet
	frame   *astiav.Frame
	reader  io.Reader
}

// opusEncoder resamples decoded frames to 48kHz stereo s16, slices them into
// fixed-size frames through a fifo and encodes each one.
type opusEncoder struct {
	codec     *astiav.CodecContext
	resampler *astiav.SoftwareResampleContext
	scratch   *astiav.Frame
	packet    *astiav.Packet
	fifo      *astiav.AudioFifo
	pts       int64
	emit      func([]byte)
}

// NewTranscoder scales every frame by *volume percent at encode time.
func NewTranscoder(volume *atomic.Int32) *Transcoder {
	return &Transcoder{
		src:    demuxer{packet: astiav.AllocPacket(), frame: astiav.AllocFrame()},
		enc:    opusEncoder{packet: astiav.AllocPacket(), scratch: astiav.AllocFrame()},
		volume: volume,
	}
}

// Open prepares input, decoder and encoder. r takes precedence over in.
func (t *Transcoder) Open(in string, r io.Reader) error {
	if err := t.src.open(in, r); err != nil {
		return err
	}
	return t.enc.open()
}

func (d *demuxer) open(in string, r io.Reader) error {
	d.format = astiav.AllocFormatContext()
	if d.format == nil {
		return errors.New("alloc format context")
	}

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("probesize", analyzeLimit, 0)
	_ = opts.Set("analyzeduration", analyzeLimit, 0)

	switch {
	case r != nil:
		d.reader = r
		pb, err := astiav.AllocIOContext(customIOBuffer, false, func(b []byte) (int, error) {
			return d.reader.Read(b)
		}, nil, nil)
		if err != nil {
			return err
		}
		d.format.SetPb(pb)
		d.format.SetFlags(d.format.Flags().Add(astiav.FormatContextFlagCustomIo))
		_ = opts.Set("fflags", "nobuffer", 0)
		in = ""
	case strings.HasPrefix(in, "http"):
		_ = opts.Set("reconnect", "1", 0)
		_ = opts.Set("reconnect_streamed", "1", 0)
		_ = opts.Set("reconnect_delay_max", "30", 0)
		_ = opts.Set("timeout", "30000000", 0)
	}

	if err := d.format.OpenInput(in, nil, opts); err != nil {
		return err
	}
	if err := d.format.FindStreamInfo(nil); err != nil {
		return err
	}

	var params *astiav.CodecParameters
	for _, s := range d.format.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			d.stream, params = s.Index(), s.CodecParameters()
			break
		}
	}
	if params == nil {
		return errNoAudioStream
	}

	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return errNoDecoder
	}
	d.decoder = astiav.AllocCodecContext(codec)
	_ = params.ToCodecContext(d.decoder)
	return d.decoder.Open(codec, nil)
}

// next feeds the decoder one packet of the audio stream. It returns io.EOF at
// the end of input.
func (d *demuxer) next() error {
	for {
		d.packet.Unref()
		if err := d.format.ReadFrame(d.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return io.EOF
			}
			return err
		}
		if d.packet.StreamIndex() == d.stream {
			return d.decoder.SendPacket(d.packet)
		}
	}
}

// frames hands every frame the decoder has ready to fn.
func (d *demuxer) frames(fn func(*astiav.Frame) error) error {
	for d.decoder.ReceiveFrame(d.frame) == nil {
		err := fn(d.frame)
		d.frame.Unref()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *opusEncoder) open() error {
	codec := astiav.FindEncoderByName("libopus")
	if codec == nil {
		codec = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if codec == nil {
		return errNoOpus
	}
	e.codec = astiav.AllocCodecContext(codec)
	e.codec.SetBitRate(opusBitRate)
	e.codec.SetSampleRate(opusSampleRate)
	e.codec.SetChannelLayout(astiav.ChannelLayoutStereo)
	e.codec.SetSampleFormat(astiav.SampleFormatS16)
	e.codec.SetTimeBase(astiav.NewRational(1, opusSampleRate))

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("vbr", "on", 0)
	_ = opts.Set("frame_size", "20", 0)
	if err := e.codec.Open(codec, opts); err != nil {
		return err
	}

	if e.resampler = astiav.AllocSoftwareResampleContext(); e.resampler == nil {
		return errors.New("alloc resampler")
	}
	return nil
}

// shape resets the scratch frame to n samples in the encoder's format.
func (e *opusEncoder) shape(n int) {
	e.scratch.Unref()
	e.scratch.SetNbSamples(n)
	e.scratch.SetChannelLayout(e.codec.ChannelLayout())
	e.scratch.SetSampleFormat(e.codec.SampleFormat())
	e.scratch.SetSampleRate(e.codec.SampleRate())
	_ = e.scratch.AllocBuffer(0)
}

// write resamples a decoded frame into the fifo. Frames that fail to convert
// are dropped.
func (e *opusEncoder) write(in *astiav.Frame) {
	n := astiav.RescaleQ(int64(in.NbSamples()),
		astiav.NewRational(1, in.SampleRate()), astiav.NewRational(1, e.codec.SampleRate()))
	if n <= 0 {
		return
	}
	e.shape(int(n))
	if e.resampler.ConvertFrame(in, e.scratch) != nil {
		return
	}
	_, _ = e.fifo.Write(e.scratch)
}

// flush encodes whole frames from the fifo. With partial set, a final short
// frame is encoded too.
func (e *opusEncoder) flush(volume *atomic.Int32, partial bool) error {
	for {
		n := e.fifo.Size()
		if n == 0 || (n < opusFrameSize && !partial) {
			return nil
		}
		n = min(n, opusFrameSize)

		e.shape(n)
		_, _ = e.fifo.Read(e.scratch)
		if volume != nil {
			if vol := volume.Load(); vol != 100 {
				pcm, _ := e.scratch.Data().Bytes(1)
				ScalePCM(pcm[:min(n*4, len(pcm))], int(vol))
				_ = e.scratch.Data().SetBytes(pcm, 1)
			}
		}

		e.scratch.SetPts(e.pts)
		e.pts += int64(n)
		if err := e.codec.SendFrame(e.scratch); err != nil {
			return err
		}
		e.drain()
	}
}

func (e *opusEncoder) drain() {
	for {
		e.packet.Unref()
		if e.codec.ReceivePacket(e.packet) != nil {
			return
		}
		if e.emit != nil {
			e.emit(append([]byte(nil), e.packet.Data()...))
		}
	}
}

// Transcode pushes encoded frames to on until the input ends or ctx is done.
// on(nil) marks the end of the stream.
func (t *Transcoder) Transcode(ctx context.Context, on func([]byte)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcoder panic: %v", r)
			sys.LogError(sys.MsgVoiceTranscoderFail, "panic", r)
		}
	}()
	defer on(nil)

	e := &t.enc
	e.emit = on
	defer func() { e.emit = nil }()

	e.fifo = astiav.AllocAudioFifo(e.codec.SampleFormat(), e.codec.ChannelLayout().Channels(), opusFrameSize*2)
	if e.fifo == nil {
		return errors.New("alloc audio fifo")
	}
	defer func() {
		e.fifo.Free()
		e.fifo = nil
	}()

	encode := func(f *astiav.Frame) error {
		e.write(f)
		return e.flush(t.volume, false)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := t.src.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := t.src.frames(encode); err != nil {
			return err
		}
	}

	_ = t.src.decoder.SendPacket(nil)
	if err := t.src.frames(encode); err != nil {
		return err
	}
	if err := e.flush(t.volume, true); err != nil {
		return err
	}
	_ = e.codec.SendFrame(nil)
	e.drain()
	return nil
}

// ScalePCM scales little-endian s16 samples in place by vol percent, clipping.
func ScalePCM(data []byte, vol int) {
	for i := 0; i+1 < len(data); i += 2 {
		s := int64(int16(uint16(data[i]) | uint16(data[i+1])<<8))
		s = min(max(s*int64(vol)/100, -32768), 32767)
		data[i], data[i+1] = byte(s), byte(s>>8)
	}
}

func (t *Transcoder) Close() {
	e, d := &t.enc, &t.src
	if e.resampler != nil {
		e.resampler.Free()
	}
	if e.codec != nil {
		e.codec.Free()
	}
	e.scratch.Free()
	e.packet.Free()

	if d.decoder != nil {
		d.decoder.Free()
	}
	if d.format != nil {
		d.format.CloseInput()
		d.format.Free()
	}
	d.frame.Free()
	d.packet.Free()
}
