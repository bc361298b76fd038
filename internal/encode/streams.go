package encode

import (
	"github.com/asticode/go-astiav"

	"github.com/DA1F/RoAnalyzer/internal/errors"
)

// msTimeBase is the encoder-side time base: one tick per millisecond.
var msTimeBase = astiav.NewRational(1, 1000)

// streamEncoder pairs an opened codec context with its output stream.
type streamEncoder struct {
	name   string
	ctx    *astiav.CodecContext
	stream *astiav.Stream
}

func (s *streamEncoder) free() {
	if s.ctx != nil {
		s.ctx.Free()
		s.ctx = nil
	}
}

func codecError(category errors.ErrorCategory, op string, err error) error {
	var b *errors.ErrorBuilder
	if err != nil {
		b = errors.New(err)
	} else {
		b = errors.Newf("%s failed", op)
	}
	return b.Component(componentName).
		Category(category).
		Context("operation", op).
		Build()
}

// openStream opens ctx with codec and attaches a stream carrying its parameters.
func openStream(oc *astiav.FormatContext, codec *astiav.Codec, ctx *astiav.CodecContext, name string) (*streamEncoder, error) {
	if oc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader) {
		ctx.SetFlags(ctx.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	if err := ctx.Open(codec, nil); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "open_"+name+"_encoder", err)
	}

	stream := oc.NewStream(codec)
	if stream == nil {
		return nil, codecError(errors.CategoryCodecConfig, "new_"+name+"_stream", nil)
	}
	if err := ctx.ToCodecParameters(stream.CodecParameters()); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "copy_"+name+"_parameters", err)
	}
	stream.SetTimeBase(ctx.TimeBase())

	return &streamEncoder{name: name, ctx: ctx, stream: stream}, nil
}

// videoEncoder converts RGB24 frames to YUV420P and feeds the MPEG-4 encoder.
type videoEncoder struct {
	*streamEncoder
	ssc *astiav.SoftwareScaleContext
	rgb *astiav.Frame
	yuv *astiav.Frame
}

func newVideoEncoder(oc *astiav.FormatContext, opts Options) (_ *videoEncoder, err error) {
	codec := astiav.FindEncoder(astiav.CodecIDMpeg4)
	if codec == nil {
		return nil, errors.Newf("mpeg4 encoder not available in this FFmpeg build").
			Component(componentName).
			Category(errors.CategoryCodecUnavailable).
			Context("codec", "mpeg4").
			Build()
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, codecError(errors.CategoryCodecConfig, "alloc_video_context", nil)
	}
	defer func() {
		if err != nil {
			ctx.Free()
		}
	}()

	ctx.SetWidth(opts.Width)
	ctx.SetHeight(opts.Height)
	ctx.SetPixelFormat(astiav.PixelFormatYuv420P)
	ctx.SetTimeBase(msTimeBase)
	ctx.SetFramerate(astiav.NewRational(opts.FPS, 1))
	ctx.SetGopSize(opts.gopSize())
	if opts.VideoBitRate > 0 {
		ctx.SetBitRate(int64(opts.VideoBitRate))
	}

	se, err := openStream(oc, codec, ctx, "video")
	if err != nil {
		return nil, err
	}

	v := &videoEncoder{streamEncoder: se}
	defer func() {
		if err != nil {
			v.freeFrames()
		}
	}()

	v.ssc, err = astiav.CreateSoftwareScaleContext(
		opts.Width, opts.Height, astiav.PixelFormatRgb24,
		opts.Width, opts.Height, astiav.PixelFormatYuv420P,
		astiav.NewSoftwareScaleContextFlags(),
	)
	if err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "create_scaler", err)
	}

	v.rgb = astiav.AllocFrame()
	v.rgb.SetWidth(opts.Width)
	v.rgb.SetHeight(opts.Height)
	v.rgb.SetPixelFormat(astiav.PixelFormatRgb24)
	if err = v.rgb.AllocBuffer(1); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "alloc_rgb_frame", err)
	}

	v.yuv = astiav.AllocFrame()
	v.yuv.SetWidth(opts.Width)
	v.yuv.SetHeight(opts.Height)
	v.yuv.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err = v.yuv.AllocBuffer(0); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "alloc_yuv_frame", err)
	}

	return v, nil
}

// prepare converts one packed RGB24 image into the YUV frame stamped with pts.
func (v *videoEncoder) prepare(rgb []byte, pts int64) (*astiav.Frame, error) {
	if err := v.rgb.MakeWritable(); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "rgb_frame_writable", err)
	}
	if err := v.rgb.Data().SetBytes(rgb, 1); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "fill_rgb_frame", err)
	}
	if err := v.yuv.MakeWritable(); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "yuv_frame_writable", err)
	}
	if err := v.ssc.ScaleFrame(v.rgb, v.yuv); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "scale_frame", err)
	}
	v.yuv.SetPts(pts)
	return v.yuv, nil
}

func (v *videoEncoder) freeFrames() {
	if v.rgb != nil {
		v.rgb.Free()
		v.rgb = nil
	}
	if v.yuv != nil {
		v.yuv.Free()
		v.yuv = nil
	}
	if v.ssc != nil {
		v.ssc.Free()
		v.ssc = nil
	}
}

func (v *videoEncoder) free() {
	v.freeFrames()
	v.streamEncoder.free()
}

// audioEncoder feeds planar float blocks to the AAC encoder.
type audioEncoder struct {
	*streamEncoder
	frame      *astiav.Frame
	acc        *pcmAccumulator
	sampleRate int
	samples    int64 // per channel, submitted so far
}

func newAudioEncoder(oc *astiav.FormatContext, opts Options) (_ *audioEncoder, err error) {
	codec := astiav.FindEncoder(astiav.CodecIDAac)
	if codec == nil {
		return nil, errors.Newf("aac encoder not available in this FFmpeg build").
			Component(componentName).
			Category(errors.CategoryCodecUnavailable).
			Context("codec", "aac").
			Build()
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, codecError(errors.CategoryCodecConfig, "alloc_audio_context", nil)
	}
	defer func() {
		if err != nil {
			ctx.Free()
		}
	}()

	layout := astiav.ChannelLayoutMono
	if opts.Channels == 2 {
		layout = astiav.ChannelLayoutStereo
	}

	ctx.SetSampleFormat(astiav.SampleFormatFltp)
	ctx.SetSampleRate(opts.SampleRate)
	ctx.SetChannelLayout(layout)
	ctx.SetTimeBase(msTimeBase)
	if opts.AudioBitRate > 0 {
		ctx.SetBitRate(int64(opts.AudioBitRate))
	}
	// Some builds require experimental compliance for AAC
	ctx.SetStrictStdCompliance(astiav.StrictStdComplianceExperimental)

	se, err := openStream(oc, codec, ctx, "audio")
	if err != nil {
		return nil, err
	}

	frameSize := ctx.FrameSize()
	if frameSize <= 0 {
		return nil, errors.Newf("aac encoder reported frame size %d", frameSize).
			Component(componentName).
			Category(errors.CategoryCodecConfig).
			Build()
	}

	a := &audioEncoder{
		streamEncoder: se,
		acc:           newPCMAccumulator(frameSize, opts.Channels),
		sampleRate:    opts.SampleRate,
	}

	a.frame = astiav.AllocFrame()
	a.frame.SetNbSamples(frameSize)
	a.frame.SetSampleFormat(astiav.SampleFormatFltp)
	a.frame.SetChannelLayout(layout)
	a.frame.SetSampleRate(opts.SampleRate)
	if err = a.frame.AllocBuffer(0); err != nil {
		a.frame.Free()
		return nil, codecError(errors.CategoryCodecConfig, "alloc_audio_frame", err)
	}

	return a, nil
}

// prepare loads one planar block into the encoder frame. The pts is derived
// from the samples submitted before it.
func (a *audioEncoder) prepare(planar []byte) (*astiav.Frame, error) {
	if err := a.frame.MakeWritable(); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "audio_frame_writable", err)
	}
	if err := a.frame.Data().SetBytes(planar, 1); err != nil {
		return nil, codecError(errors.CategoryCodecConfig, "fill_audio_frame", err)
	}
	a.frame.SetPts(a.samples * 1000 / int64(a.sampleRate))
	a.samples += int64(a.acc.frameSize)
	return a.frame, nil
}

func (a *audioEncoder) free() {
	if a.frame != nil {
		a.frame.Free()
		a.frame = nil
	}
	a.streamEncoder.free()
}
