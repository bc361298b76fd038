package ingest

import (
	"context"
	"encoding/hex"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

const deviceQueueLen = 64

// AudioDeviceInfo describes one capture device.
type AudioDeviceInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	IsDefault bool   `json:"is_default"`
}

// getBackendForPlatform returns the appropriate malgo backend for the current platform
func getBackendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.Newf("unsupported operating system %s", runtime.GOOS).
			Component(componentName).
			Category(errors.CategoryAudioSource).
			Build()
	}
}

func initContext() (*malgo.AllocatedContext, error) {
	backend, err := getBackendForPlatform()
	if err != nil {
		return nil, err
	}
	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}
	return ctx, nil
}

func releaseContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

// ListDevices returns the available capture devices.
func ListDevices() ([]AudioDeviceInfo, error) {
	ctx, err := initContext()
	if err != nil {
		return nil, err
	}
	defer releaseContext(ctx)

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate_devices").
			Build()
	}

	devices := make([]AudioDeviceInfo, 0, len(infos))
	for i := range infos {
		if strings.Contains(infos[i].Name(), "Discard all samples") {
			continue
		}
		devices = append(devices, AudioDeviceInfo{
			Index:     i,
			Name:      infos[i].Name(),
			ID:        decodeDeviceID(infos[i].ID.String()),
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return devices, nil
}

// decodeDeviceID turns malgo's hex encoded ID into text when it is
// printable ASCII.
func decodeDeviceID(id string) string {
	b, err := hex.DecodeString(id)
	if err != nil {
		return id
	}
	s := strings.TrimRight(string(b), "\x00")
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return id
		}
	}
	return s
}

// matchDevice picks a device by name, decoded ID or name substring. An
// empty name or "default" selects the system default.
func matchDevice(devices []AudioDeviceInfo, name string) (int, bool) {
	if name == "" || name == "default" || name == "sysdefault" {
		for i, d := range devices {
			if d.IsDefault {
				return i, true
			}
		}
		return 0, len(devices) > 0
	}
	for i, d := range devices {
		if d.Name == name || d.ID == name {
			return i, true
		}
	}
	for i, d := range devices {
		if strings.Contains(d.Name, name) {
			return i, true
		}
	}
	return 0, false
}

// DeviceSource captures s16le audio from a host device.
type DeviceSource struct {
	name       string
	sampleRate int
	channels   int
	log        logger.Logger

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	queue   chan *AudioRecord
	dropped atomic.Uint64
	now     func() time.Time
}

// NewDeviceSource prepares capture from the named device.
func NewDeviceSource(name string, sampleRate, channels int, log logger.Logger) *DeviceSource {
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	return &DeviceSource{name: name, sampleRate: sampleRate, channels: channels, log: log, now: time.Now}
}

// captureTimestamp stamps a chunk in Unix microseconds, the same clock HTTP
// ingest clients send in X-Timestamp-Us.
func captureTimestamp(t time.Time) uint64 {
	return uint64(t.UnixMicro())
}

// Dropped returns chunks discarded because the consumer fell behind.
func (d *DeviceSource) Dropped() uint64 { return d.dropped.Load() }

// Start opens the device and returns its stream. The stream ends and the
// device is released when ctx is done.
func (d *DeviceSource) Start(ctx context.Context) (AudioStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		return nil, errors.Newf("audio device already started").
			Component(componentName).
			Category(errors.CategoryState).
			Build()
	}

	mctx, err := initContext()
	if err != nil {
		return nil, err
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		releaseContext(mctx)
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate_devices").
			Build()
	}
	devices := make([]AudioDeviceInfo, len(infos))
	for i := range infos {
		devices[i] = AudioDeviceInfo{Index: i, Name: infos[i].Name(), ID: decodeDeviceID(infos[i].ID.String()), IsDefault: infos[i].IsDefault == 1}
	}
	idx, ok := matchDevice(devices, d.name)
	if !ok {
		releaseContext(mctx)
		return nil, errors.Newf("no matching audio device found").
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("device_name", d.name).
			Context("available_devices", len(devices)).
			Build()
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(d.channels)
	cfg.Capture.DeviceID = infos[idx].ID.Pointer()
	cfg.SampleRate = uint32(d.sampleRate)
	cfg.Alsa.NoMMap = 1

	d.queue = make(chan *AudioRecord, deviceQueueLen)

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: d.onData})
	if err != nil {
		releaseContext(mctx)
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioSource).
			Context("device_name", devices[idx].Name).
			Context("operation", "init_device").
			Build()
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		releaseContext(mctx)
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioSource).
			Context("device_name", devices[idx].Name).
			Context("operation", "start_device").
			Build()
	}
	d.mctx, d.device = mctx, device

	d.log.Info("audio capture started",
		logger.String("device", devices[idx].Name),
		logger.Int("sample_rate", d.sampleRate),
		logger.Int("channels", d.channels))

	go func() {
		<-ctx.Done()
		d.stop()
	}()
	return &deviceStream{ctx: ctx, queue: d.queue}, nil
}

// onData runs on the audio thread; it never blocks.
func (d *DeviceSource) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	rec := &AudioRecord{
		TimestampUs: captureTimestamp(d.now()),
		Data:        append([]byte(nil), input...),
	}
	select {
	case d.queue <- rec:
	default:
		d.dropped.Add(1)
	}
}

func (d *DeviceSource) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return
	}
	d.device.Uninit()
	releaseContext(d.mctx)
	d.device, d.mctx = nil, nil
	d.log.Info("audio capture stopped", logger.Uint64("dropped_chunks", d.dropped.Load()))
}

type deviceStream struct {
	ctx   context.Context
	queue <-chan *AudioRecord
}

func (s *deviceStream) Recv() (*AudioRecord, error) {
	select {
	case <-s.ctx.Done():
		return nil, io.EOF
	case rec := <-s.queue:
		return rec, nil
	}
}
