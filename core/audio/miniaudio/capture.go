package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/tbornik/coaching-core/core/audio"
)

// captureDevice streams microphone frames to a single listener; the session
// controller forwards them to the transport uplink.
type captureDevice struct {
	device *malgo.Device
	config malgo.DeviceConfig

	onAudio func(audio []byte)

	mu sync.Mutex
}

func (d *captureDevice) init(audioContext *malgo.AllocatedContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	d.config = malgo.DefaultDeviceConfig(malgo.Capture)
	d.config.SampleRate = sampleRate
	d.config.Capture.Format = format
	d.config.Capture.Channels = uint32(channels)
	d.config.Alsa.NoMMap = 1
	d.config.PerformanceProfile = malgo.LowLatency
	d.config.PeriodSizeInFrames = sampleRate / 50 // ~20ms of audio
	d.config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, d.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(pInput) < n {
				return
			}
			d.mu.Lock()
			onAudio := d.onAudio
			d.mu.Unlock()
			if onAudio != nil {
				onAudio(pInput[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	d.device = device
	return nil
}

func (d *captureDevice) start(onAudio func(audio []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if d.device.IsStarted() {
		return nil
	}

	d.onAudio = onAudio
	if err := d.device.Start(); err != nil {
		d.onAudio = nil
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (d *captureDevice) stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return fmt.Errorf("capture device not initialized")
	}
	if !d.device.IsStarted() {
		return nil
	}

	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	d.onAudio = nil
	return nil
}

func (d *captureDevice) uninit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	d.onAudio = nil
	return nil
}
