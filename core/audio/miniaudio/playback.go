package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/tbornik/coaching-core/core/audio"
)

// playbackDevice feeds queued PCM to the speaker. Drain callbacks are
// position markers in the queue: each fires once playback passes the byte
// position it was registered at.
type playbackDevice struct {
	device *malgo.Device
	config malgo.DeviceConfig

	mu     sync.Mutex
	queued []byte
	drains []drainMark
}

type drainMark struct {
	position int
	callback func()
}

func (d *playbackDevice) init(audioContext *malgo.AllocatedContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoding := audio.DefaultEncodingInfo()
	sampleRate := uint32(encoding.SampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	d.config = malgo.DefaultDeviceConfig(malgo.Playback)
	d.config.SampleRate = sampleRate
	d.config.Playback.Format = format
	d.config.Playback.Channels = uint32(channels)
	d.config.Alsa.NoMMap = 1
	d.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	d.config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, d.config, malgo.DeviceCallbacks{
		Data: d.processAudio(bytesPerFrame, encoding.SilenceValue()),
	})
	if err != nil {
		return err
	}
	d.device = device
	return nil
}

func (d *playbackDevice) start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (d *playbackDevice) stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}
	d.clearLocked()
	return nil
}

func (d *playbackDevice) enqueue(audio []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	if !d.device.IsStarted() {
		return fmt.Errorf("playback device not started")
	}
	d.queued = append(d.queued, audio...)
	return nil
}

func (d *playbackDevice) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
}

func (d *playbackDevice) clearLocked() {
	d.queued = nil
	drains := d.drains
	d.drains = nil
	// Dropped audio counts as played for anyone waiting on a drain.
	go func() {
		for _, drain := range drains {
			drain.callback()
		}
	}()
}

func (d *playbackDevice) notifyDrained(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queued) == 0 {
		go callback()
		return
	}
	d.drains = append(d.drains, drainMark{position: len(d.queued), callback: callback})
}

func (d *playbackDevice) uninit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return fmt.Errorf("playback device not initialized")
	}
	d.device.Uninit()
	d.device = nil
	return nil
}

func (d *playbackDevice) processAudio(bytesPerFrame int, silence byte) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		d.mu.Lock()
		consumed := need
		if consumed > len(d.queued) {
			consumed = len(d.queued)
		}
		copy(pOutput, d.queued[:consumed])
		for i := consumed; i < need && i < len(pOutput); i++ {
			pOutput[i] = silence
		}
		d.queued = d.queued[consumed:]
		passed := d.advanceDrainsLocked(consumed)
		d.mu.Unlock()

		if len(passed) > 0 {
			go func() {
				for _, drain := range passed {
					drain.callback()
				}
			}()
		}
	}
}

// advanceDrainsLocked moves drain marks back by the number of consumed
// bytes and returns the ones playback just passed.
func (d *playbackDevice) advanceDrainsLocked(consumed int) []drainMark {
	passed := 0
	for i, drain := range d.drains {
		if drain.position > consumed {
			d.drains[i].position -= consumed
		} else {
			passed++
		}
	}
	fired := append([]drainMark(nil), d.drains[:passed]...)
	d.drains = d.drains[passed:]
	return fired
}
