// Package miniaudio provides the local microphone and speaker devices
// backing voice sessions, built on the malgo bindings.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/tbornik/coaching-core/core/audio"
)

// Client bundles one playback and one capture device sharing a single
// miniaudio context. Both run at the transport's PCM encoding so no
// resampling happens on either path.
type Client struct {
	// audioContext is only saved to be able to uninitialize it.
	audioContext *malgo.AllocatedContext
	playbackDevice
	captureDevice
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}

	if err := client.playbackDevice.init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := client.playbackDevice.start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureDevice.init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return &client, nil
}

// StartCapture begins streaming microphone frames to onAudio. Starting an
// already-started capture is a no-op.
func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureDevice.start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureDevice.stop()
}

// Play enqueues coach audio for playback.
func (c *Client) Play(audio []byte) error {
	return c.playbackDevice.enqueue(audio)
}

// ClearPlayback drops all queued audio, for interruptions and teardown.
func (c *Client) ClearPlayback() {
	c.playbackDevice.clear()
}

// NotifyDrained registers a one-shot callback fired once every byte queued
// so far has been played out.
func (c *Client) NotifyDrained(callback func()) {
	c.playbackDevice.notifyDrained(callback)
}

// AwaitDrained blocks until all queued audio has played out.
func (c *Client) AwaitDrained() {
	done := make(chan struct{})
	c.playbackDevice.notifyDrained(func() { close(done) })
	<-done
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}

func (c *Client) Close() {
	_ = c.captureDevice.uninit()
	_ = c.playbackDevice.uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}
