package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blofeldctl/internal/sysex"
)

// SendWavetable transmits the 64 WTBD messages of wt in order, pausing
// between messages so the device's receive buffer keeps up.
func (s *Session) SendWavetable(ctx context.Context, wt sysex.Wavetable) error {
	msgs, err := wt.Messages()
	if err != nil {
		return err
	}
	dev := s.DeviceID()
	frames := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		frame, err := s.codec.Encode(dev, m)
		if err != nil {
			return fmt.Errorf("wave %d: %w", m.Wave, err)
		}
		frames = append(frames, frame)
	}
	s.log.Info("sending wavetable", zap.Int("slot", wt.Slot), zap.String("name", wt.Name))
	return s.SendFrames(ctx, frames, s.timing.WavetablePacing)
}

// SendFrames transmits raw frames strictly one after another with pacing
// between them. It stops at the first error or when ctx ends.
func (s *Session) SendFrames(ctx context.Context, frames [][]byte, pacing time.Duration) error {
	var timer *time.Timer
	for i, frame := range frames {
		if i > 0 && pacing > 0 {
			if timer == nil {
				timer = time.NewTimer(pacing)
				defer timer.Stop()
			} else {
				timer.Reset(pacing)
			}
			select {
			case <-timer.C:
			case <-ctx.Done():
				return fmt.Errorf("frame %d of %d: %w", i+1, len(frames), ctx.Err())
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SendRaw(frame); err != nil {
			return fmt.Errorf("frame %d of %d: %w", i+1, len(frames), err)
		}
	}
	return nil
}
