package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"blofeldctl/internal/session"
	"blofeldctl/internal/sysex"
)

// identify asks for the device identity. A device that never answers but
// has already been heard from still counts as identified.
func (a *app) identify(ctx context.Context) error {
	reply, err := a.requestIdentity(ctx)
	switch {
	case err == nil:
		fmt.Printf("manufacturer %02X family %X member %X version %s device %02X\n",
			reply.Manufacturer, reply.Family, reply.Member, string(reply.Version[:]), a.sess.DeviceID())
		return nil
	case errors.Is(err, session.ErrTimeout) && a.sess.DeviceID() != sysex.Broadcast:
		fmt.Printf("no identity reply; device %02X seen on the wire\n", a.sess.DeviceID())
		return nil
	}
	return err
}

func (a *app) requestIdentity(ctx context.Context) (sysex.DeviceIdentityReply, error) {
	replies := make(chan sysex.DeviceIdentityReply, 1)
	a.sess.OnMessage(func(m sysex.Message) {
		if r, ok := m.(sysex.DeviceIdentityReply); ok && r.IsBlofeld() {
			select {
			case replies <- r:
			default:
			}
		}
	})
	defer a.sess.OnMessage(nil)

	if err := a.sess.Send(sysex.DeviceIdentityRequest{}); err != nil {
		return sysex.DeviceIdentityReply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timing.RequestTimeout)
	defer cancel()
	select {
	case r := <-replies:
		return r, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return sysex.DeviceIdentityReply{}, fmt.Errorf("identity: %w", session.ErrTimeout)
		}
		return sysex.DeviceIdentityReply{}, ctx.Err()
	}
}

func parseMode(s string) (sysex.Mode, error) {
	switch strings.ToLower(s) {
	case "sound":
		return sysex.ModeSound, nil
	case "multi":
		return sysex.ModeMulti, nil
	}
	return 0, fmt.Errorf("mode must be sound or multi, got %q", s)
}

func (a *app) setMode(ctx context.Context, mode sysex.Mode) error {
	task, err := a.sess.SwitchMode(mode)
	if err != nil {
		return err
	}
	if err := await(ctx, task); err != nil {
		return err
	}
	a.log.Info("mode switched", zap.Stringer("mode", mode))
	return nil
}

func (a *app) switchMode(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("want sound|multi")
	}
	mode, err := parseMode(args[0])
	if err != nil {
		return err
	}
	return a.setMode(ctx, mode)
}

func (a *app) uploadWavetable(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("want <slot> <name> <shape>...")
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	wt, err := buildWavetable(slot, args[1], args[2:])
	if err != nil {
		return err
	}
	return a.sess.SendWavetable(ctx, wt)
}

// buildWavetable lays the named shapes out as evenly spaced keyframes.
func buildWavetable(slot int, name string, shapes []string) (sysex.Wavetable, error) {
	if len(shapes) > sysex.WavesPerTable {
		return sysex.Wavetable{}, fmt.Errorf("at most %d keyframes, got %d", sysex.WavesPerTable, len(shapes))
	}
	wt := sysex.Wavetable{Slot: slot, Name: name}
	for _, s := range shapes {
		w, err := shapeWave(s)
		if err != nil {
			return sysex.Wavetable{}, err
		}
		wt.Waves = append(wt.Waves, w)
	}
	return wt, wt.Validate()
}

func shapeWave(shape string) (sysex.Wave, error) {
	var fn func(phase float64) float64
	switch strings.ToLower(shape) {
	case "sine":
		fn = func(p float64) float64 { return math.Sin(2 * math.Pi * p) }
	case "triangle":
		fn = func(p float64) float64 { return 1 - 4*math.Abs(p-0.5) }
	case "saw":
		fn = func(p float64) float64 { return 2*p - 1 }
	case "square":
		fn = func(p float64) float64 { return pulse(p, 0.5) }
	case "pulse":
		fn = func(p float64) float64 { return pulse(p, 0.125) }
	default:
		return sysex.Wave{}, fmt.Errorf("unknown shape %q", shape)
	}

	var w sysex.Wave
	for i := range w {
		v := fn(float64(i) / sysex.SamplesPerWave)
		w[i] = int32(math.Round(v * sysex.SampleMax))
	}
	return w, nil
}

func pulse(phase, width float64) float64 {
	if phase < width {
		return 1
	}
	return -1
}
