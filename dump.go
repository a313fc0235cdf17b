package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"blofeldctl/internal/session"
	"blofeldctl/internal/sysex"
	"blofeldctl/internal/syxfile"
)

// collector gathers the sounds of a bulk dump keyed by linear index.
type collector struct {
	log *zap.Logger

	mu     sync.Mutex
	sounds map[int]sysex.Sound
}

func newCollector(log *zap.Logger) *collector {
	return &collector{log: log, sounds: make(map[int]sysex.Sound)}
}

func (c *collector) add(s sysex.Sound) {
	c.mu.Lock()
	c.sounds[s.Index()] = s
	c.mu.Unlock()
}

func (c *collector) progress(index int) {
	c.log.Debug("dump progress", zap.Int("index", index))
	if index%sysex.ProgramsPerBank == 0 {
		c.log.Info("bank complete", zap.String("bank", sysex.BankName((index-1)/sysex.ProgramsPerBank)))
	}
}

// ordered returns the collected sounds by library position.
func (c *collector) ordered() []sysex.Sound {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]int, 0, len(c.sounds))
	for k := range c.sounds {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]sysex.Sound, len(keys))
	for i, k := range keys {
		out[i] = c.sounds[k]
	}
	return out
}

func (c *collector) frames() [][]byte {
	sounds := c.ordered()
	frames := make([][]byte, len(sounds))
	for i, s := range sounds {
		frames[i] = sysex.SoundToSysEx(sysex.Broadcast, s)
	}
	return frames
}

// await waits for task, cancelling it if ctx ends first.
func await(ctx context.Context, task *session.Task) error {
	select {
	case <-task.Done():
	case <-ctx.Done():
		task.Cancel()
		<-task.Done()
	}
	return task.Err()
}

// runDump drives a bulk dump started by start and returns what arrived,
// even when the dump failed part way.
func (a *app) runDump(ctx context.Context, start func(progress func(int)) (*session.Task, error)) (*collector, error) {
	c := newCollector(a.log)
	a.sess.OnSoundDump(c.add)
	defer a.sess.OnSoundDump(nil)

	task, err := start(c.progress)
	if err != nil {
		return c, err
	}
	a.log.Info("dump running", zap.String("kind", task.Kind()), zap.String("task", task.ID()))
	return c, await(ctx, task)
}

func (a *app) saveDump(c *collector, path string, dumpErr error) error {
	frames := c.frames()
	if len(frames) == 0 {
		return dumpErr
	}
	if err := syxfile.WriteFile(path, frames); err != nil {
		return err
	}
	if dumpErr != nil {
		a.log.Warn("wrote partial dump", zap.String("path", path), zap.Int("sounds", len(frames)))
		return dumpErr
	}
	a.log.Info("wrote dump", zap.String("path", path), zap.Int("sounds", len(frames)))
	return nil
}

func (a *app) dumpBank(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("want <bank> <out.syx>")
	}
	bank, err := sysex.ParseBank(args[0])
	if err != nil {
		return err
	}
	c, err := a.runDump(ctx, func(progress func(int)) (*session.Task, error) {
		return a.sess.StartBankDump(bank, progress)
	})
	return a.saveDump(c, args[1], err)
}

func (a *app) dumpAll(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("want <out.syx> [bank]")
	}
	from := 0
	if len(args) > 1 {
		b, err := sysex.ParseBank(args[1])
		if err != nil {
			return err
		}
		from = b
	}
	c, err := a.runDump(ctx, func(progress func(int)) (*session.Task, error) {
		return a.sess.StartLibraryDump(from, progress)
	})
	return a.saveDump(c, args[0], err)
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("want <file>")
	}
	frames, err := syxfile.ReadFile(args[0])
	if err != nil {
		return err
	}
	pacing := uploadPacing(frames, a.cfg.Timing)
	a.log.Info("uploading", zap.String("file", args[0]), zap.Int("frames", len(frames)), zap.Duration("pacing", pacing))
	return a.sess.SendFrames(ctx, frames, pacing)
}

// uploadPacing uses the short wavetable pacing only when every frame is a
// wavetable dump.
func uploadPacing(frames [][]byte, t session.Timing) time.Duration {
	for _, f := range frames {
		if len(f) < 5 || f[1] != sysex.ManufacturerWaldorf || sysex.Command(f[4]) != sysex.CmdWavetableDump {
			return t.DumpPacing
		}
	}
	return t.WavetablePacing
}

func extract(args []string, log *zap.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("want <file> [out.syx]")
	}
	frames, err := syxfile.ReadFile(args[0])
	if err != nil {
		return err
	}
	codec := sysex.NewCodec(log)
	for i, f := range frames {
		dev, m, err := codec.Decode(f)
		if err != nil {
			fmt.Printf("%4d  %4d bytes  undecodable: %v\n", i+1, len(f), err)
			continue
		}
		fmt.Printf("%4d  %4d bytes  dev %02X  %s\n", i+1, len(f), dev, describe(m))
	}
	if len(args) > 1 {
		return syxfile.WriteFile(args[1], frames)
	}
	return nil
}

// describe renders a one-line summary of m.
func describe(m sysex.Message) string {
	switch m := m.(type) {
	case sysex.SoundDumpData:
		return fmt.Sprintf("%s %s%03d %-16q %s", m.Kind(), sysex.BankName(m.Sound.Bank), m.Sound.Program+1, m.Sound.Name(), m.Sound.CategoryName())
	case sysex.SoundDumpRequest:
		return fmt.Sprintf("%s %s%03d", m.Kind(), sysex.BankName(m.Bank), m.Program+1)
	case sysex.SoundParameterChange:
		return fmt.Sprintf("%s param %d = %d", m.Kind(), m.Param, m.Value)
	case sysex.MultiDumpData:
		return fmt.Sprintf("%s multi %d %q", m.Kind(), m.Multi()+1, m.Name())
	case sysex.GlobalParametersData:
		return fmt.Sprintf("%s mode %s", m.Kind(), m.Mode())
	case sysex.WavetableDump:
		return fmt.Sprintf("%s slot %d wave %d %q", m.Kind(), m.Slot, m.Wave, m.Name)
	case sysex.DeviceIdentityReply:
		return fmt.Sprintf("%s manufacturer %02X version %s", m.Kind(), m.Manufacturer, string(m.Version[:]))
	}
	return m.Kind().String()
}
