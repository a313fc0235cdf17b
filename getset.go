package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"blofeldctl/internal/patch"
	"blofeldctl/internal/sysex"
)

// parseLocation reads a bank letter and a 1-based program number.
func parseLocation(bank string, program int) (int, int, error) {
	b, err := sysex.ParseBank(bank)
	if err != nil {
		return 0, 0, err
	}
	if program < 1 || program > sysex.ProgramsPerBank {
		return 0, 0, fmt.Errorf("program must be in range 1–128, got %d", program)
	}
	return b, program - 1, nil
}

func locationArgs(args []string) (int, int, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("want <bank> <program>, got %d args", len(args))
	}
	program, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("program: %w", err)
	}
	return parseLocation(args[0], program)
}

func (a *app) readPatch(ctx context.Context, bank, program int) (*patch.Patch, error) {
	snd, err := a.sess.RequestSound(ctx, bank, program)
	if err != nil {
		return nil, fmt.Errorf("read sound %s%d: %w", sysex.BankName(bank), program+1, err)
	}
	a.log.Info("read sound",
		zap.String("bank", sysex.BankName(bank)),
		zap.Int("program", program+1),
		zap.String("name", snd.Name()),
		zap.String("category", snd.CategoryName()))
	return patch.FromSound(snd), nil
}

// writePatch lays p over the sound currently stored at the location so
// parameters the patch view does not cover survive.
func (a *app) writePatch(ctx context.Context, bank, program int, p *patch.Patch) error {
	snd, err := a.sess.RequestSound(ctx, bank, program)
	if err != nil {
		a.log.Warn("could not read current sound, writing from scratch", zap.Error(err))
		snd = sysex.Sound{Bank: bank, Program: program}
	}
	if err := p.ApplyTo(&snd); err != nil {
		return err
	}
	msg, err := sysex.NewSoundDumpData(snd)
	if err != nil {
		return err
	}
	if err := a.sess.Send(msg); err != nil {
		return fmt.Errorf("send sound to %s%d: %w", sysex.BankName(bank), program+1, err)
	}
	return nil
}

func (a *app) getPatch(ctx context.Context, args []string) error {
	bank, program, err := locationArgs(args)
	if err != nil {
		return err
	}
	p, err := a.readPatch(ctx, bank, program)
	if err != nil {
		return err
	}
	asJson, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal patch to JSON: %w", err)
	}
	fmt.Println(string(asJson))
	return nil
}

func (a *app) setPatch(ctx context.Context, args []string, in io.Reader) error {
	bank, program, err := locationArgs(args)
	if err != nil {
		return err
	}
	asJson, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read patch JSON from stdin: %w", err)
	}
	p := &patch.Patch{}
	if err := json.Unmarshal(asJson, p); err != nil {
		return fmt.Errorf("failed to unmarshal patch JSON: %w", err)
	}
	return a.writePatch(ctx, bank, program, p)
}

func (a *app) setParam(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("want <id> <value> [location]")
	}
	nums, err := atois(args)
	if err != nil {
		return err
	}
	location := 0
	if len(nums) > 2 {
		location = nums[2]
	}
	msg, err := sysex.NewSoundParameterChange(location, nums[0], nums[1])
	if err != nil {
		return err
	}
	return a.sess.Send(msg)
}

// setParamCC changes a parameter with a Control Change, which unlike SNDP
// also works when SysEx reception is disabled on the device.
func (a *app) setParamCC(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("want <id> <value>")
	}
	nums, err := atois(args[:2])
	if err != nil {
		return err
	}
	return a.sendParamCC(nums[0], nums[1])
}

func (a *app) sendParamCC(param, value int) error {
	cc := a.cc.ParameterToCC(param)
	if cc < 0 {
		return fmt.Errorf("parameter %d has no CC mapping", param)
	}
	if value < 0 || value > 127 {
		return fmt.Errorf("value %d out of range 0-127", value)
	}
	a.log.Debug("parameter via cc", zap.Int("param", param), zap.Int("cc", cc), zap.Int("value", value))
	return a.port.SendMessage(controlChange(a.cfg.MIDI.Channel, cc, value))
}

func atois(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = n
	}
	return out, nil
}
