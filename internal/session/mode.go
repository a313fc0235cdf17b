package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blofeldctl/internal/sysex"
)

// SwitchMode puts the device into Sound or Multi mode. The Blofeld has no
// direct command for this.
//
// Multi: requesting the edit buffer multi forces Multi mode as a side effect.
// Sound: the global block is read, its mode byte cleared and written back.
func (s *Session) SwitchMode(mode sysex.Mode) (*Task, error) {
	if mode != sysex.ModeSound && mode != sysex.ModeMulti {
		return nil, &sysex.ValidationError{Field: "mode", Value: int(mode), Reason: "must be sound or multi"}
	}
	task := newTask("switch-to-"+mode.String(), s.timing.ModeTimeout, s.release)
	w := &workflow{task: task, state: ModeSwitching, awaitGlobal: mode == sysex.ModeSound}
	if err := s.begin(w); err != nil {
		task.cancel()
		return nil, err
	}
	s.log.Info("mode switch started", zap.String("task", task.ID()), zap.Stringer("mode", mode))

	var req sysex.Message = sysex.GlobalParametersRequest{}
	if mode == sysex.ModeMulti {
		req = sysex.MultiDumpRequest{Bank: sysex.EditBuffer, Multi: 0}
	}
	if err := s.Send(req); err != nil {
		task.finish(err)
		return nil, err
	}
	if mode == sysex.ModeMulti {
		s.settle(task, s.timing.MultiSettle)
	}
	return task, nil
}

func (s *Session) settle(task *Task, d time.Duration) {
	ok := s.worker.after(d, func() {
		task.finish(nil)
	})
	if !ok {
		task.finish(errors.New("session worker unavailable"))
	}
}

// handleGlobal serves the one-shot waiter of a switch to Sound mode before
// the registered callback. A reply after the waiter timed out is only seen
// by the callback.
func (s *Session) handleGlobal(m sysex.GlobalParametersData) {
	s.mu.Lock()
	var task *Task
	if w := s.work; w != nil && w.awaitGlobal && w.task.active() {
		w.awaitGlobal = false
		task = w.task
	}
	fn := s.onGlobal
	s.mu.Unlock()

	if task != nil {
		s.writeBackSoundMode(task, m)
	}
	if fn != nil {
		fn(m)
	}
}

func (s *Session) writeBackSoundMode(task *Task, m sysex.GlobalParametersData) {
	patched, err := m.WithMode(sysex.ModeSound)
	if err != nil {
		task.finish(fmt.Errorf("patch global mode: %w", err))
		return
	}
	ok := s.worker.after(0, func() {
		if _, ok := s.current(task); !ok {
			return
		}
		if err := s.Send(patched); err != nil {
			task.finish(err)
			return
		}
		s.settle(task, s.timing.SoundSettle)
	})
	if !ok {
		task.finish(errors.New("session worker unavailable"))
	}
}
