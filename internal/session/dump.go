package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blofeldctl/internal/sysex"
)

const lastLibraryIndex = sysex.NumBanks * sysex.ProgramsPerBank

// StartBankDump requests programs 0-127 of bank one at a time. progress
// receives the linear index of every sound that arrives.
func (s *Session) StartBankDump(bank int, progress func(index int)) (*Task, error) {
	if bank < 0 || bank >= sysex.NumBanks {
		return nil, &sysex.ValidationError{Field: "bank", Value: bank, Reason: fmt.Sprintf("must be 0..%d", sysex.NumBanks-1)}
	}
	return s.startDump("bank-dump", bank, sysex.LinearIndex(bank, sysex.ProgramsPerBank-1), s.timing.BankTimeout, progress)
}

// StartLibraryDump walks every program from fromBank to the last bank.
func (s *Session) StartLibraryDump(fromBank int, progress func(index int)) (*Task, error) {
	if fromBank < 0 || fromBank >= sysex.NumBanks {
		return nil, &sysex.ValidationError{Field: "bank", Value: fromBank, Reason: fmt.Sprintf("must be 0..%d", sysex.NumBanks-1)}
	}
	return s.startDump("library-dump", fromBank, lastLibraryIndex, s.timing.LibraryTimeout, progress)
}

func (s *Session) startDump(kind string, bank, end int, timeout time.Duration, progress func(int)) (*Task, error) {
	task := newTask(kind, timeout, s.release)
	w := &workflow{task: task, state: BulkDumping, bank: bank, end: end, progress: progress}
	if err := s.begin(w); err != nil {
		task.cancel()
		return nil, err
	}
	s.log.Info("dump started",
		zap.String("task", task.ID()),
		zap.String("kind", kind),
		zap.String("bank", sysex.BankName(bank)),
		zap.Int("end", end))

	if err := s.Send(sysex.SoundDumpRequest{Bank: bank, Program: 0}); err != nil {
		task.finish(err)
		return nil, err
	}
	return task, nil
}

// handleSound feeds a sound dump to any waiting RequestSound, the running
// bulk dump and the registered callback.
func (s *Session) handleSound(snd sysex.Sound) {
	key := soundKey{snd.Bank, snd.Program}

	s.mu.Lock()
	waiters := s.soundWaiters[key]
	delete(s.soundWaiters, key)
	fn := s.onSound

	var (
		task     *Task
		progress func(int)
		index    int
		terminal bool
	)
	if w := s.work; w != nil && w.state == BulkDumping && w.task.active() &&
		snd.Bank == w.bank && snd.Program == w.program {
		task, progress, index = w.task, w.progress, snd.Index()
		if index >= w.end {
			terminal = true
			s.work = nil
		} else {
			w.program++
			if w.program == sysex.ProgramsPerBank {
				w.bank++
				w.program = 0
			}
		}
	}
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- snd
	}
	if fn != nil {
		fn(snd)
	}
	if task == nil {
		return
	}
	if progress != nil {
		progress(index)
	}
	if terminal {
		task.finish(nil)
		return
	}
	if !s.worker.after(s.timing.DumpPacing, func() { s.requestNext(task) }) {
		task.finish(errors.New("session worker unavailable"))
	}
}

// requestNext runs on the worker after the pacing delay.
func (s *Session) requestNext(task *Task) {
	w, ok := s.current(task)
	if !ok {
		return
	}
	s.mu.Lock()
	bank, program := w.bank, w.program
	s.mu.Unlock()
	if err := s.Send(sysex.SoundDumpRequest{Bank: bank, Program: program}); err != nil {
		task.finish(err)
	}
}

// RequestSound fetches one program and waits for its dump.
func (s *Session) RequestSound(ctx context.Context, bank, program int) (sysex.Sound, error) {
	req, err := sysex.NewSoundDumpRequest(bank, program)
	if err != nil {
		return sysex.Sound{}, err
	}

	key := soundKey{bank, program}
	ch := make(chan sysex.Sound, 1)
	s.mu.Lock()
	if s.transport == nil {
		s.mu.Unlock()
		return sysex.Sound{}, ErrNotConnected
	}
	s.soundWaiters[key] = append(s.soundWaiters[key], ch)
	s.mu.Unlock()
	defer s.dropWaiter(key, ch)

	if err := s.Send(req); err != nil {
		return sysex.Sound{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timing.RequestTimeout)
	defer cancel()
	select {
	case snd := <-ch:
		return snd, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return sysex.Sound{}, fmt.Errorf("sound %s/%d: %w", sysex.BankName(bank), program, ErrTimeout)
		}
		return sysex.Sound{}, ctx.Err()
	}
}

func (s *Session) dropWaiter(key soundKey, ch chan sysex.Sound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.soundWaiters[key]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.soundWaiters, key)
	} else {
		s.soundWaiters[key] = list
	}
}
