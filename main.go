package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"blofeldctl/internal/ccmap"
	"blofeldctl/internal/config"
	"blofeldctl/internal/logging"
	"blofeldctl/internal/midiport"
	"blofeldctl/internal/session"
	"blofeldctl/internal/sysex"
)

const usage = `usage: blofeldctl <command> [args]

commands:
  ports                          list MIDI inputs and outputs
  play [notes]                   play test notes, or e.g. "C4 E4 G4 r Bb3"
  identify                       ask the device for its identity
  get <bank> <program>           print a sound as JSON
  set <bank> <program>           write a sound from JSON on stdin
  param <id> <value> [location]  change one sound parameter via SysEx
  cc <id> <value>                change one sound parameter via its CC
  dump-bank <bank> <out.syx>     save a whole bank
  dump-all <out.syx> [bank]      save the library, optionally from a bank on
  mode sound|multi               switch the global mode
  wavetable <slot> <name> <shape>...
                                 build and upload a wavetable from sine, triangle,
                                 saw, square or pulse keyframes
  upload <file.syx|file.mid>     send every SysEx frame in a file
  extract <file> [out.syx]       list the SysEx frames of a file
  mcp                            serve the MCP tools on stdio
  config init [path]             write the current settings as a config file

programs are numbered 1-128, banks A-H.
`

// app holds what every device command needs.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	port *midiport.Port
	sess *session.Session
	cc   *ccmap.Mapper
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfgPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config path: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, cmd string, args []string) error {
	// Commands that never touch the device.
	switch cmd {
	case "ports":
		return listPorts()
	case "extract":
		return extract(args, log)
	case "config":
		return configCommand(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}

	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case "play":
		if len(args) > 0 {
			return a.playNotesFromText(ctx, args[0])
		}
		return a.playTestNotes(ctx)
	case "identify":
		return a.identify(ctx)
	case "get":
		return a.getPatch(ctx, args)
	case "set":
		return a.setPatch(ctx, args, os.Stdin)
	case "param":
		return a.setParam(args)
	case "cc":
		return a.setParamCC(args)
	case "dump-bank":
		return a.dumpBank(ctx, args)
	case "dump-all":
		return a.dumpAll(ctx, args)
	case "mode":
		return a.switchMode(ctx, args)
	case "wavetable":
		return a.uploadWavetable(ctx, args)
	case "upload":
		return a.upload(ctx, args)
	case "mcp":
		return a.runMCP(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func openApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	port, err := midiport.OpenPort(midiport.Selector{
		Hint: cfg.MIDI.PortHint,
		In:   cfg.MIDI.In,
		Out:  cfg.MIDI.Out,
	}, log.Named("midi"))
	if err != nil {
		return nil, err
	}

	sess := session.New(session.WithLogger(log.Named("session")), session.WithTiming(cfg.Timing))
	if err := sess.Connect(port); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("connect %s: %w", port, err)
	}
	if cfg.MIDI.DeviceID != sysex.Broadcast {
		sess.SetDeviceID(cfg.MIDI.DeviceID)
	}
	return &app{cfg: cfg, log: log, port: port, sess: sess, cc: ccmap.New()}, nil
}

func (a *app) close() {
	if err := a.sess.Close(); err != nil {
		a.log.Warn("closing session", zap.Error(err))
	}
}

// configCommand handles "config init": it writes cfg, the defaults merged
// with any existing file and environment, so it can be edited by hand.
func configCommand(cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] != "init" {
		return errors.New("want: config init [path]")
	}
	path := ""
	if len(args) > 1 {
		path = args[1]
	} else {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Println("wrote", path)
	return nil
}

func listPorts() error {
	ins, outs := midiport.ListPorts()
	if len(ins) == 0 && len(outs) == 0 {
		return errors.New("no MIDI ports available")
	}
	fmt.Println("inputs:")
	for i, n := range ins {
		fmt.Printf("  %d: %s\n", i, n)
	}
	fmt.Println("outputs:")
	for i, n := range outs {
		fmt.Printf("  %d: %s\n", i, n)
	}
	return nil
}
