package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"blofeldctl/internal/patch"
	"blofeldctl/internal/session"
	"blofeldctl/internal/sysex"
)

const version = "1.1.0"

func (a *app) runMCP(ctx context.Context) error {
	s := server.NewMCPServer(
		"Blofeld MCP",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("blofeld_describe-sysex",
		mcp.WithDescription("Returns the SysEx implementation description for the Blofeld synthesizer."),
	), a.describeSysExHandler)

	s.AddTool(mcp.NewTool("blofeld_get-patch",
		append(withLocation(),
			mcp.WithDescription("Retrieves a patch from the Blofeld synthesizer."),
		)...,
	), a.getPatchHandler)

	s.AddTool(mcp.NewTool("blofeld_send-patch",
		append(withLocation(),
			mcp.WithDescription("Sends a patch to the Blofeld synthesizer. Parameters the JSON does not cover keep their current value."),
			mcp.WithString("patch-json", mcp.Required(), mcp.Description("The patch data in JSON format. The JSON must conform to the Patch structure returned by get-patch.")),
		)...,
	), a.sendPatchHandler)

	s.AddTool(mcp.NewTool("blofeld_randomize-oscillators",
		append(withLocation(),
			mcp.WithDescription("Randomizes the oscillator section of a stored patch and writes it back. Returns the new patch."),
		)...,
	), a.randomizeHandler)

	s.AddTool(mcp.NewTool("blofeld_set-parameter",
		mcp.WithDescription("Changes one sound parameter of the edit buffer via SysEx (SNDP)."),
		mcp.WithNumber("parameter", mcp.Required(), mcp.Description("Sound parameter number, 0-384.")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("New value, 0-127.")),
		mcp.WithNumber("location", mcp.Description("Edit buffer location; 0 in Sound mode, the part number in Multi mode.")),
	), a.setParameterHandler)

	s.AddTool(mcp.NewTool("blofeld_set-parameter-cc",
		mcp.WithDescription("Changes one sound parameter via its MIDI Control Change on the configured channel."),
		mcp.WithNumber("parameter", mcp.Required(), mcp.Description("Sound parameter number that has a CC mapping.")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("New value, 0-127.")),
	), a.setParameterCCHandler)

	s.AddTool(mcp.NewTool("blofeld_dump-bank",
		mcp.WithDescription("Reads all 128 sounds of a bank and lists their names and categories. Takes about 20 seconds."),
		mcp.WithString("bank", mcp.Required(), mcp.Description("The bank to read (A, B, ..., H).")),
	), a.dumpBankHandler)

	s.AddTool(mcp.NewTool("blofeld_switch-mode",
		mcp.WithDescription("Switches the Blofeld between Sound and Multi mode."),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("sound", "multi"), mcp.Description("Target mode.")),
	), a.switchModeHandler)

	s.AddTool(mcp.NewTool("blofeld_identify",
		mcp.WithDescription("Asks the Blofeld for its identity and firmware version."),
	), a.identifyHandler)

	s.AddTool(mcp.NewTool("blofeld_play-test-notes",
		mcp.WithDescription("Plays test notes on the Blofeld synthesizer."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := a.playTestNotes(ctx); err != nil {
			return nil, fmt.Errorf("failed to play test notes: %v", err)
		}
		return mcp.NewToolResultText("Test notes played successfully."), nil
	})

	s.AddTool(mcp.NewTool("blofeld_play-minor7",
		mcp.WithDescription("Plays a C minor 7 chord on the Blofeld."),
		mcp.WithNumber("seconds", mcp.Description("How long to hold the chord (default 10).")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		hold := time.Duration(request.GetFloat("seconds", 10) * float64(time.Second))
		if err := playMinor7Chord(ctx, a.port, a.cfg.MIDI.Channel, hold); err != nil {
			return nil, fmt.Errorf("failed to play minor 7 chord: %v", err)
		}
		return mcp.NewToolResultText("C minor 7 chord played successfully."), nil
	})

	s.AddTool(mcp.NewTool("blofeld_play-notes",
		mcp.WithDescription("Plays a melody given as note names, e.g. \"C4 E4 G4 r Bb3\" (r is a rest)."),
		mcp.WithString("notes", mcp.Required(), mcp.Description("Notes separated by spaces, commas or bars.")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		notes, err := request.RequireString("notes")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := a.playNotesFromText(ctx, notes); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Notes played successfully."), nil
	})

	a.log.Info("starting Blofeld MCP server", zap.String("version", version))
	return server.ServeStdio(s)
}

func withLocation() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("bank", mcp.Required(), mcp.Description("The bank of the patch (e.g., A, B, ..., H).")),
		mcp.WithNumber("program", mcp.Required(), mcp.Description("The program number of the patch (1-128).")),
	}
}

func requireLocation(request mcp.CallToolRequest) (int, int, error) {
	bank, err := request.RequireString("bank")
	if err != nil {
		return 0, 0, err
	}
	program, err := request.RequireInt("program")
	if err != nil {
		return 0, 0, err
	}
	return parseLocation(bank, program)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	asJson, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result to JSON: %v", err)
	}
	return mcp.NewToolResultText(string(asJson)), nil
}

func (a *app) describeSysExHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a.log.Debug("mcp: describe sysex")
	return mcp.NewToolResultText(sysexDescription()), nil
}

func (a *app) getPatchHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bank, program, err := requireLocation(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a.log.Info("mcp: get patch", zap.String("bank", sysex.BankName(bank)), zap.Int("program", program+1))

	p, err := a.readPatch(ctx, bank, program)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch: %v", err)
	}
	return jsonResult(p)
}

func (a *app) sendPatchHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bank, program, err := requireLocation(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patchJson, err := request.RequireString("patch-json")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a.log.Info("mcp: send patch", zap.String("bank", sysex.BankName(bank)), zap.Int("program", program+1))

	var p patch.Patch
	if err := json.Unmarshal([]byte(patchJson), &p); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to unmarshal patch JSON: %v", err)), nil
	}
	if err := a.writePatch(ctx, bank, program, &p); err != nil {
		return nil, fmt.Errorf("failed to send patch: %v", err)
	}
	return mcp.NewToolResultText("Patch sent successfully."), nil
}

func (a *app) randomizeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bank, program, err := requireLocation(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := a.readPatch(ctx, bank, program)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch: %v", err)
	}
	p.RandomizeOscillators()
	if err := a.writePatch(ctx, bank, program, p); err != nil {
		return nil, fmt.Errorf("failed to send patch: %v", err)
	}
	return jsonResult(p)
}

func (a *app) setParameterHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	param, err := request.RequireInt("parameter")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireInt("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := sysex.NewSoundParameterChange(request.GetInt("location", 0), param, value)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := a.sess.Send(msg); err != nil {
		return nil, fmt.Errorf("failed to send parameter: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Parameter %d set to %d.", param, value)), nil
}

func (a *app) setParameterCCHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	param, err := request.RequireInt("parameter")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireInt("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := a.sendParamCC(param, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Parameter %d set to %d via CC %d.", param, value, a.cc.ParameterToCC(param))), nil
}

type soundSummary struct {
	Index    int    `json:"index"`
	Location string `json:"location"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (a *app) dumpBankHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	letter, err := request.RequireString("bank")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bank, err := sysex.ParseBank(letter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, dumpErr := a.runDump(ctx, func(progress func(int)) (*session.Task, error) {
		return a.sess.StartBankDump(bank, progress)
	})
	sounds := c.ordered()
	if dumpErr != nil && len(sounds) == 0 {
		return nil, fmt.Errorf("failed to dump bank: %v", dumpErr)
	}

	out := make([]soundSummary, len(sounds))
	for i, s := range sounds {
		out[i] = soundSummary{
			Index:    s.Index(),
			Location: fmt.Sprintf("%s%03d", sysex.BankName(s.Bank), s.Program+1),
			Name:     s.Name(),
			Category: s.CategoryName(),
		}
	}
	if dumpErr != nil {
		a.log.Warn("mcp: partial bank dump", zap.Error(dumpErr), zap.Int("sounds", len(out)))
	}
	return jsonResult(out)
}

func (a *app) switchModeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := parseMode(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := a.setMode(ctx, mode); err != nil {
		return nil, fmt.Errorf("failed to switch mode: %v", err)
	}
	return mcp.NewToolResultText("Switched to " + mode.String() + " mode."), nil
}

func (a *app) identifyHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reply, err := a.requestIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to identify device: %v", err)
	}
	return jsonResult(map[string]any{
		"manufacturer": fmt.Sprintf("%02X", reply.Manufacturer),
		"family":       fmt.Sprintf("%X", reply.Family),
		"member":       fmt.Sprintf("%X", reply.Member),
		"version":      string(reply.Version[:]),
		"device_id":    a.sess.DeviceID(),
	})
}

var sysexLayouts = []struct {
	kind   sysex.Kind
	layout string
}{
	{sysex.KindSoundParameterChange, "F0 3E 13 dev 20 loc idH idL val F7"},
	{sysex.KindGlobalParameterChange, "F0 3E 13 dev 05 idH idL valH valL F7"},
	{sysex.KindSoundDumpRequest, "F0 3E 13 dev 00 bank prog 7F F7"},
	{sysex.KindSoundDumpData, "F0 3E 13 dev 10 bank prog [383 SDATA] 7F F7"},
	{sysex.KindMultiDumpRequest, "F0 3E 13 dev 01 bank multi F7"},
	{sysex.KindMultiDumpData, "F0 3E 13 dev 11 [418 payload] checksum F7"},
	{sysex.KindGlobalParametersRequest, "F0 3E 13 dev 04 F7"},
	{sysex.KindGlobalParametersData, "F0 3E 13 dev 14 [payload] checksum F7"},
	{sysex.KindWavetableDump, "F0 3E 13 dev 12 slot wave 00 [128 x 3 sample bytes] [14 name] 00 00 7F F7"},
	{sysex.KindDeviceIdentityRequest, "F0 7E dev 06 01 F7"},
	{sysex.KindDeviceIdentityReply, "F0 7E dev 06 02 3E family(2) member(2) version(4) F7"},
}

// sysexDescription summarises the message set this tool speaks.
func sysexDescription() string {
	var b strings.Builder
	b.WriteString("Waldorf Blofeld SysEx (manufacturer 3E, model 13). dev is the device ID, 7F addresses every device.\n\n")
	for _, l := range sysexLayouts {
		fmt.Fprintf(&b, "%-5s %s\n", l.kind, l.layout)
	}
	b.WriteString(`
Numbers wider than 7 bits are split MSB first into 7-bit bytes. Wavetable
samples are 21-bit two's complement split MSB first into three bytes.
Checksums are the payload sum mod 128; 7F means "not checked".
SDATA holds sound parameters 2..384: name at SDATA 363 (16 chars), category
at SDATA 379. Banks are A-H (0-7), 7F is the edit buffer.
`)
	return b.String()
}
