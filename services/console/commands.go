package console

import (
	"strconv"
	"strings"

	"github.com/google/shlex"

	"timefountain-go/errcode"
	svc "timefountain-go/services/fountain"
	"timefountain-go/types"
)

// Command is a parsed console line: a fountain control verb and its
// payload, or a local command handled by the console itself.
type Command struct {
	Verb    string
	Payload any
	Local   bool
}

const helpText = `commands:
  period <ticks>            droplet period in microseconds
  freq <hz>                 droplet frequency
  offset <ppm>              strobe drift, + climbs, - falls
  pattern <name>            off|frozen|multi|rainbow|streams
  brightness <0..1>
  strobes <n>               flashes per period
  slots <n>                 visible droplet rows
  color <#rrggbb>
  palette <#rrggbb>...
  hue <shift>               rainbow speed, larger is slower
  stream <i> <#rrggbb> <ppm|NNhz> [burst] [start]
  clear-streams
  tolerance <ticks>         lateness before a frame is skipped
  pulse <ticks>             blank after each flash, 0 holds
  reverse on|off
  off | on | resume | get | stats | help`

func invalid(op, msg string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: msg}
}

// Parse tokenises a line with shell quoting rules and maps it to a
// command. An empty line yields a zero Command and no error.
func Parse(line string) (Command, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return Command{}, &errcode.E{C: errcode.InvalidPayload, Op: "parse", Err: err}
	}
	if len(args) == 0 {
		return Command{}, nil
	}
	name, args := strings.ToLower(args[0]), args[1:]

	set := func(fs types.FountainSet) (Command, error) {
		return Command{Verb: svc.VerbSet, Payload: fs}, nil
	}
	need := func(n int) error {
		if len(args) < n {
			return invalid(name, "missing argument")
		}
		return nil
	}

	switch name {
	case "help", "?":
		return Command{Verb: "help", Local: true}, nil

	case svc.VerbGet, svc.VerbStats, svc.VerbOff, svc.VerbOn, svc.VerbResume:
		return Command{Verb: name}, nil

	case "period":
		if err := need(1); err != nil {
			return Command{}, err
		}
		v, err := parseU32(name, args[0])
		if err != nil {
			return Command{}, err
		}
		return set(types.FountainSet{PeriodTicks: &v})

	case "freq":
		if err := need(1); err != nil {
			return Command{}, err
		}
		hz, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(args[0]), "hz"), 64)
		if err != nil || !(hz > 0) {
			return Command{}, invalid(name, args[0])
		}
		return set(types.FountainSet{Hz: &hz})

	case "offset":
		if err := need(1); err != nil {
			return Command{}, err
		}
		v, err := parseI32(name, args[0])
		if err != nil {
			return Command{}, err
		}
		return set(types.FountainSet{OffsetPPM: &v})

	case "pattern":
		if err := need(1); err != nil {
			return Command{}, err
		}
		p := strings.ToLower(args[0])
		return set(types.FountainSet{Pattern: &p})

	case "brightness":
		if err := need(1); err != nil {
			return Command{}, err
		}
		f, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return Command{}, invalid(name, args[0])
		}
		b := float32(f)
		return set(types.FountainSet{Brightness: &b})

	case "strobes", "slots":
		if err := need(1); err != nil {
			return Command{}, err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, invalid(name, args[0])
		}
		if name == "strobes" {
			return set(types.FountainSet{Strobes: &n})
		}
		return set(types.FountainSet{Slots: &n})

	case "color", "colour":
		if err := need(1); err != nil {
			return Command{}, err
		}
		c := args[0]
		return set(types.FountainSet{Color: &c})

	case "palette":
		if err := need(1); err != nil {
			return Command{}, err
		}
		return set(types.FountainSet{Palette: args})

	case "hue":
		if err := need(1); err != nil {
			return Command{}, err
		}
		n, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return Command{}, invalid(name, args[0])
		}
		h := uint8(n)
		return set(types.FountainSet{HueShift: &h})

	case "stream":
		return parseStream(args)

	case "clear-streams":
		return set(types.FountainSet{ClearStreams: true})

	case "tolerance", "pulse":
		if err := need(1); err != nil {
			return Command{}, err
		}
		v, err := parseU32(name, args[0])
		if err != nil {
			return Command{}, err
		}
		if name == "pulse" {
			return set(types.FountainSet{PulseTicks: &v})
		}
		return set(types.FountainSet{ToleranceTicks: &v})

	case "reverse":
		if err := need(1); err != nil {
			return Command{}, err
		}
		var r bool
		switch strings.ToLower(args[0]) {
		case "on", "true", "1", "yes":
			r = true
		case "off", "false", "0", "no":
		default:
			return Command{}, invalid(name, args[0])
		}
		return set(types.FountainSet{Reverse: &r})
	}
	return Command{}, &errcode.E{C: errcode.UnknownCommand, Msg: name}
}

// stream <i> <#rrggbb> <ppm|NNhz> [burst] [start]
func parseStream(args []string) (Command, error) {
	if len(args) < 3 {
		return Command{}, invalid("stream", "want <i> <color> <ppm|hz> [burst] [start]")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return Command{}, invalid("stream", args[0])
	}
	spec := types.StreamSpec{Color: args[1]}
	drift := strings.ToLower(args[2])
	if strings.HasSuffix(drift, "hz") {
		hz, err := strconv.ParseFloat(strings.TrimSuffix(drift, "hz"), 64)
		if err != nil || !(hz > 0) {
			return Command{}, invalid("stream", args[2])
		}
		spec.Hz = hz
	} else if spec.OffsetPPM, err = parseI32("stream", drift); err != nil {
		return Command{}, err
	}
	if len(args) > 3 {
		if spec.BurstTicks, err = parseU32("stream", args[3]); err != nil {
			return Command{}, err
		}
	}
	if len(args) > 4 {
		if spec.StartTicks, err = parseU32("stream", args[4]); err != nil {
			return Command{}, err
		}
	}
	return Command{Verb: svc.VerbSet, Payload: types.FountainSet{
		Stream: &types.StreamUpdate{Index: idx, Spec: spec},
	}}, nil
}

func parseU32(op, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, invalid(op, s)
	}
	return uint32(v), nil
}

func parseI32(op, s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, invalid(op, s)
	}
	return int32(v), nil
}
