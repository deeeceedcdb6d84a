// Package console is a line-oriented text front end for the fountain
// service. Each line becomes one fountain/control request; the reply is
// written back to the port.
package console

import (
	"context"
	"strconv"
	"time"

	"timefountain-go/bus"
	"timefountain-go/errcode"
	svc "timefountain-go/services/fountain"
	"timefountain-go/types"
)

// Port is a byte stream: a UART on the device, stdio on the host.
type Port interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

const (
	maxLine        = 160
	requestTimeout = 500 * time.Millisecond
	prompt         = "> "
)

type Console struct {
	conn *bus.Connection
	port Port
}

func New(conn *bus.Connection, port Port) *Console {
	return &Console{conn: conn, port: port}
}

// Run reads lines until ctx is done or the port fails. CR is ignored,
// LF ends a line and overlong lines are discarded.
func (c *Console) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	line := make([]byte, 0, maxLine)
	overflow := false

	c.writeString("fountain console, 'help' for commands\n" + prompt)
	for {
		n, err := c.port.RecvSomeContext(ctx, buf)
		for i := 0; i < n; i++ {
			switch b := buf[i]; b {
			case '\n':
				if overflow {
					c.writeString("error: line too long\n")
				} else {
					c.Exec(ctx, string(line))
				}
				c.writeString(prompt)
				line, overflow = line[:0], false
			case '\r':
			default:
				if len(line) < maxLine {
					line = append(line, b)
				} else {
					overflow = true
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Exec runs one command line and writes the outcome.
func (c *Console) Exec(ctx context.Context, line string) {
	cmd, err := Parse(line)
	if err != nil {
		c.writeErr(err)
		return
	}
	switch {
	case cmd.Verb == "":
		return
	case cmd.Local:
		c.writeString(helpText + "\n")
		return
	}

	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	reply, err := c.conn.RequestWait(rctx, c.conn.NewMessage(svc.ControlTopic(cmd.Verb), cmd.Payload, false))
	if err != nil {
		c.writeErr(&errcode.E{C: errcode.Timeout, Err: err})
		return
	}
	switch p := reply.Payload.(type) {
	case types.OKReply:
		c.writeString("ok\n")
	case types.ErrorReply:
		c.writeString("error: " + p.Error + "\n")
	case types.FountainState:
		c.write(appendState(nil, &p))
	case types.FountainStats:
		c.write(appendStats(nil, &p))
	default:
		c.writeString("ok\n")
	}
}

func (c *Console) writeErr(err error) {
	c.writeString("error: " + err.Error() + "\n")
}

func (c *Console) writeString(s string) { c.write([]byte(s)) }

func (c *Console) write(b []byte) {
	if _, err := c.port.Write(b); err != nil {
		println("[console] write:", err.Error())
	}
}

// ---- formatting (strconv only, no fmt) ----

func kv(b []byte, k string) []byte {
	if len(b) > 0 && b[len(b)-1] != '\n' {
		b = append(b, ' ')
	}
	b = append(b, k...)
	return append(b, '=')
}

func appendState(b []byte, s *types.FountainState) []byte {
	b = append(kv(b, "pattern"), s.Pattern...)
	b = strconv.AppendUint(kv(b, "period"), uint64(s.PeriodTicks), 10)
	b = strconv.AppendFloat(kv(b, "hz"), s.Hz, 'f', 3, 64)
	b = strconv.AppendInt(kv(b, "offset"), int64(s.OffsetPPM), 10)
	b = strconv.AppendUint(kv(b, "effective"), uint64(s.EffectiveTicks), 10)
	b = append(b, '\n')
	b = strconv.AppendInt(kv(b, "strobes"), int64(s.Strobes), 10)
	b = strconv.AppendUint(kv(b, "interval"), uint64(s.IntervalTicks), 10)
	b = strconv.AppendInt(kv(b, "slots"), int64(s.Slots), 10)
	if s.Brightness != nil {
		b = strconv.AppendFloat(kv(b, "brightness"), float64(*s.Brightness), 'f', 2, 32)
	}
	b = append(kv(b, "color"), s.Color...)
	b = strconv.AppendUint(kv(b, "hue"), uint64(s.HueShift), 10)
	b = append(b, '\n')
	b = append(kv(b, "palette"), joinStrings(s.Palette)...)
	b = strconv.AppendUint(kv(b, "tolerance"), uint64(s.ToleranceTicks), 10)
	if s.PulseTicks != nil {
		b = strconv.AppendUint(kv(b, "pulse"), uint64(*s.PulseTicks), 10)
	}
	b = strconv.AppendBool(kv(b, "reverse"), s.Reverse)
	b = strconv.AppendUint(kv(b, "gen"), uint64(s.Gen), 10)
	b = strconv.AppendBool(kv(b, "halted"), s.Halted)
	b = append(b, '\n')
	for i, st := range s.Streams {
		b = append(b, "stream "...)
		b = strconv.AppendInt(b, int64(i), 10)
		b = append(kv(b, "color"), st.Color...)
		b = strconv.AppendInt(kv(b, "offset"), int64(st.OffsetPPM), 10)
		b = strconv.AppendUint(kv(b, "burst"), uint64(st.BurstTicks), 10)
		b = strconv.AppendUint(kv(b, "start"), uint64(st.StartTicks), 10)
		b = append(b, '\n')
	}
	return b
}

func appendStats(b []byte, s *types.FountainStats) []byte {
	b = strconv.AppendUint(kv(b, "fired"), uint64(s.Fired), 10)
	b = strconv.AppendUint(kv(b, "skipped"), uint64(s.Skipped), 10)
	b = strconv.AppendUint(kv(b, "early"), uint64(s.Early), 10)
	b = strconv.AppendUint(kv(b, "dropped"), uint64(s.Dropped), 10)
	b = strconv.AppendUint(kv(b, "faults"), uint64(s.Faults), 10)
	b = strconv.AppendUint(kv(b, "gen"), uint64(s.Gen), 10)
	b = strconv.AppendBool(kv(b, "halted"), s.Halted)
	return append(b, '\n')
}

func joinStrings(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	out := ss[0]
	for _, s := range ss[1:] {
		out += "," + s
	}
	return out
}
