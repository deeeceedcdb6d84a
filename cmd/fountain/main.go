//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	"timefountain-go/bus"
	core "timefountain-go/fountain"
	"timefountain-go/output"
	"timefountain-go/platform"
	"timefountain-go/services/config"
	"timefountain-go/services/console"
	fsvc "timefountain-go/services/fountain"
	"timefountain-go/services/heartbeat"
)

const (
	stripPin  = machine.GP2
	stripLen  = 60
	baudRate  = 115200
	deviceKey = "pico"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceKey)

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)

	println("[main] starting strip output …")
	mbox := output.NewMailbox(stripLen)
	go mbox.Run(ctx, output.NewWS2812(stripPin))

	clock := platform.NewClock()
	alarm := platform.NewAlarm()
	eng := core.New(clock, alarm, mbox, core.DefaultSettings())
	alarm.Bind(eng.OnAlarm)
	if err := eng.Start(); err != nil {
		println("[main] engine start failed:", err.Error())
	}

	println("[main] starting services …")
	go fsvc.New(b.NewConnection("fountain"), eng).Run(ctx)
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	con := console.New(b.NewConnection("console"), platform.ConsoleUART(baudRate))
	go func() {
		if err := con.Run(ctx); err != nil {
			println("[main] console stopped:", err.Error())
		}
	}()

	for {
		time.Sleep(10 * time.Second)
		printMem(mbox)
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem(mbox *output.Mailbox) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
		"frames:", mbox.Written(),
		"dropped:", mbox.Dropped(),
	)
}
