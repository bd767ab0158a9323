/*
Package mcusim simulates the event plumbing of a small microcontroller core.

# Overview

A periodic timer and any number of peripheral generators run as independent
goroutines and push discrete events onto one bounded primary channel. A
single dispatcher consumes that channel in arrival order, republishes every
event on a broadcast fan-out and logs it. A monitor subscribes to the
fan-out and keeps running totals, reporting both when it sees the terminal
Stop and on a fixed cadence in between.

	producers --> primary channel --> dispatcher --> fan-out --> monitor
	                 (blocking)                    (drop-oldest)  observers

There are three events: Tick(n) from the timer, Interrupt(label) from
peripherals, and a single terminal Stop from the timer after its last tick.

# Basic Usage

	sim := mcusim.NewSimulation().
	    SetTimer(producer.TimerConfig{Period: 200 * time.Millisecond, MaxTicks: 60}).
	    AddPeripheral(producer.PeripheralConfig{
	        Name:    "uart",
	        Period:  500 * time.Millisecond,
	        Payload: producer.UARTBytes(),
	    }).
	    AddPeripheral(producer.PeripheralConfig{
	        Name:    "gpio",
	        Period:  700 * time.Millisecond,
	        Jitter:  true,
	        Payload: producer.GPIOState(),
	    })

	result, err := sim.Run(ctx, mcusim.WithLogger(logger))
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(result.FinalReport.TickCount) // 60

Configuration files map onto the same builder through FromSettings:

	settings, err := config.Load("mcusim.yaml")
	sim, err := mcusim.FromSettings(settings)

# Variants

SetBroadcast(0) runs without the fan-out (and therefore without the
monitor): the dispatcher alone logs each event. A timer with CoupledEvery
set also emits an Interrupt every Nth tick, reproducing a single-task core
where the UART is driven from the timer.

# Backpressure

The primary channel blocks producers when full; nothing is dropped before
the dispatcher. The fan-out never blocks the dispatcher: a subscriber that
falls behind loses its oldest buffered events and is told how many it
missed. The monitor adds those to the Missed field of its reports.

# Termination

A run ends when the dispatcher sees Stop, when every producer has exited,
or when ctx is cancelled. Run then refuses further sends, cancels the
producers, closes the fan-out and waits for the monitor's last report.
*/
package mcusim
