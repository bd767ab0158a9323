/*
Package config loads simulation settings.

# Layers

The raw layer is Config, a read-only view over one level of a decoded YAML or
JSON document. Accessors never fail: a missing key or a value of the wrong
shape yields the caller's default.

	raw, err := config.FromFile("mcusim.yaml")
	timer := raw.Section("timer")
	period := timer.Duration("period", 200*time.Millisecond)

Durations accept Go duration strings ("200ms") or bare numbers, which are
read as milliseconds.

The typed layer is Settings. Decode fills it from a Config on top of
Defaults, ApplyEnv overlays MCUSIM_* variables and Validate checks it:

	settings, err := config.Load("mcusim.yaml")

# Document shape

	timer:
	  period: 200ms
	  max_ticks: 60
	  coupled_every: 0      # emit coupled_label every Nth tick when > 0
	  coupled_label: UART_RX
	peripherals:
	  - {name: uart, kind: uart, period: 500ms}
	  - {name: gpio, kind: gpio, period: 700ms, jitter: true, seed: 42}
	  - {name: adc, kind: label, period: 1s, label: ADC_READY}
	channel:   {capacity: 64}
	broadcast: {enabled: true, capacity: 64}
	monitor:   {enabled: true, report_interval: 2s}
	logging:   {level: info, format: text}   # text | json | console
	telemetry: {metrics: false, tracing: false, trace_exporter: none}
	store:     {driver: none, path: ""}       # none | memory | sqlite

Omitting peripherals keeps the default UART and GPIO pair; an empty list
runs with none.
*/
package config
