package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/pi-experiments/internal/adc"
	"github.com/sweeney/pi-experiments/internal/config"
	"github.com/sweeney/pi-experiments/internal/diag"
	"github.com/sweeney/pi-experiments/internal/gpio"
	"github.com/sweeney/pi-experiments/internal/logic"
	"github.com/sweeney/pi-experiments/internal/mqtt"
	"github.com/sweeney/pi-experiments/internal/status"
)

type harness struct {
	ctrl     *gpio.FakeController
	pub      *mqtt.FakePublisher
	dev      *adc.FakeDevice
	platform *diag.FakePlatform
	env      env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctrl:     gpio.NewFakeController(),
		pub:      mqtt.NewFakePublisher(),
		dev:      adc.NewFakeDevice([2]byte{0x01, 0xFF}),
		platform: diag.NewFakePlatform(),
	}
	h.env = env{
		newController: func(string) (gpio.Controller, error) { return h.ctrl, nil },
		platform:      h.platform,
		openADC:       func(int, uint16) (adcDevice, error) { return h.dev, nil },
		newPublisher:  func(config.Config, *status.Tracker) mqtt.Publisher { return h.pub },
		gate:          quitGate{in: strings.NewReader(""), out: io.Discard},
		sleep:         func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
	return h
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ADC.Interval = 5 * time.Millisecond
	cfg.ADC.Settle = 0
	cfg.PWM.Tick = time.Millisecond
	cfg.Heartbeat = 0
	return cfg
}

// terminal makes the quit gate read from a pipe the test writes to.
func (h *harness) terminal(t *testing.T) *io.PipeWriter {
	t.Helper()
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	h.env.gate = quitGate{in: r, out: io.Discard, terminal: true}
	return w
}

func (h *harness) systemEvents() []string {
	var names []string
	for _, e := range h.pub.SystemEvents() {
		names = append(names, e.Event+":"+e.Reason)
	}
	return names
}

func (h *harness) lastStatus(t *testing.T) status.StatusInner {
	t.Helper()
	evs := h.pub.SystemEvents()
	require.NotEmpty(t, evs)
	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(evs[len(evs)-1].RawPayload, &sj))
	return sj.Status
}

func eventTypes(evs []logic.Event) []logic.EventType {
	var out []logic.EventType
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

func TestRunExperimentHold(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig()
	cfg.Hold = 100 * time.Millisecond

	require.NoError(t, runExperiment(context.Background(), cfg, h.env))

	assert.Equal(t, []string{"STARTUP:", "SHUTDOWN:" + gateHold}, h.systemEvents())
	assert.True(t, h.ctrl.Closed(), "pins released")

	green := h.ctrl.Output(gpio.RoleGreenLED).History()
	require.GreaterOrEqual(t, len(green), 2)
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, green[:2], "basic led test")
	assert.Equal(t, gpio.Low, h.ctrl.Output(gpio.RoleYellowLED).Level(), "pwm pin left low")

	require.NotEmpty(t, h.dev.Writes)
	assert.Equal(t, []byte{adc.RegConfig, adc.ConfigAutoConvert}, h.dev.Writes[0])
	readings := h.pub.Readings()
	require.NotEmpty(t, readings)
	assert.Equal(t, 511, readings[0].Value)
	assert.True(t, h.dev.Closed())

	st := h.lastStatus(t)
	assert.Equal(t, "run", st.Experiment)
	assert.True(t, st.ADC.Enabled)
	require.NotNil(t, st.ADC.Value)
	assert.Equal(t, 511, *st.ADC.Value)
	assert.True(t, st.PWM.Enabled)
}

func TestRunExperimentListenersAndQuit(t *testing.T) {
	h := newHarness(t)
	w := h.terminal(t)
	cfg := testConfig()
	cfg.Diagnostics = false
	cfg.ADC.Enabled = false
	cfg.PWM.Enabled = false

	done := make(chan error, 1)
	go func() { done <- runExperiment(context.Background(), cfg, h.env) }()

	require.Eventually(t, func() bool { return h.ctrl.Input(gpio.RoleMotion) != nil }, time.Second, time.Millisecond)

	motion := h.ctrl.Input(gpio.RoleMotion)
	button := h.ctrl.Input(gpio.RoleButton)
	require.True(t, motion.Emit(gpio.High))
	require.True(t, motion.Emit(gpio.Low))
	require.True(t, button.Emit(gpio.Low))
	require.True(t, button.Emit(gpio.High))

	go w.Write([]byte("done\n"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("experiment did not stop after a line was entered")
	}

	assert.Equal(t, []logic.EventType{
		logic.EventMotionDetected, logic.EventMotionReset,
		logic.EventButtonPressed, logic.EventButtonReleased,
	}, eventTypes(h.pub.Events()))
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, h.ctrl.Output(gpio.RoleRedLED).History()[:2])

	st := h.lastStatus(t)
	assert.Equal(t, 1, st.Counts.MotionDetected)
	assert.Equal(t, 1, st.Counts.ButtonReleased)
	assert.False(t, st.ADC.Enabled)
	assert.Equal(t, []string{"STARTUP:", "SHUTDOWN:" + gateLine}, h.systemEvents())
	assert.False(t, motion.Emit(gpio.High), "inputs unwatched after shutdown")
}

func TestRunExperimentSignal(t *testing.T) {
	h := newHarness(t)
	h.terminal(t)
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(signalError{syscall.SIGTERM})

	require.NoError(t, runExperiment(ctx, testConfig(), h.env))

	assert.Equal(t, []string{"STARTUP:", "SHUTDOWN:SIGTERM"}, h.systemEvents())
	assert.Equal(t, gpio.Low, h.ctrl.Output(gpio.RoleGreenLED).Level(), "interrupted test leaves led low")
	assert.Empty(t, h.pub.Readings(), "adc never settled")
	assert.True(t, h.dev.Closed())
	assert.True(t, h.ctrl.Closed())
}

func TestRunExperimentDiagnosticsFailure(t *testing.T) {
	h := newHarness(t)
	h.platform.Fail["cpuinfo"] = errors.New("permission denied")
	h.env.newController = func(string) (gpio.Controller, error) {
		t.Fatal("pins provisioned after diagnostics failed")
		return nil, nil
	}

	err := runExperiment(context.Background(), testConfig(), h.env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRunExperimentProvisionFailure(t *testing.T) {
	h := newHarness(t)
	h.ctrl.ProvisionError[gpio.RoleMotion] = errors.New("line busy")

	err := runExperiment(context.Background(), testConfig(), h.env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line busy")
	assert.True(t, h.ctrl.Closed(), "lines provisioned before the failure are released")
	assert.Empty(t, h.pub.SystemEvents())
}

func TestRunExperimentControllerFailure(t *testing.T) {
	h := newHarness(t)
	h.env.newController = func(string) (gpio.Controller, error) { return nil, errors.New("no such chip") }

	err := runExperiment(context.Background(), testConfig(), h.env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init gpio")
}

func TestRunExperimentADCUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"open fails", func(h *harness) {
			h.env.openADC = func(int, uint16) (adcDevice, error) { return nil, errors.New("no such bus") }
		}},
		{"configure fails", func(h *harness) {
			h.dev.WriteError = errors.New("nack")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)
			cfg := testConfig()
			cfg.PWM.Enabled = false
			cfg.Hold = 20 * time.Millisecond

			require.NoError(t, runExperiment(context.Background(), cfg, h.env))
			assert.Empty(t, h.pub.Readings())
			assert.False(t, h.lastStatus(t).ADC.Enabled)
			assert.Zero(t, h.dev.ReadCount())
		})
	}
}

func TestRunExperimentADCErrorsDoNotStopPolling(t *testing.T) {
	h := newHarness(t)
	h.dev.Errors = []error{errors.New("i2c: nack"), errors.New("i2c: nack")}
	cfg := testConfig()
	cfg.PWM.Enabled = false
	cfg.Hold = 100 * time.Millisecond

	require.NoError(t, runExperiment(context.Background(), cfg, h.env))

	assert.Greater(t, h.dev.ReadCount(), 2)
	assert.NotEmpty(t, h.pub.Readings())
	st := h.lastStatus(t)
	assert.Equal(t, 2, st.ADC.Errors)
	assert.Equal(t, "closed", st.ADC.Breaker)
}

func TestRunButtons(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig()

	done := make(chan error, 1)
	go func() { done <- runButtons(context.Background(), cfg, h.env) }()

	require.Eventually(t, func() bool { return h.ctrl.Input(gpio.RoleButton) != nil }, time.Second, time.Millisecond)
	button := h.ctrl.Input(gpio.RoleButton)
	for i := 0; i < 3; i++ {
		button.Emit(gpio.Low)
		button.Emit(gpio.High)
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("buttons did not finish after three presses")
	}

	var presses []int64
	for _, e := range h.pub.Events() {
		if e.Type == logic.EventButtonPressed {
			presses = append(presses, e.Presses)
		}
	}
	assert.Equal(t, []int64{1, 2, 3}, presses)
	assert.False(t, button.Watching())
	assert.False(t, button.Emit(gpio.Low))

	green := h.ctrl.Output(gpio.RoleGreenLED).History()
	require.GreaterOrEqual(t, len(green), 6)
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High, gpio.Low, gpio.High, gpio.Low}, green[:6], "full led test")
	assert.Nil(t, h.ctrl.Output(gpio.RoleRedLED), "buttons only claims what it uses")
	assert.Equal(t, []string{"STARTUP:", "SHUTDOWN:press limit"}, h.systemEvents())
	assert.Equal(t, int64(3), h.lastStatus(t).Presses)
}

func TestRunButtonsInterrupted(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(signalError{syscall.SIGINT})

	require.NoError(t, runButtons(ctx, testConfig(), h.env))
	assert.Equal(t, []string{"STARTUP:", "SHUTDOWN:SIGINT"}, h.systemEvents())
	assert.True(t, h.ctrl.Closed())
}

func TestListenerIgnoresUnboundRole(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	l := newListener(status.NewTracker(time.Now(), status.Config{}), pub)
	l.handle(gpio.Edge{Role: gpio.RoleMotion, Level: gpio.High})
	assert.Empty(t, pub.Events())
}

func TestListenerPublishErrorIsNotFatal(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	ctrl := gpio.NewFakeController()
	red, err := ctrl.ProvisionOutput(gpio.DefaultLayout().RedLED)
	require.NoError(t, err)

	l := newListener(status.NewTracker(time.Now(), status.Config{}), pub)
	l.bind(gpio.RoleMotion, logic.MotionBinding(red))
	l.handle(gpio.Edge{Role: gpio.RoleMotion, Level: gpio.High})

	assert.Equal(t, gpio.High, red.Level())
	assert.Equal(t, 1, l.counter.Snapshot().MotionDetected)
}

func TestPublishStatus(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tr := status.NewTracker(time.Now(), status.Config{Experiment: "run"})

	publishStatus(pub, tr, "HEARTBEAT", "")
	publishStatus(pub, tr, "SHUTDOWN", "quit")

	evs := pub.SystemEvents()
	require.Len(t, evs, 2)
	assert.False(t, evs[0].Retained)
	assert.True(t, evs[1].Retained)
	assert.True(t, tr.Snapshot().MQTTConnected)

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(evs[1].RawPayload, &sj))
	assert.Equal(t, "SHUTDOWN", sj.Status.Event)
	assert.Equal(t, "quit", sj.Status.Reason)
}

func TestStartHeartbeat(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	tr := status.NewTracker(time.Now(), status.Config{})

	stop, err := startHeartbeat(0, pub, tr)
	require.NoError(t, err)
	stop()

	stop, err = startHeartbeat(time.Second, pub, tr)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(pub.SystemEvents()) > 0 }, 3*time.Second, 10*time.Millisecond)
	stop()
	assert.Equal(t, "HEARTBEAT", pub.SystemEvents()[0].Event)
}

func TestSignalName(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	assert.Equal(t, "", signalName(ctx))
	cancel(signalError{syscall.SIGINT})
	assert.Equal(t, "SIGINT", signalName(ctx))

	ctx, cancel = context.WithCancelCause(context.Background())
	cancel(signalError{syscall.SIGHUP})
	assert.Equal(t, "UNKNOWN", signalName(ctx))

	ctx, cancel2 := context.WithCancel(context.Background())
	cancel2()
	assert.Equal(t, "", signalName(ctx))
}

func parseFlags(t *testing.T, a *app, sub string, args ...string) (config.Config, error) {
	t.Helper()
	cmd, _, err := a.rootCmd().Find([]string{sub})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(args))
	return a.flags.resolve(cmd)
}

func TestFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(t, &app{}, "run")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestFlagsOverride(t *testing.T) {
	cfg, err := parseFlags(t, &app{}, "run",
		"--broker", "tcp://192.168.1.200:1883",
		"--http", ":8080",
		"--no-adc",
		"--no-diagnostics",
		"--hold", "30s",
		"--adc-address", "72",
		"--chip", "gpiochip4",
	)
	require.NoError(t, err)
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.Broker)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.ADC.Enabled)
	assert.False(t, cfg.Diagnostics)
	assert.True(t, cfg.PWM.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Hold)
	assert.Equal(t, uint16(0x48), cfg.ADC.Address)
	assert.Equal(t, "gpiochip4", cfg.Chip)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("press_limit: 5\nbroker: tcp://file:1883\n"), 0o644))

	cfg, err := parseFlags(t, &app{}, "buttons", "--config", path, "--presses", "7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.PressLimit, "flag beats file")
	assert.Equal(t, "tcp://file:1883", cfg.Broker, "file beats default")
}

func TestFlagsInvalid(t *testing.T) {
	_, err := parseFlags(t, &app{}, "buttons", "--presses", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "press_limit")
}

func TestInfoCommand(t *testing.T) {
	a := &app{env: env{platform: diag.NewFakePlatform()}}
	root := a.rootCmd()
	root.SetArgs([]string{"info"})
	require.NoError(t, root.Execute())

	p := diag.NewFakePlatform()
	p.Fail["meminfo"] = errors.New("gone")
	a.env.platform = p
	root = a.rootCmd()
	root.SetArgs([]string{"info"})
	assert.Error(t, root.Execute())
}
