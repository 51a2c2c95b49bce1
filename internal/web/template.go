package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pi-experiments/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"levelClass": func(s string) string {
		switch s {
		case "HIGH":
			return "on"
		case "LOW":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pi Experiments</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Pi Experiments ({{.Config.Experiment}})</h1>

<h2>LEDs</h2>
<table>
{{range .LEDs}}<tr><th>{{.Role}}</th><td class="{{levelClass .State}}">{{.State}}</td></tr>
{{end}}</table>

<h2>Inputs</h2>
<table>
<tr><th>Button</th><td class="{{if .ButtonPressed}}on{{else}}off{{end}}">{{if .ButtonPressed}}PRESSED{{else}}RELEASED{{end}}</td></tr>
<tr><th>Presses</th><td>{{.Presses}}{{if .Config.PressLimit}} / {{.Config.PressLimit}}{{end}}</td></tr>
<tr><th>Motion</th><td class="{{if .Motion}}on{{else}}off{{end}}">{{if .Motion}}DETECTED{{else}}IDLE{{end}}</td></tr>
</table>

<h2>Analog</h2>
<table>
{{if .ADC.Enabled}}<tr><th>Value</th><td>{{if .ADC.Valid}}{{.ADC.Value}}{{else}}-{{end}}</td></tr>
<tr><th>Errors</th><td>{{.ADC.Errors}}</td></tr>
{{if .ADC.LastError}}<tr><th>Last error</th><td>{{.ADC.LastError}}</td></tr>{{end}}
<tr><th>Breaker</th><td>{{.ADC.Breaker}}</td></tr>
{{else}}<tr><th>ADC</th><td class="off">disabled</td></tr>{{end}}
<tr><th>PWM duty</th><td>{{if .PWMEnabled}}{{.PWMDuty}} / {{.Config.PWMRange}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Button pressed</th><td>{{.Counts.ButtonPressed}}</td></tr>
<tr><th>Button released</th><td>{{.Counts.ButtonReleased}}</td></tr>
<tr><th>Motion detected</th><td>{{.Counts.MotionDetected}}</td></tr>
<tr><th>Motion reset</th><td>{{.Counts.MotionReset}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	data := struct {
		status.Snapshot
		LEDs   []status.LEDView
		Uptime time.Duration
	}{
		Snapshot: snap,
		LEDs:     status.SortedLEDs(snap),
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
