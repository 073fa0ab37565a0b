package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/card-interlock/internal/status"
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
	"onoff": func(b bool) string {
		if b {
			return "YES"
		}
		return "NO"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Card Interlock</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.fault { color: red; font-weight: bold; }
.measuring { color: #b58900; font-weight: bold; }
</style>
</head>
<body>
<h1>Card Interlock</h1>

<table>
<tr><th>Detection state</th>
<td class="{{if .Tripped}}fault{{else if eq (printf "%s" .State) "MEASURING"}}measuring{{else}}ok{{end}}">{{.State}}</td></tr>
<tr><th>Interlock tripped</th>
<td class="{{if .Tripped}}fault{{else}}ok{{end}}">{{onoff .Tripped}}</td></tr>
<tr><th>Sensor value</th><td>{{.Value}}</td></tr>
<tr><th>Envelope present</th><td>{{onoff .Present}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
</table>

<h1>Verdicts since boot</h1>
<table>
<tr><th>Pass</th><td>{{.Counts.Pass}}</td></tr>
<tr><th>Pass (override)</th><td>{{.Counts.PassOverride}}</td></tr>
<tr><th>Empty envelope</th><td>{{.Counts.EmptyEnvelope}}</td></tr>
<tr><th>Double card</th><td>{{.Counts.DoubleCard}}</td></tr>
<tr><th>Trips</th><td>{{.Counts.Trips}}</td></tr>
</table>

<h1>Live configuration</h1>
<table>
<tr><th>Lower threshold</th><td>{{.Live.CardThresholdLow}}</td></tr>
{{if .Live.DualThreshold}}<tr><th>Upper threshold</th><td>{{.Live.CardThresholdHigh}}</td></tr>{{end}}
<tr><th>Health floor</th><td>{{.Live.BaseFloor}}</td></tr>
<tr><th>Sensor reversed</th><td>{{onoff .Live.ReverseSensor}}</td></tr>
<tr><th>Safety override</th>
<td class="{{if .Live.SafetyOverride}}fault{{else}}ok{{end}}">{{onoff .Live.SafetyOverride}}</td></tr>
</table>

<h1>Daemon</h1>
<table>
<tr><th>Serial port</th><td>{{.Config.SerialPort}} @ {{.Config.BaudRate}}</td></tr>
<tr><th>Poll / debounce</th><td>{{.Config.PollMs}}ms / {{.Config.DebounceMs}}ms</td></tr>
<tr><th>Watchdog / telemetry</th><td>{{.Config.WatchdogMs}}ms / {{.Config.TelemetryMs}}ms</td></tr>
<tr><th>MQTT broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>MQTT connected</th>
<td class="{{if .MQTTConnected}}ok{{else}}fault{{end}}">{{onoff .MQTTConnected}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Type}} {{.Network.IP}} ({{.Network.Status}})</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("render status page: %v", err)
	}
}
