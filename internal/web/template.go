package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/osmosis-rig/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"dur": func(d time.Duration) string {
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
	"phaseClass": func(p string) string {
		switch p {
		case "IDLE":
			return "idle"
		case "STOPPED":
			return "stopped"
		default:
			return "running"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Osmosis Rig</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.running { color: green; font-weight: bold; }
.idle { color: #888; }
.stopped { color: orange; font-weight: bold; }
.fault { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Osmosis Rig</h1>

<h2>Cycle</h2>
<table>
<tr><th>Phase</th><td class="{{phaseClass (printf "%s" .Phase)}}">{{.Phase}}{{if .Long}} (1h run){{end}}{{if .Auto}} (auto-flush){{end}}</td></tr>
<tr><th>Remaining</th><td>{{dur .Remaining}}</td></tr>
<tr><th>Next auto-flush</th><td>{{.AutoFlushAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Filter duration</th><td>{{.FilterSec}}s</td></tr>
{{if .Fatal}}<tr><th>Fault</th><td class="fault">halted — restart required</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} — {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Cycle Counts</h2>
<table>
<tr><th>Auto-flushes</th><td>{{.Counts.AutoFlushes}}</td></tr>
<tr><th>Filter runs</th><td>{{.Counts.FilterRuns}}</td></tr>
<tr><th>Durations saved</th><td>{{.Counts.Saved}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{dur .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Long press</th><td>{{.Config.LongPressMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Config file</th><td>{{.Config.ConfigPath}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has an Uptime() method but the template wants a value.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
