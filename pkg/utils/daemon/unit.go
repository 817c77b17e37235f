// Package daemon installs the server as a systemd service.
package daemon

import (
	"bytes"
	"text/template"
)

var (
	unitName = "rtdconv.service"
	unitPath = "/etc/systemd/system/" + unitName
)

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=RTD resistance to temperature conversion server
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{ .Executable }} serve --config {{ .ConfigPath }}{{ if .LogLevel }} --log-level {{ .LogLevel }}{{ end }}
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
{{- if .User }}
User={{ .User }}
{{- end }}

[Install]
WantedBy=multi-user.target
`))

// UnitOptions are the values substituted into the unit file.
type UnitOptions struct {
	Executable string
	ConfigPath string
	LogLevel   string
	// User runs the service as someone other than root.
	User string
}

// RenderUnit returns the systemd unit for opts.
func RenderUnit(opts UnitOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
