package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderUnit(t *testing.T) {
	tests := []struct {
		name    string
		opts    UnitOptions
		want    []string
		notWant []string
	}{
		{
			name: "root",
			opts: UnitOptions{Executable: "/usr/local/bin/rtdconv", ConfigPath: "/etc/rtdconv.json"},
			want: []string{
				"ExecStart=/usr/local/bin/rtdconv serve --config /etc/rtdconv.json\n",
				"ExecReload=/bin/kill -HUP $MAINPID",
				"WantedBy=multi-user.target",
			},
			notWant: []string{"User=", "--log-level"},
		},
		{
			name: "user and log level",
			opts: UnitOptions{Executable: "/opt/rtdconv", ConfigPath: "/etc/rtdconv.json", LogLevel: "debug", User: "rtd"},
			want: []string{
				"ExecStart=/opt/rtdconv serve --config /etc/rtdconv.json --log-level debug\n",
				"Restart=on-failure\nUser=rtd\n",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := RenderUnit(tt.opts)
			if err != nil {
				t.Fatalf("RenderUnit() error = %v", err)
			}
			unit := string(b)
			for _, w := range tt.want {
				if !strings.Contains(unit, w) {
					t.Errorf("unit missing %q:\n%s", w, unit)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(unit, w) {
					t.Errorf("unit contains %q:\n%s", w, unit)
				}
			}
		})
	}
}

func TestWriteAndRemove(t *testing.T) {
	var calls []string
	orig := systemctl
	systemctl = func(args ...string) error {
		calls = append(calls, strings.Join(args, " "))
		return nil
	}
	defer func() { systemctl = orig }()

	path := filepath.Join(t.TempDir(), "system", unitName)
	if err := writeAndStart(path, []byte("[Unit]\n")); err != nil {
		t.Fatalf("writeAndStart() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("unit not written: %v", err)
	}

	if err := stopAndRemove(path); err != nil {
		t.Fatalf("stopAndRemove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("unit still exists: %v", err)
	}

	want := "daemon-reload|enable --now rtdconv.service|disable --now rtdconv.service|daemon-reload"
	if got := strings.Join(calls, "|"); got != want {
		t.Errorf("systemctl calls = %q, want %q", got, want)
	}
}

func TestStopFails(t *testing.T) {
	orig := systemctl
	systemctl = func(...string) error { return errors.New("unit not loaded") }
	defer func() { systemctl = orig }()

	if err := stopAndRemove(filepath.Join(t.TempDir(), unitName)); err == nil {
		t.Error("stopAndRemove() error = nil")
	}
}
