package logger

import (
	"testing"

	"github.com/Jaaz7/kgag-scheduler/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"json", config.LogConfig{Level: "info", Format: "json"}, false},
		{"console", config.LogConfig{Level: "debug", Format: "console"}, false},
		{"无效级别", config.LogConfig{Level: "loud", Format: "json"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("期望返回错误")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			l.Info("ok")
		})
	}
}
