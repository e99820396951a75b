package main

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tjfontaine/bare-gateway/internal/auth"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantKey string
		wantErr bool
	}{
		{name: "given key", args: []string{"my-key"}, wantKey: "my-key"},
		{name: "generated", args: nil, wantKey: "bg-" + strings.Repeat("61", keyBytes)},
		{name: "too many args", args: []string{"a", "b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			entropy := strings.NewReader(strings.Repeat("a", keyBytes))
			err := run(tt.args, &out, entropy)
			if (err != nil) != tt.wantErr {
				t.Fatalf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got := out.String()
			if !strings.Contains(got, "API Key: "+tt.wantKey+"\n") {
				t.Errorf("output missing key:\n%s", got)
			}
			if !strings.Contains(got, auth.HashAPIKey(tt.wantKey)) {
				t.Errorf("output missing hash:\n%s", got)
			}

			_, yamlPart, ok := strings.Cut(got, "config.yaml:\n")
			if !ok {
				t.Fatalf("output missing snippet:\n%s", got)
			}
			var s snippet
			if err := yaml.Unmarshal([]byte(yamlPart), &s); err != nil {
				t.Fatalf("snippet is not valid YAML: %v", err)
			}
			if len(s.Server.APIKeys) != 1 || s.Server.APIKeys[0] != tt.wantKey {
				t.Errorf("snippet api_keys = %v", s.Server.APIKeys)
			}
		})
	}
}
