package telemetry

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown failed: %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		raw      string
		host     string
		insecure bool
		wantErr  bool
	}{
		{raw: "", host: ""},
		{raw: "collector:4318", host: "collector:4318", insecure: true},
		{raw: "http://collector:4318", host: "collector:4318", insecure: true},
		{raw: "https://otel.example.com", host: "otel.example.com"},
		{raw: "grpc://collector:4317", wantErr: true},
	}
	for _, tc := range cases {
		host, insecure, err := parseEndpoint(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseEndpoint(%q) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
		}
		if tc.wantErr {
			continue
		}
		if host != tc.host || insecure != tc.insecure {
			t.Fatalf("parseEndpoint(%q) = %q, %v; want %q, %v", tc.raw, host, insecure, tc.host, tc.insecure)
		}
	}
}

func TestSampleRatio(t *testing.T) {
	for input, want := range map[float64]float64{0: 1, -1: 1, 2: 1, 0.25: 0.25, 1: 1} {
		if got := sampleRatio(input); got != want {
			t.Fatalf("sampleRatio(%v) = %v, want %v", input, got, want)
		}
	}
}
