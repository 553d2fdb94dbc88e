package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantDB  int
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", 0, false},
		{"valid-with-db", "redis://localhost:6379/2", 2, false},
		{"empty", "", 0, true},
		{"wrong-scheme", "http://localhost:6379", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestName(t *testing.T) {
	if got := (&Cache{}).Name(); got != "cache" {
		t.Errorf("Name() = %q", got)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"default namespace", nil, "cidadao:bills:9"},
		{"custom namespace", []Option{WithNamespace("staging")}, "staging:bills:9"},
		{"no namespace", []Option{WithNamespace("")}, "bills:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Wrap(nil, tt.opts...)
			if got := c.Key("bills:9"); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSON_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:59999", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := Wrap(client)

	var v map[string]int
	if ok, err := c.GetJSON(t.Context(), "k", &v); err == nil || ok {
		t.Errorf("GetJSON() = %v, %v; want connection error", ok, err)
	}
	if err := c.SetJSON(t.Context(), "k", map[string]int{"a": 1}, time.Minute); err == nil {
		t.Error("SetJSON() should fail on unreachable host")
	}
	if err := c.SetJSON(t.Context(), "k", func() {}, time.Minute); err == nil {
		t.Error("SetJSON() should fail to encode a func")
	}
}
