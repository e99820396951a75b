package gateway_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/tjfontaine/bare-gateway/internal/backend/echo"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
	"github.com/tjfontaine/bare-gateway/pkg/gateway"
)

func TestEmbeddedGateway(t *testing.T) {
	gateway.RegisterBuiltins()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 1},
		Routing: config.RoutingConfig{Strategy: "path"},
		Storage: config.StorageConfig{Type: "none"},
	}
	gw, err := gateway.New(
		gateway.WithConfig(cfg),
		gateway.WithMemoryStorage(),
		gateway.WithBackend(echo.New("embedded", nil), "local"),
		gateway.WithListener(ln),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, ok := gw.Server().GetBackend("local"); !ok {
		t.Error("embedded backend not registered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gw.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
