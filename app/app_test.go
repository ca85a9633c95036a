package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/latrix/insider/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRun_RequiresHooks(t *testing.T) {
	err := Run(context.Background(), Hooks[struct{}, struct{}]{Name: "test"})
	assert.Error(t, err)
}

func TestRun_ReturnsConfigError(t *testing.T) {
	want := errors.New("smtp_port must be in 1..65535")
	hooks := Hooks[struct{}, struct{}]{
		Name: "test",
		LoadConfig: func(*zap.Logger) (*config.CoreConfig, struct{}, error) {
			return nil, struct{}{}, want
		},
		BuildHandler: func(*config.CoreConfig, struct{}, struct{}, *zap.Logger) (http.Handler, error) {
			t.Fatal("BuildHandler must not run after a config failure")
			return nil, nil
		},
	}
	assert.ErrorIs(t, Run(context.Background(), hooks), want)
}

func TestRun_ReturnsDepsError(t *testing.T) {
	want := errors.New("unknown transport")
	hooks := Hooks[struct{}, int]{
		Name: "test",
		LoadConfig: func(*zap.Logger) (*config.CoreConfig, struct{}, error) {
			return &config.CoreConfig{Env: "dev", LogLevel: "error"}, struct{}{}, nil
		},
		BuildDeps: func(context.Context, *config.CoreConfig, struct{}, *zap.Logger) (int, error) {
			return 0, want
		},
		BuildHandler: func(*config.CoreConfig, struct{}, int, *zap.Logger) (http.Handler, error) {
			t.Fatal("BuildHandler must not run after a deps failure")
			return nil, nil
		},
	}
	assert.ErrorIs(t, Run(context.Background(), hooks), want)
}
