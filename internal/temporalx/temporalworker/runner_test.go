package temporalworker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/markupsync/internal/modules/markup"
	"github.com/yungbote/markupsync/internal/temporalx"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, markup.RunInput) (markup.RunReport, error) {
	return markup.RunReport{}, nil
}

func TestNewRunnerRequiresClient(t *testing.T) {
	_, err := NewRunner(nil, nil, temporalx.Config{}, noopRunner{})
	require.ErrorContains(t, err, "temporal client")
}

func TestStartOnNilRunner(t *testing.T) {
	var r *Runner
	require.Error(t, r.Start(context.Background()))
}
