package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantpulse_backend/internal/app/config"
	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
)

// These tests touch process environment through config.Load and are not parallel.

func TestRootCmd_PrintsSummary(t *testing.T) {
	t.Setenv("SEC_USER_AGENT", "QuantPulse test@example.com")

	var gotSource entity.Source
	run := func(ctx context.Context, cfg config.Config, source entity.Source) (entity.ImportSummary, error) {
		gotSource = source
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return entity.ImportSummary{
			Exchange:  source,
			Processed: 5,
			Inserted:  3,
			Updated:   1,
			Skipped:   1,
			Published: true,
			Timestamp: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		}, nil
	}

	var out bytes.Buffer
	cmd := newRootCmd(run, &out)
	cmd.SetArgs([]string{"NasDaq"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, entity.SourceNASDAQ, gotSource)
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "NASDAQ", got["exchange"])
	assert.Equal(t, float64(5), got["processed"])
	assert.Equal(t, float64(3), got["inserted"])
	assert.Equal(t, true, got["published"])
}

func TestRootCmd_Errors(t *testing.T) {
	t.Setenv("SEC_USER_AGENT", "QuantPulse test@example.com")

	providerErr := &usecase.ProviderError{Source: entity.SourceSEC, Attempts: 3, Err: errors.New("503")}

	tests := []struct {
		name string
		args []string
		err  error
	}{
		{"no source", nil, nil},
		{"two sources", []string{"nasdaq", "sec"}, nil},
		{"unknown source", []string{"nyse"}, nil},
		{"import failure", []string{"sec"}, providerErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			run := func(context.Context, config.Config, entity.Source) (entity.ImportSummary, error) {
				called = true
				return entity.ImportSummary{}, tt.err
			}

			var out bytes.Buffer
			cmd := newRootCmd(run, &out)
			cmd.SetArgs(tt.args)
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.Execute()
			require.Error(t, err)
			if tt.err != nil {
				assert.True(t, called)
				assert.ErrorAs(t, err, &providerErr)
			} else {
				assert.False(t, called)
			}
		})
	}
}

func TestRootCmd_RequiresSECUserAgent(t *testing.T) {
	t.Setenv("SEC_USER_AGENT", "")

	cmd := newRootCmd(func(context.Context, config.Config, entity.Source) (entity.ImportSummary, error) {
		t.Fatal("import must not run")
		return entity.ImportSummary{}, nil
	}, &bytes.Buffer{})
	cmd.SetArgs([]string{"sec"})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEC_USER_AGENT")
}
