package app

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymentor/internal/gateway/config"
	"pymentor/internal/gateway/handler/rpc"
	"pymentor/internal/llm"
)

func offlineConfig() *config.Config {
	return &config.Config{
		Port: "127.0.0.1:0",
		Env:  "test",
		LLM:  config.LLMConfig{Fake: true},
		Mentor: config.MentorConfig{
			MatchPolicy:  "exact",
			Monotonic:    true,
			ManualToggle: true,
		},
		Artifact: config.ArtifactConfig{Backend: "memory"},
	}
}

func TestAppServesOffline(t *testing.T) {
	a, err := New(offlineConfig(), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	client := rpc.NewMentorServiceClient(http.DefaultClient, base)

	created, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	id := created.Session.SessionID

	analyzed, err := client.AnalyzeCode(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, analyzed.Session.Analysis)
	assert.Empty(t, analyzed.Session.Analysis.Errors)
	assert.Equal(t, 0, analyzed.Session.Progress.Completed)

	chatted, err := client.SendMessage(context.Background(), id, "Bonjour")
	require.NoError(t, err)
	require.Len(t, chatted.Session.Messages, 2)
	assert.Equal(t, llm.NewFakeClient().Reply, chatted.Session.Messages[1].Text)

	exported, err := client.ExportReport(context.Background(), id)
	require.NoError(t, err)
	resp, err := http.Get(base + exported.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health, err := http.Get(base + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	usage := a.llm.usage.Snapshot()
	assert.Equal(t, int64(1), usage["analysis"].Requests)
	assert.Equal(t, int64(1), usage["tutor"].Requests)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down")
	}
}

func TestNewRejectsBadPolicy(t *testing.T) {
	cfg := offlineConfig()
	cfg.Mentor.MatchPolicy = "fuzzy"
	_, err := New(cfg, nil)
	assert.Error(t, err)

	cfg = offlineConfig()
	cfg.Session.CatalogPath = "/does/not/exist.yaml"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}

func TestChooseArtifactStore(t *testing.T) {
	cfg := offlineConfig()
	cfg.Artifact.Backend = "postgres"
	_, err := chooseArtifactStore(cfg, nil)
	assert.Error(t, err)

	cfg.Artifact = config.ArtifactConfig{Backend: "s3", Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "r"}
	store, err := chooseArtifactStore(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}
