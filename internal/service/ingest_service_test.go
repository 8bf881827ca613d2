package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/framefinder/internal/ai"
	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/transcribe"
)

type ingestFixture struct {
	videos      *memVideos
	transcripts *memTranscripts
	transcriber *stubTranscriber
	embedder    *keywordEmbedder
	broker      *StatusBroker
	svc         *IngestService
}

func newIngestFixture(duration float64, result *transcribe.Result) *ingestFixture {
	f := &ingestFixture{
		videos:      newMemVideos(&model.Video{ID: "v1", FileKey: "v1.mp4", Status: model.VideoStatusProcessing}),
		transcripts: &memTranscripts{},
		transcriber: &stubTranscriber{name: "stub", result: result},
		embedder:    &keywordEmbedder{vocab: []string{"cat", "dog"}},
		broker:      NewStatusBroker(),
	}
	f.svc = NewIngestService(IngestDeps{
		Videos:      f.videos,
		Transcripts: f.transcripts,
		Files:       newMemFiles(),
		Prober:      fixedProber{duration: duration},
		Transcriber: f.transcriber,
		Embedder:    f.embedder,
		Broker:      f.broker,
	}, 180)
	return f
}

func TestIngestSuccess(t *testing.T) {
	f := newIngestFixture(60, &transcribe.Result{
		Text: "the dog barks the cat jumps",
		Segments: []transcribe.Segment{
			{Start: 5, End: 10, Text: " the cat jumps "},
			{Start: 0, End: 5, Text: "the dog barks"},
		},
	})
	sub := f.broker.Subscribe("v1")
	defer sub.Close()

	require.True(t, f.svc.Ingest(context.Background(), "v1"))
	require.Equal(t, model.VideoStatusCompleted, f.videos.status("v1"))
	require.Equal(t, 60.0, f.videos.videos["v1"].Duration)
	require.Len(t, f.transcripts.segments, 2)
	require.Equal(t, "the dog barks", f.transcripts.segments[0].Text)
	require.Equal(t, "the cat jumps", f.transcripts.segments[1].Text)
	for _, seg := range f.transcripts.segments {
		require.NotEmpty(t, seg.Embedding)
	}
	require.Equal(t, []string{ai.TaskRetrievalDocument, ai.TaskRetrievalDocument}, f.embedder.tasks)
	require.Equal(t, "the dog barks the cat jumps", f.transcripts.transcript.FullText)

	ev := <-sub.C
	require.Equal(t, model.VideoStatusCompleted, ev.Status)
	require.True(t, ev.Processed)
}

func TestIngestRejectsLongVideo(t *testing.T) {
	f := newIngestFixture(200, &transcribe.Result{Text: "x"})
	require.False(t, f.svc.Ingest(context.Background(), "v1"))
	require.Equal(t, model.VideoStatusFailed, f.videos.status("v1"))
	require.Equal(t, 0, f.transcriber.calls)
	require.Equal(t, 0, f.transcripts.calls)
}

func TestIngestDurationUnavailable(t *testing.T) {
	f := newIngestFixture(0, nil)
	f.svc.deps.Prober = fixedProber{err: errors.New("ffprobe missing")}
	require.False(t, f.svc.Ingest(context.Background(), "v1"))
	require.Equal(t, model.VideoStatusFailed, f.videos.status("v1"))
}

func TestIngestTranscriptionFailure(t *testing.T) {
	f := newIngestFixture(30, nil)
	f.transcriber.err = errors.New("both engines failed")
	require.False(t, f.svc.Ingest(context.Background(), "v1"))
	require.Equal(t, model.VideoStatusFailed, f.videos.status("v1"))
	require.Equal(t, 0, f.transcripts.calls)
}

func TestIngestEmbeddingFailure(t *testing.T) {
	f := newIngestFixture(30, &transcribe.Result{Segments: []transcribe.Segment{{Start: 0, End: 3, Text: "hi"}}})
	f.embedder.err = ai.ErrUnavailable
	require.False(t, f.svc.Ingest(context.Background(), "v1"))
	require.Equal(t, model.VideoStatusFailed, f.videos.status("v1"))
	require.Equal(t, 0, f.transcripts.calls)
}

func TestIngestUsesFallbackTranscriber(t *testing.T) {
	f := newIngestFixture(30, nil)
	remote := &stubTranscriber{name: "remote", err: errors.New("quota")}
	local := &stubTranscriber{name: "local", result: &transcribe.Result{Segments: []transcribe.Segment{{Start: 0, End: 4, Text: "hello"}}}}
	f.svc.deps.Transcriber = transcribe.WithFallback(remote, local)

	require.True(t, f.svc.Ingest(context.Background(), "v1"))
	require.Equal(t, 1, remote.calls)
	require.Equal(t, 1, local.calls)
	require.Len(t, f.transcripts.segments, 1)
}

func TestIngestCancelled(t *testing.T) {
	f := newIngestFixture(30, &transcribe.Result{Segments: []transcribe.Segment{{Start: 0, End: 3, Text: "hi"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, f.svc.Ingest(ctx, "v1"))
	require.Equal(t, model.VideoStatusFailed, f.videos.status("v1"))
	require.Equal(t, 0, f.transcripts.calls)
}

func TestIngestMissingVideo(t *testing.T) {
	f := newIngestFixture(30, nil)
	require.False(t, f.svc.Ingest(context.Background(), "nope"))
}

func TestNormalizeSegments(t *testing.T) {
	out := normalizeSegments(&transcribe.Result{
		Segments: []transcribe.Segment{
			{Start: 8, End: 9, Text: "c"},
			{Start: 3, End: 3, Text: "zero length"},
			{Start: 1, End: 2, Text: "   "},
			{Start: 2, End: 4, Text: "b"},
			{Start: 2, End: 5, Text: "b2"},
		},
	}, 10)
	require.Len(t, out, 3)
	require.Equal(t, "b", out[0].Text)
	require.Equal(t, "b2", out[1].Text)
	require.Equal(t, "c", out[2].Text)

	out = normalizeSegments(&transcribe.Result{Text: " whole thing "}, 42)
	require.Equal(t, []model.TranscriptSegment{{Text: "whole thing", StartTime: 0, EndTime: 42}}, out)

	require.Empty(t, normalizeSegments(&transcribe.Result{}, 42))
}
