package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/framefinder/internal/model"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
	"github.com/xxxsen/framefinder/internal/transcribe"
)

type memVideos struct {
	mu       sync.Mutex
	videos   map[string]*model.Video
	statuses map[string][]model.VideoStatus
}

func newMemVideos(videos ...*model.Video) *memVideos {
	m := &memVideos{videos: make(map[string]*model.Video), statuses: make(map[string][]model.VideoStatus)}
	for _, v := range videos {
		m.videos[v.ID] = v
	}
	return m
}

func (m *memVideos) Create(ctx context.Context, video *model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[video.ID]; ok {
		return appErr.ErrConflict
	}
	cp := *video
	m.videos[video.ID] = &cp
	return nil
}

func (m *memVideos) GetByID(ctx context.Context, id string) (*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVideos) List(ctx context.Context, offset, limit int) ([]model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Video, 0, len(m.videos))
	for _, v := range m.videos {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memVideos) ListStale(ctx context.Context, before int64) ([]model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Video
	for _, v := range m.videos {
		if v.Status == model.VideoStatusProcessing && v.Mtime < before {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memVideos) UpdateStatus(ctx context.Context, id string, status model.VideoStatus, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return appErr.ErrNotFound
	}
	v.Status = status
	v.Mtime = mtime
	m.statuses[id] = append(m.statuses[id], status)
	return nil
}

func (m *memVideos) history(id string) []model.VideoStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.VideoStatus(nil), m.statuses[id]...)
}

func (m *memVideos) UpdateDuration(ctx context.Context, id string, duration float64, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return appErr.ErrNotFound
	}
	v.Duration = duration
	return nil
}

func (m *memVideos) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[id]; !ok {
		return appErr.ErrNotFound
	}
	delete(m.videos, id)
	return nil
}

func (m *memVideos) status(id string) model.VideoStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.videos[id]; ok {
		return v.Status
	}
	return ""
}

type memTranscripts struct {
	transcript *model.Transcript
	segments   []model.TranscriptSegment
	calls      int
}

func (m *memTranscripts) Replace(ctx context.Context, transcript *model.Transcript, segments []model.TranscriptSegment) error {
	m.calls++
	m.transcript = transcript
	m.segments = segments
	return nil
}

func (m *memTranscripts) ListSegments(ctx context.Context, videoID string) ([]model.TranscriptSegment, error) {
	return m.segments, nil
}

type memFiles struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (m *memFiles) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return nil
}

func (m *memFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

func (m *memFiles) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	delete(m.files, key)
	return nil
}

func (m *memFiles) LocalPath(ctx context.Context, key string) (string, func(), error) {
	return "/videos/" + key, func() {}, nil
}

type fixedProber struct {
	duration float64
	err      error
}

func (p fixedProber) Duration(ctx context.Context, path string) (float64, error) {
	return p.duration, p.err
}

type stubTranscriber struct {
	name   string
	result *transcribe.Result
	err    error
	calls  int
}

func (s *stubTranscriber) Name() string { return s.name }

func (s *stubTranscriber) Transcribe(ctx context.Context, path string) (*transcribe.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// keywordEmbedder maps text onto a fixed vocabulary so similarity follows
// shared words.
type keywordEmbedder struct {
	vocab []string
	err   error
	calls int
	tasks []string
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	e.tasks = append(e.tasks, taskType)
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, len(e.vocab)+1)
	vec[len(e.vocab)] = 0.01
	for i, word := range e.vocab {
		if strings.Contains(strings.ToLower(text), word) {
			vec[i] = 1
		}
	}
	return vec, nil
}

type scriptedLLM struct {
	replies []string
	err     error
	prompts []string
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type memLogs struct {
	items []model.SearchLog
}

func (m *memLogs) Append(ctx context.Context, item *model.SearchLog) error {
	item.ID = int64(len(m.items) + 1)
	m.items = append(m.items, *item)
	return nil
}

func (m *memLogs) ListByVideo(ctx context.Context, videoID string, offset, limit int) ([]model.SearchLog, error) {
	var out []model.SearchLog
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].VideoID == videoID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

type memChats struct {
	items []model.ChatMessage
}

func (m *memChats) Create(ctx context.Context, msg *model.ChatMessage) error {
	msg.ID = int64(len(m.items) + 1)
	m.items = append(m.items, *msg)
	return nil
}

func (m *memChats) ListByVideo(ctx context.Context, videoID string, limit int) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for _, item := range m.items {
		if item.VideoID == videoID {
			out = append(out, item)
		}
	}
	return out, nil
}
