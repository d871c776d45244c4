package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/episode"
	port "rocket-lander/backend/internal/core/port/out/telemetry"
)

var _ port.TickObserver = (*Recorder)(nil)

// RecordEntry одна строка файла эпизода
type RecordEntry struct {
	port.TickRecord
	Episode string           `json:"episode"`
	Step    int              `json:"step"`
	Verdict *episode.Verdict `json:"verdict,omitempty"`
}

// Recorder пишет каждый эпизод в отдельный файл <dir>/<id>.jsonl.zst.
// Эпизод начинается с Reset и заканчивается на терминальном наблюдении или следующем Reset.
type Recorder struct {
	dir       string
	evaluator *episode.Evaluator
	index     *EpisodeIndex
	logger    *zap.Logger

	mu       sync.Mutex
	cur      *episodeFile
	finished []EpisodeSummary
}

type episodeFile struct {
	summary EpisodeSummary
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewRecorder создает регистратор эпизодов; index может быть nil
func NewRecorder(dir string, evaluator *episode.Evaluator, index *EpisodeIndex, logger *zap.Logger) *Recorder {
	if evaluator == nil {
		evaluator = episode.NewEvaluator(episode.DefaultConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		dir:       dir,
		evaluator: evaluator,
		index:     index,
		logger:    logger.Named("Recorder"),
	}
}

// ObserveTick записывает тик в текущий эпизод
func (r *Recorder) ObserveTick(rec port.TickRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.Mode == command.ModeReset.String() {
		r.finishLocked(episode.OutcomeAborted)
		if err := r.startLocked(rec); err != nil {
			r.logger.Error("не удалось начать эпизод", zap.Error(err))
		}
		return
	}

	if r.cur == nil {
		return
	}

	cur := r.cur
	cur.summary.Steps++
	verdict := r.evaluator.Evaluate(rec.Obs, cur.summary.Steps)
	cur.summary.TotalReward += verdict.Reward

	entry := RecordEntry{
		TickRecord: rec,
		Episode:    cur.summary.ID,
		Step:       cur.summary.Steps,
		Verdict:    &verdict,
	}
	if err := cur.write(entry); err != nil {
		r.logger.Error("ошибка записи эпизода", zap.String("episode", cur.summary.ID), zap.Error(err))
	}

	if verdict.Done {
		r.finishLocked(verdict.Outcome)
	}
}

// Finished итоги завершенных эпизодов с момента запуска
func (r *Recorder) Finished() []EpisodeSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EpisodeSummary, len(r.finished))
	copy(out, r.finished)
	return out
}

// Close завершает текущий эпизод как прерванный
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishLocked(episode.OutcomeAborted)
	return nil
}

func (r *Recorder) startLocked(rec port.TickRecord) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	id := uuid.NewString()
	path := filepath.Join(r.dir, id+".jsonl.zst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}

	r.cur = &episodeFile{
		summary: EpisodeSummary{
			ID:        id,
			StartedAt: rec.Timestamp,
			Outcome:   string(episode.OutcomeRunning),
			Path:      path,
		},
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}
	r.logger.Debug("эпизод начат", zap.String("episode", id))

	return r.cur.write(RecordEntry{TickRecord: rec, Episode: id})
}

func (r *Recorder) finishLocked(outcome episode.Outcome) {
	cur := r.cur
	if cur == nil {
		return
	}
	r.cur = nil

	if err := cur.close(); err != nil {
		r.logger.Error("ошибка закрытия файла эпизода", zap.String("episode", cur.summary.ID), zap.Error(err))
	}

	cur.summary.EndedAt = time.Now()
	cur.summary.Outcome = string(outcome)
	r.finished = append(r.finished, cur.summary)

	r.logger.Info("эпизод завершен",
		zap.String("episode", cur.summary.ID),
		zap.String("outcome", cur.summary.Outcome),
		zap.Int("steps", cur.summary.Steps),
		zap.Float64("reward", cur.summary.TotalReward))

	if r.index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.index.Record(ctx, cur.summary); err != nil {
		r.logger.Error("ошибка записи в индекс", zap.Error(err))
	}
}

func (e *episodeFile) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}

func (e *episodeFile) close() error {
	var err1 error
	if err := e.w.Flush(); err != nil {
		err1 = fmt.Errorf("flush: %w", err)
	}
	if err := e.enc.Close(); err != nil && err1 == nil {
		err1 = err
	}
	if err := e.f.Close(); err != nil && err1 == nil {
		err1 = err
	}
	return err1
}

// ReadEpisode читает файл эпизода целиком
func ReadEpisode(path string) ([]RecordEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []RecordEntry
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var entry RecordEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, entry)
	}
	return out, scanner.Err()
}
