package repository

import (
	"context"
	"encoding/json"
	"time"

	"PerpDesk/internal/domain/models"
	domrepo "PerpDesk/internal/domain/repository"
	applogger "PerpDesk/pkg/logger"
)

// JSONLSignalLog stores the day's signals, one per line. The collector
// resets it at the UTC day boundary.
type JSONLSignalLog struct {
	file *jsonlFile
	l    *applogger.Logger
}

var _ domrepo.SignalLog = (*JSONLSignalLog)(nil)

func NewJSONLSignalLog(path string, l *applogger.Logger) *JSONLSignalLog {
	return &JSONLSignalLog{file: newJSONLFile(path), l: applogger.OrNop(l).With("signal_log")}
}

func (s *JSONLSignalLog) Append(_ context.Context, signals ...models.Signal) error {
	items := make([]interface{}, len(signals))
	for i := range signals {
		items[i] = signals[i]
	}
	return s.file.append(items...)
}

func (s *JSONLSignalLog) Since(_ context.Context, t time.Time) ([]models.Signal, error) {
	all, err := s.all()
	if err != nil {
		return nil, err
	}
	out := make([]models.Signal, 0, len(all))
	for _, sig := range all {
		if !sig.Timestamp.Before(t) {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *JSONLSignalLog) Today(_ context.Context, limit int) ([]models.Signal, error) {
	all, err := s.all()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *JSONLSignalLog) Reset(_ context.Context) error {
	if err := s.file.truncate(); err != nil {
		return err
	}
	s.l.Info("signal log reset")
	return nil
}

func (s *JSONLSignalLog) all() ([]models.Signal, error) {
	var out []models.Signal
	skipped, err := s.file.lines(func(line []byte) error {
		var sig models.Signal
		if err := json.Unmarshal(line, &sig); err != nil {
			return err
		}
		out = append(out, sig)
		return nil
	})
	if skipped > 0 {
		s.l.Warn("skipped malformed signal lines", applogger.Int("count", skipped))
	}
	return out, err
}
