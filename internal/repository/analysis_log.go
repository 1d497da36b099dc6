package repository

import (
	"context"
	"encoding/json"
	"time"

	"PerpDesk/internal/domain/models"
	domrepo "PerpDesk/internal/domain/repository"
	applogger "PerpDesk/pkg/logger"
)

// JSONLAnalysisLog appends validated analyses, one record per line.
type JSONLAnalysisLog struct {
	file *jsonlFile
	l    *applogger.Logger
}

var _ domrepo.AnalysisLog = (*JSONLAnalysisLog)(nil)

func NewJSONLAnalysisLog(path string, l *applogger.Logger) *JSONLAnalysisLog {
	return &JSONLAnalysisLog{file: newJSONLFile(path), l: applogger.OrNop(l).With("analysis_log")}
}

func (a *JSONLAnalysisLog) Append(_ context.Context, rec models.AnalysisRecord) error {
	return a.file.append(rec)
}

// Last returns the most recent decodable record.
func (a *JSONLAnalysisLog) Last(_ context.Context) (*models.AnalysisRecord, error) {
	var last *models.AnalysisRecord
	_, err := a.file.lines(func(line []byte) error {
		var rec models.AnalysisRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		last = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

func (a *JSONLAnalysisLog) Since(_ context.Context, t time.Time) ([]models.AnalysisRecord, error) {
	var out []models.AnalysisRecord
	skipped, err := a.file.lines(func(line []byte) error {
		var rec models.AnalysisRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if !rec.Timestamp.Before(t) {
			out = append(out, rec)
		}
		return nil
	})
	if skipped > 0 {
		a.l.Warn("skipped malformed analysis lines", applogger.Int("count", skipped))
	}
	return out, err
}
