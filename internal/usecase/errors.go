package usecase

import (
	"context"
	"errors"

	"PerpDesk/internal/domain/models"
)

var (
	ErrNoSnapshots        = errors.New("no snapshots collected yet")
	ErrAnalysisInProgress = errors.New("another analysis is in progress")
	ErrValidationFailed   = errors.New("model output failed validation")
)

type nopPublisher struct{}

func (nopPublisher) PublishSignals(context.Context, []models.Signal) error        { return nil }
func (nopPublisher) PublishAnalysis(context.Context, models.AnalysisRecord) error { return nil }
func (nopPublisher) Close() error                                                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordSnapshot(int)               {}
func (nopMetrics) RecordCollectError(string)        {}
func (nopMetrics) RecordSignal(string, string)      {}
func (nopMetrics) RecordLastMid(string, float64)    {}
func (nopMetrics) RecordAnalysis(string, int, int)  {}
func (nopMetrics) RecordLLMLatency(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)    {}

type nopSink struct{}

func (nopSink) Init(context.Context) error                       { return nil }
func (nopSink) Store(context.Context, *models.MarketState) error { return nil }
func (nopSink) Health(context.Context) error                     { return nil }
func (nopSink) Close() error                                     { return nil }
