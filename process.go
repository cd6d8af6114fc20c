/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package txengine

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blnkfinance/txengine/internal/txerror"
	"github.com/blnkfinance/txengine/model"
)

var (
	tracer = otel.Tracer("txengine.process")
)

// Source yields parsed records one at a time. Next returns io.EOF once the
// input is exhausted. A non-fatal *txerror.TxError marks a malformed record
// that is skipped; any other error aborts processing.
type Source interface {
	Next() (model.Transaction, error)
}

// Sink receives the final account snapshots.
type Sink interface {
	Write(ctx context.Context, snapshots []model.Snapshot) error
}

// Stats summarises a processing run.
type Stats struct {
	Read    int                       `json:"read"`
	Applied int                       `json:"applied"`
	Skipped int                       `json:"skipped"`
	Reasons map[txerror.ErrorCode]int `json:"reasons"`
}

func newStats() Stats {
	return Stats{Reasons: make(map[txerror.ErrorCode]int)}
}

func (s *Stats) skip(err error) {
	s.Skipped++
	s.Reasons[txerror.CodeOf(err)]++
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.WithError(err).Error(msg)
	return err
}

func logSkipped(err error) {
	fields := logrus.Fields{"code": txerror.CodeOf(err)}
	if txErr, ok := txerror.As(err); ok {
		if d, ok := txErr.Details.(map[string]interface{}); ok {
			for k, v := range d {
				fields[k] = v
			}
		}
		fields["reason"] = txErr.Message
	}
	logrus.WithFields(fields).Debug("record skipped")
}

// Process drains src through the engine and writes the resulting snapshot
// to sink. Rejected and malformed records are counted and skipped. The
// context is checked between records only.
func (e *Engine) Process(ctx context.Context, src Source, sink Sink) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Process")
	defer span.End()

	stats := newStats()
	for {
		if err := ctx.Err(); err != nil {
			return stats, logAndRecordError(span, "processing cancelled", err)
		}

		tx, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if txerror.IsFatal(err) {
				return stats, logAndRecordError(span, "reading input failed", err)
			}
			stats.Read++
			stats.skip(err)
			logSkipped(err)
			continue
		}

		stats.Read++
		if err := e.Apply(tx); err != nil {
			stats.skip(err)
			logSkipped(err)
			continue
		}
		stats.Applied++
	}

	snapshots := e.Snapshot()
	span.SetAttributes(
		attribute.Int("records.read", stats.Read),
		attribute.Int("records.applied", stats.Applied),
		attribute.Int("records.skipped", stats.Skipped),
		attribute.Int("accounts", len(snapshots)),
	)

	if err := sink.Write(ctx, snapshots); err != nil {
		return stats, logAndRecordError(span, "writing snapshot failed",
			txerror.New(txerror.ErrSinkFailure, err.Error(), nil))
	}
	return stats, nil
}
