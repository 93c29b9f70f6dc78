package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"bitbucket.org/ctessum/sparse"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/tcdiag-service/internal/config"
	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// Writer publishes diagnostic summaries to a Kafka topic.
// It implements pipeline.SummaryPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Summary is one published diagnostic record. TCID is empty for grid-wide
// applications.
type Summary struct {
	App        string             `json:"app"`
	TCID       string             `json:"tcid,omitempty"`
	ComputedAt time.Time          `json:"computed_at"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// PublishSummaries serializes the run's results into per-application summary
// records and publishes them in a single WriteMessages call. It returns the
// number of records published.
func (w *Writer) PublishSummaries(ctx context.Context, diags *domain.TCDiagnostics) (int, error) {
	summaries := buildSummaries(diags)
	if len(summaries) == 0 {
		return 0, nil
	}

	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		msg, err := serializeSummary(summaries[i])
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	w.logger.Info("summaries published", "count", len(msgs))
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// buildSummaries flattens the diagnostics into summary records, one per
// grid-wide application and one per TC for the TC-relative ones. Failed
// applications are reported with their error string.
func buildSummaries(diags *domain.TCDiagnostics) []Summary {
	var out []Summary

	if pi := diags.PotentialIntensity; pi != nil {
		out = append(out, Summary{
			App:        "tcpi",
			ComputedAt: pi.ComputedAt,
			Metrics: finiteMetrics(map[string]float64{
				"vmax_max": maxValid(pi.VMax),
				"pmin_min": minValid(pi.PMin),
			}),
		})
	}

	for tcid, msi := range diags.MultiScale {
		out = append(out, Summary{
			App:        "tcmsi",
			TCID:       tcid,
			ComputedAt: msi.ComputedAt,
			Metrics: finiteMetrics(map[string]float64{
				"vmax":      msi.VMax,
				"rmw":       msi.RMW,
				"wn0_msi":   msi.WN0MSI,
				"wn1_msi":   msi.WN1MSI,
				"wn0p1_msi": msi.WN0P1MSI,
				"epsi_msi":  msi.EpsiMSI,
			}),
		})
	}

	if st := diags.Steering; st != nil {
		metrics := make(map[string]float64, 2*len(st.Layers))
		for _, layer := range st.Layers {
			key := fmt.Sprintf("%.0f_%.0f", layer.Bottom/100, layer.Top/100)
			metrics["u_"+key] = meanValid(layer.UFilt)
			metrics["v_"+key] = meanValid(layer.VFilt)
		}
		out = append(out, Summary{App: "tcstrflw", ComputedAt: st.ComputedAt, Metrics: finiteMetrics(metrics)})
	}

	if ohc := diags.OceanHeat; ohc != nil {
		out = append(out, Summary{
			App:        "tcohc",
			ComputedAt: ohc.ComputedAt,
			Metrics: finiteMetrics(map[string]float64{
				"isotherm":   ohc.Isotherm,
				"tchp_max":   maxValid(ohc.TCHP),
				"depth_mean": meanValid(ohc.IsothermDepth),
			}),
		})
	}

	for app, err := range diags.Failed {
		out = append(out, Summary{App: app, ComputedAt: domain.Now(), Error: err.Error()})
	}

	return out
}

// serializeSummary marshals a Summary into a Kafka message keyed by
// application (and TC identifier when present) for per-key ordering.
func serializeSummary(s Summary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	key := s.App
	if s.TCID != "" {
		key += "/" + s.TCID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "app", Value: []byte(s.App)},
			{Key: "computed_at", Value: []byte(s.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}

// finiteMetrics removes NaN and ±Inf entries. The aggregates below return
// non-finite values for all-missing grids, and JSON cannot carry them; a
// missing key is the summary's way of saying the metric had no valid data.
func finiteMetrics(m map[string]float64) map[string]float64 {
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			delete(m, k)
		}
	}
	return m
}

func maxValid(a *sparse.DenseArray) float64 {
	out := math.Inf(-1)
	for _, v := range a.Elements {
		if !math.IsNaN(v) && v > out {
			out = v
		}
	}
	return out
}

func minValid(a *sparse.DenseArray) float64 {
	out := math.Inf(1)
	for _, v := range a.Elements {
		if !math.IsNaN(v) && v < out {
			out = v
		}
	}
	return out
}

func meanValid(a *sparse.DenseArray) float64 {
	sum, n := 0.0, 0
	for _, v := range a.Elements {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
