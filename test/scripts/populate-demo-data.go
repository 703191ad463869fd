package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type DemoMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Data      string    `json:"data"`
	Priority  int       `json:"priority"`
}

type demoStream struct {
	name     string
	subject  string
	consumer string
	filter   string
	msgCount int
}

var demoStreams = []demoStream{
	{"ORDERS", "orders.>", "billing", "orders.*.created", 240},
	{"PAYMENTS", "payments.>", "ledger", "", 120},
	{"EMAILS", "emails.>", "", "", 60},
	{"AUDIT", "audit.>", "", "", 0},
}

var eventNames = map[string][]string{
	"ORDERS":   {"created", "updated", "cancelled"},
	"PAYMENTS": {"authorized", "captured", "refunded"},
	"EMAILS":   {"queued", "sent"},
	"AUDIT":    {"login", "logout"},
}

// Prometheus metrics, named like the NATS exporter's so the counts plugin can query them
var (
	streamTotalMessages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_total_messages",
			Help: "Total number of messages in stream",
		},
		[]string{"server_id", "stream_name"},
	)

	consumerPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_consumer_num_pending",
			Help: "Number of pending messages for consumer",
		},
		[]string{"server_id", "stream_name", "consumer_name"},
	)

	consumerAckPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_consumer_num_ack_pending",
			Help: "Number of ack pending messages for consumer",
		},
		[]string{"server_id", "stream_name", "consumer_name"},
	)
)

func main() {
	server := flag.String("server", nats.DefaultURL, "NATS server URL")
	suffix := flag.String("dead-letter-suffix", "_DLQ", "Dead-letter stream suffix")
	trickle := flag.Duration("trickle", 0, "Keep publishing one message per stream at this interval (0 disables)")
	deadLetterRatio := flag.Float64("dead-letter-ratio", 0.1, "Fraction of messages moved to the dead-letter stream")
	metricsMode := flag.Bool("metrics", false, "Serve simulated Prometheus metrics and query API")
	metricsPort := flag.String("metrics-port", "9090", "Port to serve Prometheus metrics on")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	// Connect to NATS
	nc, err := nats.Connect(*server)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream context")
	}
	log.Info().Str("server", nc.ConnectedUrl()).Msg("connected to NATS")

	pop := &populator{js: js, suffix: *suffix, ratio: *deadLetterRatio}
	for _, s := range demoStreams {
		pop.createStream(s)
		pop.publish(s, s.msgCount)
	}
	log.Info().Msg("demo data population completed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *trickle > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pop.trickle(ctx, *trickle)
		}()
	}
	if *metricsMode {
		sim := NewMetricsSimulator(js, *suffix)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Run(ctx, *metricsPort)
		}()
	}
	if *trickle == 0 && !*metricsMode {
		log.Info().Msg("run peekq to browse the populated streams")
		return
	}

	log.Info().Msg("press Ctrl+C to stop")
	wg.Wait()
}

type populator struct {
	js     nats.JetStreamContext
	suffix string
	ratio  float64
}

// deadLetterStream names the dead-letter stream of the queue, or of its consumer when set
func (p *populator) deadLetterStream(s demoStream, consumer string) (name, subject string) {
	if consumer != "" {
		name = s.name + "_" + consumer + p.suffix
	} else {
		name = s.name + p.suffix
	}
	return name, "dlq." + strings.ToLower(name)
}

func (p *populator) addDeadLetterStream(name, subject string) {
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		log.Warn().Err(err).Str("stream", name).Msg("dead-letter stream might already exist")
	}
}

func (p *populator) createStream(s demoStream) {
	log.Info().Str("stream", s.name).Msg("creating stream")
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:      s.name,
		Subjects:  []string{s.subject},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		log.Warn().Err(err).Str("stream", s.name).Msg("stream might already exist")
	}

	p.addDeadLetterStream(p.deadLetterStream(s, ""))
	if s.consumer == "" {
		return
	}
	p.addDeadLetterStream(p.deadLetterStream(s, s.consumer))

	_, err = p.js.AddConsumer(s.name, &nats.ConsumerConfig{
		Durable:       s.consumer,
		FilterSubject: s.filter,
		AckPolicy:     nats.AckExplicitPolicy,
		DeliverPolicy: nats.DeliverAllPolicy,
		MaxDeliver:    3,
		AckWait:       30 * time.Second,
	})
	if err != nil {
		log.Warn().Err(err).Str("consumer", s.consumer).Msg("consumer might already exist")
	}
}

// publish sends count messages to s and moves a fraction of them to its dead-letter stream
func (p *populator) publish(s demoStream, count int) {
	events := eventNames[s.name]
	prefix := strings.TrimSuffix(s.subject, ">")
	for i := 0; i < count; i++ {
		subject := fmt.Sprintf("%s%d.%s", prefix, rand.Intn(1000), events[rand.Intn(len(events))])
		msg := DemoMessage{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Type:      events[rand.Intn(len(events))],
			Source:    s.name,
			Data:      generateRandomData(),
			Priority:  rand.Intn(10),
		}
		data, err := json.Marshal(msg)
		if err != nil {
			log.Warn().Err(err).Msg("failed to marshal message")
			continue
		}

		out := nats.NewMsg(subject)
		out.Data = data
		out.Header.Set(nats.MsgIdHdr, msg.ID)
		out.Header.Set("Correlation-Id", fmt.Sprintf("corr-%s-%d", strings.ToLower(s.name), rand.Intn(50)))

		ack, err := p.js.PublishMsg(out)
		if err != nil {
			log.Warn().Err(err).Str("subject", subject).Msg("failed to publish message")
			continue
		}
		if rand.Float64() < p.ratio {
			p.deadLetter(s, out, ack.Sequence)
		}

		if i%100 == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// deadLetter copies a message to a dead-letter stream and deletes the original.
// Streams with a consumer split their dead letters between the queue and the consumer.
func (p *populator) deadLetter(s demoStream, msg *nats.Msg, seq uint64) {
	consumer := ""
	if s.consumer != "" && rand.Intn(2) == 0 {
		consumer = s.consumer
	}
	_, dlqSubject := p.deadLetterStream(s, consumer)
	copied := nats.NewMsg(dlqSubject)
	copied.Data = msg.Data
	for k, vals := range msg.Header {
		for _, v := range vals {
			copied.Header.Add(k, v)
		}
	}
	copied.Header.Set("Dead-Letter-Reason", "MaxDeliveryExceeded")
	copied.Header.Set("Original-Subject", msg.Subject)
	copied.Header.Set("Original-Sequence", strconv.FormatUint(seq, 10))

	if _, err := p.js.PublishMsg(copied); err != nil {
		log.Warn().Err(err).Msg("failed to dead-letter message")
		return
	}
	if err := p.js.DeleteMsg(s.name, seq); err != nil {
		log.Warn().Err(err).Uint64("seq", seq).Msg("failed to delete dead-lettered message")
	}
}

func (p *populator) trickle(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("trickling messages")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range demoStreams {
				p.publish(s, 1)
			}
		}
	}
}

func generateRandomData() string {
	dataTemplates := []string{
		"User action completed successfully",
		"Processing request from API gateway",
		"Database query executed in %dms",
		"Cache hit for key: %s",
		"External service called: response time %dms",
		"Validation error: field %s is required",
		"Authentication successful for user",
		"Rate limit check passed",
		"Message queued for processing",
		"Background job scheduled",
	}

	template := dataTemplates[rand.Intn(len(dataTemplates))]

	switch template {
	case "Database query executed in %dms":
		return fmt.Sprintf(template, rand.Intn(500))
	case "Cache hit for key: %s":
		return fmt.Sprintf(template, fmt.Sprintf("key_%d", rand.Intn(1000)))
	case "External service called: response time %dms":
		return fmt.Sprintf(template, rand.Intn(2000))
	case "Validation error: field %s is required":
		fields := []string{"email", "username", "password", "firstName", "lastName"}
		return fmt.Sprintf(template, fields[rand.Intn(len(fields))])
	default:
		return template
	}
}

type DataPoint struct {
	Timestamp time.Time
	Value     float64
}

// MetricsSimulator samples the demo streams and serves their counts both as exporter
// gauges and through a minimal Prometheus query API
type MetricsSimulator struct {
	js       nats.JetStreamContext
	suffix   string
	serverID string
	registry *prometheus.Registry

	mu      sync.RWMutex
	current map[string]float64 // series key -> latest value
	history map[string][]DataPoint
}

// NewMetricsSimulator creates a new metrics simulator
func NewMetricsSimulator(js nats.JetStreamContext, suffix string) *MetricsSimulator {
	registry := prometheus.NewRegistry()
	registry.MustRegister(streamTotalMessages, consumerPending, consumerAckPending)

	return &MetricsSimulator{
		js:       js,
		suffix:   suffix,
		serverID: "nats-server-demo",
		registry: registry,
		current:  make(map[string]float64),
		history:  make(map[string][]DataPoint),
	}
}

// Run samples every 5 seconds and serves HTTP until ctx is done
func (s *MetricsSimulator) Run(ctx context.Context, port string) {
	router := chi.NewRouter()
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	router.HandleFunc("/api/v1/query", s.handleQuery)
	router.HandleFunc("/api/v1/query_range", s.handleQueryRange)

	srv := &http.Server{Addr: ":" + port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("serving metrics and query API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	s.sample()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func streamKey(stream string) string {
	return "stream:" + stream
}

func consumerKey(stream, consumer string) string {
	return "consumer:" + stream + "/" + consumer
}

// sample reads real stream and consumer state and records it
func (s *MetricsSimulator) sample() {
	now := time.Now()
	values := make(map[string]float64)

	for info := range s.js.StreamsInfo() {
		msgs := float64(info.State.Msgs)
		streamTotalMessages.WithLabelValues(s.serverID, info.Config.Name).Set(msgs)
		values[streamKey(info.Config.Name)] = msgs

		for ci := range s.js.ConsumersInfo(info.Config.Name) {
			consumerPending.WithLabelValues(s.serverID, info.Config.Name, ci.Name).Set(float64(ci.NumPending))
			consumerAckPending.WithLabelValues(s.serverID, info.Config.Name, ci.Name).Set(float64(ci.NumAckPending))
			values[consumerKey(info.Config.Name, ci.Name)] = float64(ci.NumPending + uint64(ci.NumAckPending))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = values
	for key, v := range values {
		points := append(s.history[key], DataPoint{Timestamp: now, Value: v})
		if len(points) > 720 {
			points = points[len(points)-720:]
		}
		s.history[key] = points
	}
}

// seriesKey maps a counts plugin query onto a sampled series
func seriesKey(query string) string {
	stream := extractLabel(query, "stream_name")
	if consumer := extractLabel(query, "consumer_name"); consumer != "" {
		return consumerKey(stream, consumer)
	}
	return streamKey(stream)
}

// handleQuery handles instant query API
func (s *MetricsSimulator) handleQuery(w http.ResponseWriter, r *http.Request) {
	key := seriesKey(r.FormValue("query"))

	s.mu.RLock()
	value, ok := s.current[key]
	s.mu.RUnlock()

	result := []interface{}{}
	if ok {
		result = append(result, map[string]interface{}{
			"metric": map[string]string{},
			"value":  []interface{}{float64(time.Now().Unix()), strconv.FormatFloat(value, 'f', -1, 64)},
		})
	}
	writeResult(w, "vector", result)
}

// handleQueryRange handles Prometheus range query API
func (s *MetricsSimulator) handleQueryRange(w http.ResponseWriter, r *http.Request) {
	key := seriesKey(r.FormValue("query"))
	start, _ := strconv.ParseFloat(r.FormValue("start"), 64)

	s.mu.RLock()
	points := s.history[key]
	values := make([][]interface{}, 0, len(points))
	for _, p := range points {
		if float64(p.Timestamp.Unix()) < start {
			continue
		}
		values = append(values, []interface{}{float64(p.Timestamp.Unix()), strconv.FormatFloat(p.Value, 'f', -1, 64)})
	}
	s.mu.RUnlock()

	result := []interface{}{}
	if len(values) > 0 {
		result = append(result, map[string]interface{}{
			"metric": map[string]string{},
			"values": values,
		})
	}
	writeResult(w, "matrix", result)
}

func writeResult(w http.ResponseWriter, resultType string, result []interface{}) {
	response := map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"resultType": resultType,
			"result":     result,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// extractLabel extracts a label value from a query string
func extractLabel(query, label string) string {
	pattern := label + `="`
	idx := strings.Index(query, pattern)
	if idx == -1 {
		return ""
	}

	start := idx + len(pattern)
	end := strings.Index(query[start:], `"`)
	if end == -1 {
		return ""
	}

	return query[start : start+end]
}
