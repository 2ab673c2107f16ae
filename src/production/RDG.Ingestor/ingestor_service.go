package rdgingestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Config"
	logger "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Logger"
	rdgmodels "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Models"
	interfaces "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Interfaces"
)

// DatasetResolver resolves an inbound identity tuple to a persisted dataset.
type DatasetResolver interface {
	Resolve(ctx context.Context, key rdgmodels.DatasetKey) (*rdgmodels.Dataset, error)
}

// Publisher publishes notification payloads to the broker.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type inboundMessage struct {
	topic      string
	payload    []byte
	receivedAt time.Time
}

// Ingestor consumes reading events from the readings topic, stores each one
// transactionally and republishes it as a notification. Events are processed
// one at a time by a single writer goroutine.
type Ingestor struct {
	cfg      config.MQTTConfig
	resolver DatasetResolver
	readings interfaces.ReadingRepository
	archive  interfaces.EventArchive // optional, may be nil
	log      *logger.Logger

	client mqtt.Client
	pub    Publisher
	msgCh  chan inboundMessage
	wg     sync.WaitGroup
}

func New(cfg config.MQTTConfig, res DatasetResolver, readings interfaces.ReadingRepository, archive interfaces.EventArchive, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:      cfg,
		resolver: res,
		readings: readings,
		archive:  archive,
		log:      log.WithComponent("ingestor"),
		msgCh:    make(chan inboundMessage, 4096),
	}
}

func (i *Ingestor) Start(ctx context.Context, brokerURL string) error {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(i.cfg.ClientID).
		SetOrderMatters(true).
		SetKeepAlive(i.cfg.KeepAlive).
		SetPingTimeout(i.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if i.cfg.BrokerUser != "" {
		opts.SetUsername(i.cfg.BrokerUser)
		opts.SetPassword(i.cfg.BrokerPass)
	}

	if i.cfg.UseTLS {
		tlsCfg, err := i.tlsConfig(i.cfg.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.log.WithError(err).Warn("mqtt connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.cfg.ReadingsTopic
		if i.cfg.SharedGroup != "" {
			topic = fmt.Sprintf("$share/%s/%s", i.cfg.SharedGroup, i.cfg.ReadingsTopic)
		}
		i.log.WithField("topic", topic).Info("mqtt connected, subscribing")
		if token := c.Subscribe(topic, 1, i.onMessage); token.Wait() && token.Error() != nil {
			i.log.WithError(token.Error()).Error("subscribe failed")
		}
	}

	i.client = mqtt.NewClient(opts)
	if tk := i.client.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}
	i.pub = &pahoPublisher{client: i.client}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.process(ctx)
	}()

	return nil
}

// Stop disconnects from the broker and drains queued events.
func (i *Ingestor) Stop() {
	if i.client != nil && i.client.IsConnected() {
		i.client.Disconnect(500)
	}
	close(i.msgCh)
	i.wg.Wait()
}

func (i *Ingestor) IsConnected() bool {
	return i.client != nil && i.client.IsConnected()
}

func (i *Ingestor) onMessage(_ mqtt.Client, m mqtt.Message) {
	i.msgCh <- inboundMessage{
		topic:      m.Topic(),
		payload:    m.Payload(),
		receivedAt: time.Now().UTC(),
	}
}

func (i *Ingestor) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-i.msgCh:
			if !ok {
				return
			}
			i.handleEvent(ctx, msg)
		}
	}
}

// handleEvent runs the full pipeline for one inbound event. Failures never
// stop the consumer: malformed payloads are dropped with a warning, store
// failures are logged and the event is skipped, publish failures leave the
// stored reading in place.
func (i *Ingestor) handleEvent(ctx context.Context, msg inboundMessage) {
	if i.archive != nil {
		if err := i.archive.ArchiveEvent(ctx, msg.topic, msg.payload, msg.receivedAt); err != nil {
			i.log.WithError(err).Warn("failed to archive event")
		}
	}

	var event rdgmodels.ReadingEvent
	if err := json.Unmarshal(msg.payload, &event); err != nil {
		i.log.WithError(err).WithField("topic", msg.topic).Warn("dropping malformed event")
		return
	}
	if err := event.Validate(); err != nil {
		i.log.WithError(err).WithField("topic", msg.topic).Warn("dropping incomplete event")
		return
	}

	dataset, err := i.resolver.Resolve(ctx, event.Dataset)
	if err != nil {
		i.log.WithError(err).WithField("deviceId", event.Dataset.DeviceID).Error("failed to resolve dataset")
		return
	}

	if err := i.readings.AddReading(ctx, dataset.ID, *event.Timestamp, *event.Value); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateReading) {
			i.log.WithField("datasetId", dataset.ID).Warn("rejected duplicate reading")
		} else {
			i.log.WithError(err).WithField("datasetId", dataset.ID).Error("failed to store reading")
		}
		return
	}

	// The reading is durably stored at this point. A failed publish is
	// logged and the notification is lost; it is never rolled back.
	i.publishNotification(dataset, *event.Timestamp, *event.Value)
}

func (i *Ingestor) publishNotification(dataset *rdgmodels.Dataset, timestamp time.Time, value float64) {
	notification := rdgmodels.ReadingNotification{
		Dataset: dataset,
		Reading: rdgmodels.NotificationReading{
			Dataset:   dataset,
			Timestamp: timestamp,
			Value:     value,
		},
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		i.log.WithError(err).Error("failed to marshal notification")
		return
	}

	topic := fmt.Sprintf("%s/%s", i.cfg.NotificationsTopic, dataset.ID)
	if err := i.pub.Publish(topic, payload); err != nil {
		i.log.WithError(err).WithField("topic", topic).Warn("failed to publish notification")
	}
}

func (i *Ingestor) tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}

type pahoPublisher struct {
	client mqtt.Client
}

func (p *pahoPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}
