// Package notify fans attendance and door events out to observers: the door
// audit log and, when configured, an MQTT broker.
package notify

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

// MQTTConfig holds broker connection settings.  An empty Host disables
// publishing entirely.
type MQTTConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	CACert      string `yaml:"ca_cert"`
	ClientCert  string `yaml:"client_cert"`
	ClientKey   string `yaml:"client_key"`
}

// MQTTPublisher publishes events as JSON at QoS 0.  A disabled publisher
// accepts every call and does nothing.
type MQTTPublisher struct {
	client  paho.Client
	prefix  string
	enabled bool
	logger  *zap.Logger
}

// NewMQTTPublisher builds the client but does not connect.
func NewMQTTPublisher(cfg MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mqtt")

	p := &MQTTPublisher{
		prefix: strings.TrimSuffix(cfg.TopicPrefix, "/"),
		logger: logger,
	}
	if p.prefix == "" {
		p.prefix = "doorlock"
	}

	if cfg.Host == "" {
		logger.Info("MQTT disabled (no host configured)")
		return p, nil
	}

	var (
		broker    string
		tlsConfig *tls.Config
	)
	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)
		var err error
		if tlsConfig, err = buildTLSConfig(cfg); err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "doorlock-" + hostnameOr("kiosk")
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("MQTT connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info("MQTT connection established", zap.String("broker", broker))
		})
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	p.client = paho.NewClient(opts)
	p.enabled = true
	return p, nil
}

func buildTLSConfig(cfg MQTTConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		caPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Connect starts the connection.  With connect-retry enabled paho keeps
// trying in the background and queues publishes, so a slow broker only
// produces a warning here.
func (p *MQTTPublisher) Connect(timeout time.Duration) {
	if !p.enabled {
		return
	}
	tok := p.client.Connect()
	if !tok.WaitTimeout(timeout) {
		p.logger.Warn("MQTT broker not reachable yet; retrying in background")
		return
	}
	if err := tok.Error(); err != nil {
		p.logger.Warn("MQTT connect failed", zap.Error(err))
	}
}

func (p *MQTTPublisher) Close() {
	if !p.enabled || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}

func (p *MQTTPublisher) Enabled() bool { return p.enabled }

type attendanceMessage struct {
	EventID      string `json:"event_id"`
	EmployeeCode string `json:"employee_code"`
	EmployeeName string `json:"employee_name"`
	EventKind    string `json:"event_kind"`
	LegacyStatus string `json:"status"`
	Timestamp    string `json:"timestamp"`
}

// PublishAttendance sends to <prefix>/attendance.
func (p *MQTTPublisher) PublishAttendance(ev types.AttendanceEvent, employeeName string) {
	p.publish("attendance", attendanceMessage{
		EventID:      ev.ID,
		EmployeeCode: ev.EmployeeCode,
		EmployeeName: employeeName,
		EventKind:    string(ev.Kind),
		LegacyStatus: ev.Kind.LegacyName(),
		Timestamp:    ev.OccurredAt.Format(time.RFC3339),
	})
}

// OnDoorEvent sends to <prefix>/door.
func (p *MQTTPublisher) OnDoorEvent(ev types.DoorEvent) {
	p.publish("door", DoorEventEntry(ev))
}

func (p *MQTTPublisher) publish(suffix string, v any) {
	if !p.enabled {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("MQTT encode failed", zap.String("topic", suffix), zap.Error(err))
		return
	}
	topic := p.prefix + "/" + suffix
	// QoS 0: fire and forget, never block the caller on the broker.
	p.client.Publish(topic, 0, false, payload)
}

func hostnameOr(fallback string) string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fallback
	}
	return h
}
