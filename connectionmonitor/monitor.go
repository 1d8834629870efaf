package connectionmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// healthCheckInterval defines interval between ledger health checks
	healthCheckInterval = 30 * time.Second
	// reconnectTimeout defines timeout between reconnection attempts
	reconnectTimeout = 5 * time.Second
	// maxReconnectAttempts defines maximum number of reconnection attempts
	maxReconnectAttempts = 3
)

// ConnectionMonitor represents connection state monitoring interface
type ConnectionMonitor interface {
	// Start starts connection monitoring
	Start(ctx context.Context) error
	// Stop stops connection monitoring
	Stop()
}

// LedgerClient represents the monitored ledger connection interface
type LedgerClient interface {
	// CheckConnection checks if connection is alive
	CheckConnection(ctx context.Context) error
	// Reconnect attempts to reconnect to the ledger node
	Reconnect(ctx context.Context) error
}

type connectionMonitor struct {
	client       LedgerClient
	logger       *logrus.Logger
	ledgerName   string
	stopChan     chan struct{}
	isMonitoring bool
	monitorMutex sync.RWMutex
}

// NewConnectionMonitor creates a new connection monitor instance.
//
// Parameters:
// - client: the ledger client to monitor.
// - logger: the logger for logging purposes.
// - ledgerName: the name of the monitored ledger.
//
// Returns:
// - ConnectionMonitor: the new connection monitor instance.
func NewConnectionMonitor(
	client LedgerClient,
	logger *logrus.Logger,
	ledgerName string,
) ConnectionMonitor {
	return &connectionMonitor{
		client:       client,
		logger:       logger,
		ledgerName:   ledgerName,
		stopChan:     make(chan struct{}),
		isMonitoring: false,
	}
}

// Start starts connection monitoring.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the connection monitor is already running.
func (m *connectionMonitor) Start(ctx context.Context) error {
	m.monitorMutex.Lock()
	if m.isMonitoring {
		m.monitorMutex.Unlock()
		return errors.Errorf("connection monitor is already running for ledger %s", m.ledgerName)
	}
	m.isMonitoring = true
	// A fresh channel per Start so a monitor can be restarted after Stop.
	m.stopChan = make(chan struct{})
	stopChan := m.stopChan
	m.monitorMutex.Unlock()

	go m.monitorConnection(ctx, stopChan)
	return nil
}

// Stop stops connection monitoring.
func (m *connectionMonitor) Stop() {
	m.monitorMutex.Lock()
	defer m.monitorMutex.Unlock()

	if !m.isMonitoring {
		return
	}

	close(m.stopChan)
	m.isMonitoring = false
}

// monitorConnection monitors the connection state and attempts to reconnect if needed.
func (m *connectionMonitor) monitorConnection(ctx context.Context, stopChan <-chan struct{}) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.WithField("ledger", m.ledgerName).Info("Connection monitoring stopped due to context cancellation")
			return

		case <-stopChan:
			m.logger.WithField("ledger", m.ledgerName).Info("Connection monitoring stopped")
			return

		case <-ticker.C:
			if err := m.checkAndReconnect(ctx); err != nil {
				m.logger.WithFields(logrus.Fields{
					"ledger": m.ledgerName,
					"error":  err,
				}).Error("Failed to check or reconnect")
			}
		}
	}
}

// checkAndReconnect checks the connection state and attempts to reconnect if needed.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the reconnection fails.
func (m *connectionMonitor) checkAndReconnect(ctx context.Context) error {
	if err := m.client.CheckConnection(ctx); err != nil {
		m.logger.WithFields(logrus.Fields{
			"ledger": m.ledgerName,
			"error":  err,
		}).Warn("Connection check failed, attempting to reconnect")

		for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
			if err := m.client.Reconnect(ctx); err != nil {
				m.logger.WithFields(logrus.Fields{
					"ledger":  m.ledgerName,
					"attempt": attempt,
					"error":   err,
				}).Error("Reconnection attempt failed")

				if attempt == maxReconnectAttempts {
					return errors.Wrapf(err, "failed to reconnect to ledger %s", m.ledgerName)
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectTimeout):
					continue
				}
			}

			m.logger.WithFields(logrus.Fields{
				"ledger":  m.ledgerName,
				"attempt": attempt,
			}).Info("Ledger connection restored")
			return nil
		}
	}

	return nil
}
