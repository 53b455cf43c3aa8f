package store

import (
	"context"
	"sync"

	"tripchat/internal/database"
	"tripchat/internal/models"

	"github.com/sirupsen/logrus"
)

// NewSQLProvider returns a PrimaryProvider over internal/database. The
// connection is opened lazily on first use after configuration appears and
// reopened whenever the DSN or driver changes, so an operator can point the
// system at a recovered primary by editing configuration alone.
func NewSQLProvider(cfg func() models.PrimaryConfig, logger *logrus.Logger) PrimaryProvider {
	var mu sync.Mutex
	var current *database.Store
	var currentCfg models.PrimaryConfig

	return func(ctx context.Context) (Backend, error) {
		c := cfg()
		if !c.IsConfigured() {
			return nil, nil
		}

		mu.Lock()
		defer mu.Unlock()

		if current != nil && c == currentCfg {
			return current, nil
		}
		if current != nil {
			if err := current.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close stale primary store handle")
			}
			current = nil
		}

		st, err := database.New(c.Driver, c.DSN)
		if err != nil {
			return nil, err
		}
		logger.WithField("driver", c.Driver).Info("Primary store connected")
		current = st
		currentCfg = c
		return st, nil
	}
}
