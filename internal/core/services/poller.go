// Package services holds the application services driving the connectors.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/core/ports/driven"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

// PollAccount binds one configured account to its mailbox client.
type PollAccount struct {
	Name     string
	Mailbox  driven.Mailbox
	Interval time.Duration
	// MarkRead flags newly archived messages read at the provider.
	MarkRead bool
	// Limit caps each fetch; zero uses the domain default.
	Limit int
}

// Poller periodically fetches unread mail for each account and archives
// new messages. Per-account failures are logged and never stop the
// poller; each account runs on its own schedule.
type Poller struct {
	store driven.MessageStore

	mu       sync.Mutex
	cron     *cron.Cron
	entries  map[string]cron.EntryID
	accounts map[string]PollAccount
	running  bool
}

// NewPoller creates a poller archiving into store.
func NewPoller(store driven.MessageStore) *Poller {
	return &Poller{
		store:    store,
		cron:     cron.New(),
		entries:  make(map[string]cron.EntryID),
		accounts: make(map[string]PollAccount),
	}
}

// Start schedules the accounts and kicks an immediate first cycle for
// each. It returns once scheduling is done; cycles run on the cron's
// goroutine.
func (p *Poller) Start(ctx context.Context, accounts []PollAccount) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller: already started")
	}

	for _, acct := range accounts {
		if err := p.scheduleLocked(ctx, acct); err != nil {
			return err
		}
	}

	p.cron.Start()
	p.running = true

	for _, acct := range accounts {
		go p.RunCycle(ctx, acct)
	}

	logger.Info("poller: started with %d accounts", len(accounts))
	return nil
}

func (p *Poller) scheduleLocked(ctx context.Context, acct PollAccount) error {
	interval := acct.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	acctCopy := acct
	id, err := p.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		p.RunCycle(ctx, acctCopy)
	})
	if err != nil {
		return fmt.Errorf("schedule account %q: %w", acct.Name, err)
	}

	p.entries[acct.Name] = id
	p.accounts[acct.Name] = acct
	return nil
}

// Reload replaces the scheduled account set, used on config reload.
// In-flight cycles finish with their old clients.
func (p *Poller) Reload(ctx context.Context, accounts []PollAccount) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, id := range p.entries {
		p.cron.Remove(id)
		delete(p.entries, name)
		delete(p.accounts, name)
	}

	for _, acct := range accounts {
		if err := p.scheduleLocked(ctx, acct); err != nil {
			return err
		}
	}

	logger.Info("poller: reloaded with %d accounts", len(accounts))
	return nil
}

// RunCycle executes one fetch-archive-mark cycle for an account.
func (p *Poller) RunCycle(ctx context.Context, acct PollAccount) {
	if ctx.Err() != nil {
		return
	}

	runID := uuid.NewString()

	messages, err := acct.Mailbox.Fetch(ctx, domain.FetchCriteria{Limit: acct.Limit})
	if err != nil {
		logger.Warn("poller: %s: fetch failed (run %s): %v", acct.Name, runID, err)
		return
	}

	var archived []string
	for i := range messages {
		msg := &messages[i]

		seen, err := p.store.Seen(ctx, msg.Account, msg.ID)
		if err != nil {
			logger.Warn("poller: %s: seen check for %s failed: %v", acct.Name, msg.ID, err)
			continue
		}
		if seen {
			continue
		}

		if err := p.store.Save(ctx, runID, msg); err != nil {
			logger.Warn("poller: %s: archive of %s failed: %v", acct.Name, msg.ID, err)
			continue
		}
		archived = append(archived, msg.ID)
	}

	if acct.MarkRead && len(archived) > 0 {
		results, err := acct.Mailbox.MarkRead(ctx, archived)
		if err != nil {
			logger.Warn("poller: %s: mark read failed (run %s): %v", acct.Name, runID, err)
		}
		for _, res := range results {
			if res.Err != nil {
				logger.Warn("poller: %s: mark read of %s failed: %v", acct.Name, res.ID, res.Err)
			}
		}
	}

	if len(archived) > 0 {
		logger.Info("poller: %s: archived %d new messages (run %s)", acct.Name, len(archived), runID)
	} else {
		logger.Debug("poller: %s: no new messages (run %s)", acct.Name, runID)
	}
}

// Stop halts scheduling and waits for in-flight cycles to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.running = false
	logger.Info("poller: stopped")
}
